package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/infrastructure/http/v1/dto"
)

// BatchTypeHandler handles HTTP requests for the batch type catalog.
type BatchTypeHandler struct {
	*BaseHandler
	service *batchtype.Service
}

// NewBatchTypeHandler creates a new batch type handler.
func NewBatchTypeHandler(base *BaseHandler, service *batchtype.Service) *BatchTypeHandler {
	return &BatchTypeHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /batch-types
func (h *BatchTypeHandler) Create(c *gin.Context) {
	var req dto.CreateBatchTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bt := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), bt); err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromBatchType(bt))
}

// List handles GET /batch-types
func (h *BatchTypeHandler) List(c *gin.Context) {
	var req dto.CatalogListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BatchTypeListResponse{
		Items:      dto.FromBatchTypes(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /batch-types/:id
func (h *BatchTypeHandler) Get(c *gin.Context) {
	typeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	bt, err := h.service.GetByID(c.Request.Context(), typeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatchType(bt))
}

// Update handles PATCH /batch-types/:id
func (h *BatchTypeHandler) Update(c *gin.Context) {
	typeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateBatchTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	bt, err := h.service.GetByID(c.Request.Context(), typeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(bt)
	if err := h.service.Update(c.Request.Context(), bt); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatchType(bt))
}

// SetDefault handles POST /batch-types/:id/default
func (h *BatchTypeHandler) SetDefault(c *gin.Context) {
	typeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.SetDefault(c.Request.Context(), typeID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "default batch type updated")
}
