// Package handlers provides HTTP request handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/http/v1/dto"
)

// BatchHandler handles HTTP requests for the batch ledger.
type BatchHandler struct {
	*BaseHandler
	store *ledger.Store
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, store *ledger.Store) *BatchHandler {
	return &BatchHandler{
		BaseHandler: base,
		store:       store,
	}
}

// Create handles POST /batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.store.CreateBatch(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromBatch(batch))
}

// Import handles POST /batches/import
func (h *BatchHandler) Import(c *gin.Context) {
	var req dto.ImportBatchesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batches, err := h.store.ImportBatches(c.Request.Context(), req.ToInputs())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.ImportBatchesResponse{
		Batches: dto.FromBatches(batches),
		Count:   len(batches),
	})
}

// List handles GET /batches
func (h *BatchHandler) List(c *gin.Context) {
	var req dto.BatchListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.store.ListBatches(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BatchListResponse{
		Items:      dto.FromBatches(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	batch, err := h.store.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}

// UpdateAttributes handles PATCH /batches/:id/attributes
func (h *BatchHandler) UpdateAttributes(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateBatchAttributesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.store.UpdateAttributes(c.Request.Context(), batchID, req.Attributes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}

// Delete handles DELETE /batches/:id
func (h *BatchHandler) Delete(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteBatch(c.Request.Context(), batchID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Availability handles GET /products/:id/availability
func (h *BatchHandler) Availability(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var branchID *id.ID
	if branchStr := c.Query("branchId"); branchStr != "" {
		parsed, err := id.Parse(branchStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid branchId format"))
			return
		}
		branchID = &parsed
	}

	available, err := h.store.Availability(c.Request.Context(), productID, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.AvailabilityResponse{
		ProductID: productID.String(),
		Available: available,
	}
	if branchID != nil {
		branchStr := branchID.String()
		resp.BranchID = &branchStr
	}
	h.OK(c, resp)
}
