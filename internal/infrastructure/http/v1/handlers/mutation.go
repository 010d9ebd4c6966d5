package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/domain/mutation"
	"batchline/internal/infrastructure/http/v1/dto"
)

// MutationHandler handles HTTP requests for batch mutations.
type MutationHandler struct {
	*BaseHandler
	service *mutation.Service
}

// NewMutationHandler creates a new mutation handler.
func NewMutationHandler(base *BaseHandler, service *mutation.Service) *MutationHandler {
	return &MutationHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Adjust handles POST /batches/:id/adjust
func (h *MutationHandler) Adjust(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.service.Adjust(c.Request.Context(), req.ToInput(batchID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}

// Transfer handles POST /batches/:id/transfer
func (h *MutationHandler) Transfer(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.TransferStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), req.ToInput(batchID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransferResult(result))
}

// Split handles POST /batches/:id/split
func (h *MutationHandler) Split(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SplitBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	outputs, err := h.service.Split(c.Request.Context(), req.ToInput(batchID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.SplitBatchResponse{Outputs: dto.FromBatches(outputs)})
}

// Scrap handles POST /batches/:id/scrap
func (h *MutationHandler) Scrap(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ScrapBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.service.Scrap(c.Request.Context(), req.ToInput(batchID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}
