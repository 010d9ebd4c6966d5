package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/domain/allocation"
	"batchline/internal/domain/mutation"
	"batchline/internal/infrastructure/http/v1/dto"
)

// AllocationHandler handles HTTP requests for allocation proposals and
// their execution.
type AllocationHandler struct {
	*BaseHandler
	engine   *allocation.Engine
	mutation *mutation.Service
}

// NewAllocationHandler creates a new allocation handler.
func NewAllocationHandler(base *BaseHandler, engine *allocation.Engine, mutationSvc *mutation.Service) *AllocationHandler {
	return &AllocationHandler{
		BaseHandler: base,
		engine:      engine,
		mutation:    mutationSvc,
	}
}

// Propose handles POST /allocations/propose
func (h *AllocationHandler) Propose(c *gin.Context) {
	var req dto.ProposeAllocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	proposal, err := h.engine.Propose(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProposal(proposal))
}

// Commit handles POST /allocations/commit
func (h *AllocationHandler) Commit(c *gin.Context) {
	var req dto.CommitAllocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	receipts, err := h.mutation.CommitAllocation(c.Request.Context(), req.ToProposal())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromDeductionReceipts(receipts))
}
