package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/http/v1/dto"
)

// OperationsHandler handles HTTP requests for the operation journal.
type OperationsHandler struct {
	*BaseHandler
	store *ledger.Store
}

// NewOperationsHandler creates a new journal handler.
func NewOperationsHandler(base *BaseHandler, store *ledger.Store) *OperationsHandler {
	return &OperationsHandler{
		BaseHandler: base,
		store:       store,
	}
}

// List handles GET /operations
func (h *OperationsHandler) List(c *gin.Context) {
	var req dto.OperationListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.store.ListOperations(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.OperationListResponse{
		Items:      dto.FromOperations(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /operations/:id
func (h *OperationsHandler) Get(c *gin.Context) {
	opID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	op, entries, err := h.store.GetOperation(c.Request.Context(), opID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOperationDetail(op, entries))
}
