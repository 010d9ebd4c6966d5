package dto

import (
	"time"

	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/ledger"
)

// --- Request DTOs ---

// OperationListRequest contains journal listing filters.
type OperationListRequest struct {
	PaginationRequest
	Type     string     `form:"type" binding:"omitempty,oneof=receipt allocation adjust transfer split scrap"`
	BranchID string     `form:"branchId" binding:"omitempty,uuid"`
	BatchID  string     `form:"batchId" binding:"omitempty,uuid"`
	From     *time.Time `form:"from"`
	To       *time.Time `form:"to"`
}

// ToFilter converts the query into an operation filter.
func (r *OperationListRequest) ToFilter() ledger.OperationFilter {
	r.Defaults()
	filter := ledger.OperationFilter{
		FromDate: r.From,
		ToDate:   r.To,
		Limit:    r.PageSize,
		Offset:   r.Offset(),
	}
	if r.Type != "" {
		opType := ledger.OperationType(r.Type)
		filter.Type = &opType
	}
	if r.BranchID != "" {
		branchID, _ := id.Parse(r.BranchID)
		filter.BranchID = &branchID
	}
	if r.BatchID != "" {
		batchID, _ := id.Parse(r.BatchID)
		filter.BatchID = &batchID
	}
	return filter
}

// --- Response DTOs ---

// OperationResponse is a journal operation header.
type OperationResponse struct {
	ID        string            `json:"id"`
	Number    string            `json:"number"`
	Type      string            `json:"type"`
	BranchID  *string           `json:"branchId,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Operator  string            `json:"operator"`
	Meta      entity.Attributes `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// FromOperation converts domain entity to response DTO.
func FromOperation(op *ledger.Operation) *OperationResponse {
	resp := &OperationResponse{
		ID:        op.ID.String(),
		Number:    op.Number,
		Type:      string(op.Type),
		Reason:    op.Reason,
		Operator:  op.Operator,
		Meta:      op.Meta,
		CreatedAt: op.CreatedAt,
	}
	if op.BranchID != nil {
		branchID := op.BranchID.String()
		resp.BranchID = &branchID
	}
	return resp
}

// EntryResponse is one ledger movement within an operation.
type EntryResponse struct {
	ID             string         `json:"id"`
	OperationID    string         `json:"operationId"`
	BatchID        string         `json:"batchId"`
	Direction      string         `json:"direction"`
	Quantity       types.Quantity `json:"quantity"`
	RemainingAfter types.Quantity `json:"remainingAfter"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// FromEntry converts domain entity to response DTO.
func FromEntry(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:             e.ID.String(),
		OperationID:    e.OperationID.String(),
		BatchID:        e.BatchID.String(),
		Direction:      string(e.Direction),
		Quantity:       e.Quantity,
		RemainingAfter: e.RemainingAfter,
		CreatedAt:      e.CreatedAt,
	}
}

// OperationDetailResponse is an operation header with its entries.
type OperationDetailResponse struct {
	OperationResponse
	Entries []EntryResponse `json:"entries"`
}

// FromOperationDetail converts an operation and its entries.
func FromOperationDetail(op *ledger.Operation, entries []ledger.Entry) *OperationDetailResponse {
	resp := &OperationDetailResponse{OperationResponse: *FromOperation(op)}
	resp.Entries = make([]EntryResponse, len(entries))
	for i, e := range entries {
		resp.Entries[i] = FromEntry(e)
	}
	return resp
}

// OperationListResponse is the paginated journal listing.
type OperationListResponse struct {
	Items      []OperationResponse `json:"items"`
	TotalCount int64               `json:"totalCount"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// FromOperations converts a slice of operations.
func FromOperations(ops []*ledger.Operation) []OperationResponse {
	items := make([]OperationResponse, len(ops))
	for i, op := range ops {
		items[i] = *FromOperation(op)
	}
	return items
}
