package dto

import (
	"time"

	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/ledger"
)

// --- Request DTOs ---

// CreateBatchRequest represents a request to receive one batch into stock.
type CreateBatchRequest struct {
	ProductID   string  `json:"productId" binding:"required,uuid"`
	BranchID    string  `json:"branchId" binding:"required,uuid"`
	CategoryID  *string `json:"categoryId,omitempty" binding:"omitempty,uuid"`
	BatchTypeID *string `json:"batchTypeId,omitempty" binding:"omitempty,uuid"`

	Grouped         bool   `json:"grouped"`
	InstanceCode    string `json:"instanceCode,omitempty"`
	BatchIdentifier string `json:"batchIdentifier,omitempty"`

	InitialQuantity types.Quantity    `json:"initialQuantity" binding:"required"`
	Attributes      entity.Attributes `json:"attributes,omitempty"`
}

// ToInput converts request to a service input. ID format is checked by
// binding, so parse errors cannot occur here.
func (r *CreateBatchRequest) ToInput() ledger.CreateBatchInput {
	productID, _ := id.Parse(r.ProductID)
	branchID, _ := id.Parse(r.BranchID)

	input := ledger.CreateBatchInput{
		ProductID:       productID,
		BranchID:        branchID,
		Grouped:         r.Grouped,
		InstanceCode:    r.InstanceCode,
		BatchIdentifier: r.BatchIdentifier,
		InitialQuantity: r.InitialQuantity,
		AttributeData:   r.Attributes,
	}
	if r.CategoryID != nil {
		categoryID, _ := id.Parse(*r.CategoryID)
		input.CategoryID = &categoryID
	}
	if r.BatchTypeID != nil {
		batchTypeID, _ := id.Parse(*r.BatchTypeID)
		input.BatchTypeID = &batchTypeID
	}
	return input
}

// ImportBatchesRequest represents a bulk receipt of batches.
type ImportBatchesRequest struct {
	Batches []CreateBatchRequest `json:"batches" binding:"required,min=1,max=1000,dive"`
}

// ToInputs converts the import lines to service inputs.
func (r *ImportBatchesRequest) ToInputs() []ledger.CreateBatchInput {
	inputs := make([]ledger.CreateBatchInput, len(r.Batches))
	for i := range r.Batches {
		inputs[i] = r.Batches[i].ToInput()
	}
	return inputs
}

// UpdateBatchAttributesRequest replaces a batch's attribute map.
type UpdateBatchAttributesRequest struct {
	Attributes entity.Attributes `json:"attributes" binding:"required"`
}

// BatchListRequest contains batch listing filters.
type BatchListRequest struct {
	PaginationRequest
	ProductID   string `form:"productId" binding:"omitempty,uuid"`
	BranchID    string `form:"branchId" binding:"omitempty,uuid"`
	CategoryID  string `form:"categoryId" binding:"omitempty,uuid"`
	BatchTypeID string `form:"batchTypeId" binding:"omitempty,uuid"`
	Status      string `form:"status" binding:"omitempty,oneof=in_stock depleted scrapped"`
	Grouped     *bool  `form:"grouped"`
	Search      string `form:"search"`
	OrderBy     string `form:"orderBy"`
}

// ToFilter converts the query into a ledger filter.
func (r *BatchListRequest) ToFilter() ledger.Filter {
	r.Defaults()
	filter := ledger.Filter{
		Grouped: r.Grouped,
		Search:  r.Search,
		OrderBy: r.OrderBy,
		Limit:   r.PageSize,
		Offset:  r.Offset(),
	}
	if r.ProductID != "" {
		productID, _ := id.Parse(r.ProductID)
		filter.ProductID = &productID
	}
	if r.BranchID != "" {
		branchID, _ := id.Parse(r.BranchID)
		filter.BranchID = &branchID
	}
	if r.CategoryID != "" {
		categoryID, _ := id.Parse(r.CategoryID)
		filter.CategoryID = &categoryID
	}
	if r.BatchTypeID != "" {
		batchTypeID, _ := id.Parse(r.BatchTypeID)
		filter.BatchTypeID = &batchTypeID
	}
	if r.Status != "" {
		status := ledger.Status(r.Status)
		filter.Status = &status
	}
	return filter
}

// --- Response DTOs ---

// BatchResponse represents a batch in API responses.
type BatchResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	BranchID    string  `json:"branchId"`
	CategoryID  *string `json:"categoryId,omitempty"`
	BatchTypeID string  `json:"batchTypeId"`

	Grouped         bool    `json:"grouped"`
	InstanceCode    *string `json:"instanceCode,omitempty"`
	BatchIdentifier *string `json:"batchIdentifier,omitempty"`

	InitialQuantity   types.Quantity `json:"initialQuantity"`
	RemainingQuantity types.Quantity `json:"remainingQuantity"`

	Status     string            `json:"status"`
	Attributes entity.Attributes `json:"attributes,omitempty"`
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// FromBatch converts domain entity to response DTO.
func FromBatch(b *ledger.Batch) *BatchResponse {
	resp := &BatchResponse{
		ID:                b.ID.String(),
		ProductID:         b.ProductID.String(),
		BranchID:          b.BranchID.String(),
		BatchTypeID:       b.BatchTypeID.String(),
		Grouped:           b.Grouped,
		InstanceCode:      b.InstanceCode,
		BatchIdentifier:   b.BatchIdentifier,
		InitialQuantity:   b.InitialQuantity,
		RemainingQuantity: b.RemainingQuantity,
		Status:            string(b.Status),
		Attributes:        b.AttributeData,
		Version:           b.Version,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	if b.CategoryID != nil {
		categoryID := b.CategoryID.String()
		resp.CategoryID = &categoryID
	}
	return resp
}

// FromBatches converts a slice of batches.
func FromBatches(batches []*ledger.Batch) []BatchResponse {
	items := make([]BatchResponse, len(batches))
	for i, b := range batches {
		items[i] = *FromBatch(b)
	}
	return items
}

// BatchListResponse is the paginated batch listing.
type BatchListResponse struct {
	Items      []BatchResponse `json:"items"`
	TotalCount int64           `json:"totalCount"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// ImportBatchesResponse reports the batches created by a bulk import.
type ImportBatchesResponse struct {
	Batches []BatchResponse `json:"batches"`
	Count   int             `json:"count"`
}

// AvailabilityResponse reports remaining stock for a product.
type AvailabilityResponse struct {
	ProductID string         `json:"productId"`
	BranchID  *string        `json:"branchId,omitempty"`
	Available types.Quantity `json:"available"`
}
