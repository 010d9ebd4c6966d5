package dto

import (
	"batchline/internal/domain/catalogs/batchtype"
)

// --- Request DTOs ---

// CreateBatchTypeRequest represents a request to create a batch type.
// Code is optional; an empty code is generated.
type CreateBatchTypeRequest struct {
	Code        string  `json:"code,omitempty"`
	Name        string  `json:"name" binding:"required"`
	CanSplit    bool    `json:"canSplit"`
	Description *string `json:"description,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateBatchTypeRequest) ToEntity() *batchtype.BatchType {
	bt := batchtype.NewBatchType(r.Code, r.Name, r.CanSplit)
	bt.Description = r.Description
	return bt
}

// UpdateBatchTypeRequest represents a request to update a batch type.
type UpdateBatchTypeRequest struct {
	Name        *string `json:"name,omitempty"`
	CanSplit    *bool   `json:"canSplit,omitempty"`
	Description *string `json:"description,omitempty"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies updates to an existing entity.
func (r *UpdateBatchTypeRequest) ApplyTo(bt *batchtype.BatchType) {
	if r.Name != nil {
		bt.Name = *r.Name
	}
	if r.CanSplit != nil {
		bt.CanSplit = *r.CanSplit
	}
	if r.Description != nil {
		bt.Description = r.Description
	}
	bt.Version = r.Version
}

// --- Response DTOs ---

// BatchTypeResponse represents a batch type in API responses.
type BatchTypeResponse struct {
	CatalogResponse
	CanSplit    bool    `json:"canSplit"`
	IsDefault   bool    `json:"isDefault"`
	Description *string `json:"description,omitempty"`
}

// FromBatchType converts domain entity to response DTO.
func FromBatchType(bt *batchtype.BatchType) *BatchTypeResponse {
	return &BatchTypeResponse{
		CatalogResponse: FromCatalog(bt.Catalog),
		CanSplit:        bt.CanSplit,
		IsDefault:       bt.IsDefault,
		Description:     bt.Description,
	}
}

// BatchTypeListResponse is the paginated batch type listing.
type BatchTypeListResponse struct {
	Items      []BatchTypeResponse `json:"items"`
	TotalCount int64               `json:"totalCount"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// FromBatchTypes converts a slice of batch types.
func FromBatchTypes(types []*batchtype.BatchType) []BatchTypeResponse {
	items := make([]BatchTypeResponse, len(types))
	for i, bt := range types {
		items[i] = *FromBatchType(bt)
	}
	return items
}
