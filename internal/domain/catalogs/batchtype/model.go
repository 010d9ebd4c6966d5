// Package batchtype provides the Batch Type catalog.
// Batch types tag batches with handling capabilities: Coil, Loose,
// Pallet, Carton and whatever else operations configure. The set is
// data, not code; only the capability flags are interpreted.
package batchtype

import (
	"context"

	"batchline/internal/core/entity"
)

// BatchType represents a configurable batch kind.
type BatchType struct {
	entity.Catalog

	// CanSplit permits the slitting operation on batches of this type
	CanSplit bool `db:"can_split" json:"canSplit"`

	// IsDefault marks the type applied when a receipt does not name one.
	// At most one type holds the flag at a time.
	IsDefault bool `db:"is_default" json:"isDefault"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewBatchType creates a new BatchType with required fields.
func NewBatchType(code, name string, canSplit bool) *BatchType {
	return &BatchType{
		Catalog:  entity.NewCatalog(code, name),
		CanSplit: canSplit,
	}
}

// Validate implements entity.Validatable interface.
func (bt *BatchType) Validate(ctx context.Context) error {
	return bt.Catalog.Validate(ctx)
}
