// Package branch provides the Branch catalog.
// Branches are the physical locations stock lives at; every batch in the
// ledger belongs to exactly one branch at a time.
package branch

import (
	"context"

	"batchline/internal/core/entity"
)

// Branch represents a stock-holding location (store, warehouse, workshop).
type Branch struct {
	entity.Catalog

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates if the branch currently holds and moves stock
	IsActive bool `db:"is_active" json:"isActive"`

	// IsDefault marks the branch used when a receipt does not name one
	IsDefault bool `db:"is_default" json:"isDefault"`
}

// NewBranch creates a new Branch with required fields.
func NewBranch(code, name string) *Branch {
	return &Branch{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (b *Branch) Validate(ctx context.Context) error {
	return b.Catalog.Validate(ctx)
}

// CanHoldStock returns true if the branch accepts batch writes.
// Transfers into inactive or marked branches are rejected up front.
func (b *Branch) CanHoldStock() bool {
	return b.IsActive && !b.DeletionMark
}
