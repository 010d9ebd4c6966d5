// Package ledger provides the batch ledger: the authoritative record of
// every physical batch and the journal of every quantity movement.
package ledger

import (
	"context"
	"strings"
	"time"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
)

// Status is the batch lifecycle state.
type Status string

const (
	// StatusInStock marks a batch holding quantity available to operations.
	StatusInStock Status = "in_stock"

	// StatusDepleted is derived: remaining quantity reached zero through
	// normal deduction. An adjust(increase) revives the batch.
	StatusDepleted Status = "depleted"

	// StatusScrapped is terminal, set by explicit operator action.
	// Scrapped batches are never re-activated.
	StatusScrapped Status = "scrapped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusDepleted, StatusScrapped:
		return true
	}
	return false
}

// Batch is the ledger's unit of record: one quantity-bearing unit of
// physical stock (a coil, a pallet, a carton, loose bulk).
type Batch struct {
	// ID is immutable identity (UUIDv7, so id order is creation order)
	ID id.ID `db:"id" json:"id"`

	// ProductID and BranchID are ownership; exactly one of each at a time
	ProductID id.ID `db:"product_id" json:"productId"`
	BranchID  id.ID `db:"branch_id" json:"branchId"`

	// CategoryID selects the attribute schema; nil means uncategorized
	CategoryID *id.ID `db:"category_id" json:"categoryId,omitempty"`

	// BatchTypeID tags handling capabilities (can_split)
	BatchTypeID id.ID `db:"batch_type_id" json:"batchTypeId"`

	// Grouped marks one physically identifiable unit. Grouped batches
	// must carry a globally unique InstanceCode; ungrouped bulk carries
	// only the optional BatchIdentifier.
	Grouped         bool    `db:"grouped" json:"grouped"`
	InstanceCode    *string `db:"instance_code" json:"instanceCode,omitempty"`
	BatchIdentifier *string `db:"batch_identifier" json:"batchIdentifier,omitempty"`

	// Quantities in the product's base unit
	InitialQuantity   types.Quantity `db:"initial_quantity" json:"initialQuantity"`
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`

	// Status is the lifecycle state
	Status Status `db:"status" json:"status"`

	// AttributeData is the open physical-attribute map, shape-checked
	// against the category schema at every write
	AttributeData entity.Attributes `db:"attribute_data" json:"attributeData,omitempty"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBatch creates an in-stock batch with remaining = initial.
func NewBatch(productID, branchID, batchTypeID id.ID, initial types.Quantity) *Batch {
	now := time.Now().UTC()
	return &Batch{
		ID:                id.New(),
		ProductID:         productID,
		BranchID:          branchID,
		BatchTypeID:       batchTypeID,
		InitialQuantity:   initial,
		RemainingQuantity: initial,
		Status:            StatusInStock,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Validate implements entity.Validatable interface.
// Checks the static shape; quantity invariants against fresh state are
// re-checked by CheckQuantityInvariants inside every mutation.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(b.BranchID) {
		return apperror.NewValidation("branch is required").WithDetail("field", "branchId")
	}
	if id.IsNil(b.BatchTypeID) {
		return apperror.NewValidation("batch type is required").WithDetail("field", "batchTypeId")
	}
	if !b.Status.Valid() {
		return apperror.NewValidation("invalid batch status").
			WithDetail("field", "status").
			WithDetail("value", string(b.Status))
	}
	if b.InitialQuantity.IsNegative() || b.RemainingQuantity.IsNegative() {
		return apperror.NewValidation("quantities must be non-negative").
			WithDetail("field", "remainingQuantity")
	}
	if b.Grouped && (b.InstanceCode == nil || strings.TrimSpace(*b.InstanceCode) == "") {
		return apperror.NewGroupedIdentifierRequired("instance code is missing")
	}
	if !b.Grouped && b.InstanceCode != nil {
		return apperror.NewValidation("ungrouped batch cannot carry an instance code").
			WithDetail("field", "instanceCode")
	}
	return b.CheckQuantityInvariants()
}

// CheckQuantityInvariants asserts the ledger invariants on this batch:
// 0 <= remaining <= initial, depleted and scrapped hold exactly zero,
// in_stock never holds zero. Every mutation runs it against freshly read
// state before writing.
func (b *Batch) CheckQuantityInvariants() error {
	if b.RemainingQuantity.IsNegative() {
		return apperror.NewValidation("remaining quantity is negative").
			WithDetail("batchId", b.ID.String()).
			WithDetail("remaining", b.RemainingQuantity)
	}
	if b.RemainingQuantity.GreaterThan(b.InitialQuantity) {
		return apperror.NewValidation("remaining quantity exceeds initial quantity").
			WithDetail("batchId", b.ID.String()).
			WithDetail("remaining", b.RemainingQuantity).
			WithDetail("initial", b.InitialQuantity)
	}
	switch b.Status {
	case StatusInStock:
		if b.RemainingQuantity.IsZero() {
			return apperror.NewValidation("in-stock batch holds zero quantity; status must flip with the deduction").
				WithDetail("batchId", b.ID.String())
		}
	case StatusDepleted, StatusScrapped:
		if !b.RemainingQuantity.IsZero() {
			return apperror.NewValidation("closed batch still holds quantity").
				WithDetail("batchId", b.ID.String()).
				WithDetail("status", string(b.Status)).
				WithDetail("remaining", b.RemainingQuantity)
		}
	}
	return nil
}

// ApplyDeduction decrements remaining and flips status to depleted on
// exact zero. The caller has already accepted the deduction (tolerance
// applies at acceptance, never here).
func (b *Batch) ApplyDeduction(quantity types.Quantity) {
	b.RemainingQuantity = b.RemainingQuantity.Sub(quantity)
	if b.RemainingQuantity.IsZero() {
		b.Status = StatusDepleted
	}
}

// CanMutate reports whether quantity-changing operations may touch the
// batch. Scrapped is terminal; depleted batches only accept
// adjust(increase), which the mutation service special-cases.
func (b *Batch) CanMutate() bool {
	return b.Status == StatusInStock
}

// Untouched reports whether the batch still holds everything it was
// created with. Only untouched receipt batches may be hard-deleted.
func (b *Batch) Untouched() bool {
	return b.Status == StatusInStock && b.RemainingQuantity.Equal(b.InitialQuantity)
}

// Clone returns a copy sharing no pointers with the original. Repository
// implementations that keep batches in memory hand out clones so callers
// never alias stored state.
func (b *Batch) Clone() *Batch {
	cp := *b
	if b.CategoryID != nil {
		v := *b.CategoryID
		cp.CategoryID = &v
	}
	if b.InstanceCode != nil {
		v := *b.InstanceCode
		cp.InstanceCode = &v
	}
	if b.BatchIdentifier != nil {
		v := *b.BatchIdentifier
		cp.BatchIdentifier = &v
	}
	cp.AttributeData = b.AttributeData.Clone()
	return &cp
}
