// Package allocation provides the proposal engine: it turns a sale of a
// manufactured product into a concrete, advisory set of batch deductions
// covering the recipe's material requirement.
package allocation

import (
	"batchline/internal/core/id"
	"batchline/internal/core/types"
)

// Line pairs one batch with the quantity to deduct from it.
type Line struct {
	BatchID id.ID `json:"batchId"`

	// InstanceCode is carried for display; nil for bulk batches
	InstanceCode *string `json:"instanceCode,omitempty"`

	QuantityDeducted types.Quantity `json:"quantityDeducted"`
}

// Proposal is an advisory allocation. It reserves nothing and may go
// stale; commit re-validates every line against fresh ledger state.
type Proposal struct {
	RecipeID   id.ID  `json:"recipeId"`
	RecipeCode string `json:"recipeCode"`

	VirtualProductID id.ID `json:"virtualProductId"`
	RawProductID     id.ID `json:"rawProductId"`

	// BranchID narrows candidates; nil means branch-agnostic
	BranchID *id.ID `json:"branchId,omitempty"`

	OutputQuantity   types.Quantity `json:"outputQuantity"`
	ConversionFactor types.Quantity `json:"conversionFactor"`

	// RequiredQuantity = OutputQuantity * ConversionFactor, kept exact
	RequiredQuantity types.Quantity `json:"requiredQuantity"`

	// SelectedTotal is the sum over lines; covers RequiredQuantity
	// within the quantity tolerance
	SelectedTotal types.Quantity `json:"selectedTotal"`

	Lines []Line `json:"lines"`

	// Policy that ordered the candidates
	Policy SelectionPolicy `json:"policy"`
}
