// Package recipe provides the recipe registry: the bill-of-materials
// rules that turn one unit of a manufactured (virtual) product into
// units of raw-product consumption.
package recipe

import (
	"context"

	"github.com/shopspring/decimal"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
)

// Recipe converts virtual-product output into raw-product consumption.
// required = output_quantity * ConversionFactor, in the raw product's
// base unit.
type Recipe struct {
	entity.Catalog

	// VirtualProductID is the manufactured product this recipe makes
	VirtualProductID id.ID `db:"virtual_product_id" json:"virtualProductId"`

	// RawProductID is the stocked material the recipe consumes
	RawProductID id.ID `db:"raw_product_id" json:"rawProductId"`

	// ConversionFactor is raw units consumed per one output unit
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`

	// IsActive gates resolution; inactive recipes are only reachable by
	// explicit pin
	IsActive bool `db:"is_active" json:"isActive"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewRecipe creates a new Recipe with required fields.
func NewRecipe(code, name string, virtualProductID, rawProductID id.ID, factor decimal.Decimal) *Recipe {
	return &Recipe{
		Catalog:          entity.NewCatalog(code, name),
		VirtualProductID: virtualProductID,
		RawProductID:     rawProductID,
		ConversionFactor: factor,
		IsActive:         true,
	}
}

// Validate implements entity.Validatable interface.
func (r *Recipe) Validate(ctx context.Context) error {
	if err := r.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.VirtualProductID) {
		return apperror.NewValidation("virtual product is required").
			WithDetail("field", "virtualProductId")
	}
	if id.IsNil(r.RawProductID) {
		return apperror.NewValidation("raw product is required").
			WithDetail("field", "rawProductId")
	}
	if r.VirtualProductID == r.RawProductID {
		return apperror.NewValidation("recipe cannot consume its own output").
			WithDetail("field", "rawProductId")
	}
	if !r.ConversionFactor.IsPositive() {
		return apperror.NewValidation("conversion factor must be greater than zero").
			WithDetail("field", "conversionFactor").
			WithDetail("value", r.ConversionFactor)
	}

	return nil
}

// RequiredQuantity converts an output quantity into raw-product units.
// The result is exact; tolerance applies only when comparing against
// availability, never here.
func (r *Recipe) RequiredQuantity(outputQuantity decimal.Decimal) decimal.Decimal {
	return outputQuantity.Mul(r.ConversionFactor)
}
