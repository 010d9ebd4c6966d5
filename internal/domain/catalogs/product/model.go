// Package product provides the Product catalog.
// Products are what batches hold (raw stock: coils, pallets, cartons)
// and what recipes manufacture (virtual products: made to order from
// raw stock, never stocked themselves).
package product

import (
	"context"
	"strings"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
)

// Product represents a stockable raw material or a manufactured item.
type Product struct {
	entity.Catalog

	// IsVirtual marks a manufactured product. Virtual products carry no
	// batches of their own; selling one consumes raw-product stock
	// through a recipe.
	IsVirtual bool `db:"is_virtual" json:"isVirtual"`

	// BaseUnit is the unit all batch quantities of this product are in
	// (kg, sqm, pcs, m)
	BaseUnit string `db:"base_unit" json:"baseUnit"`

	// Article is the item article/SKU
	Article *string `db:"article" json:"article,omitempty"`

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// DefaultCategoryID is the category applied when a receipt does not
	// name one
	DefaultCategoryID *id.ID `db:"default_category_id" json:"defaultCategoryId,omitempty"`

	// AttributeDefaults are merged under submitted attribute_data at
	// batch creation; submitted values win
	AttributeDefaults entity.Attributes `db:"attribute_defaults" json:"attributeDefaults,omitempty"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name, baseUnit string) *Product {
	return &Product{
		Catalog:  entity.NewCatalog(code, name),
		BaseUnit: baseUnit,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if strings.TrimSpace(p.BaseUnit) == "" {
		return apperror.NewValidation("base unit is required").
			WithDetail("field", "baseUnit")
	}

	return nil
}

// CanBeStocked returns true if the ledger may hold batches of this product.
// Virtual products are manufactured on demand; their material lives in
// raw-product batches.
func (p *Product) CanBeStocked() bool {
	return !p.IsVirtual
}
