package attrschema

import (
	"github.com/shopspring/decimal"

	"batchline/internal/core/entity"
)

// StoneTileAttributes is the typed form of stone/tile attribute_data.
type StoneTileAttributes struct {
	DesignPattern string
	PcsPerPallet  decimal.Decimal
	SqmCoverage   decimal.Decimal
	PalletNumber  string
}

// StoneTileFromAttributes extracts and validates the stone/tile ruleset:
// design_pattern and pallet_number non-empty strings; pcs_per_pallet and
// sqm_coverage numeric > 0.
func StoneTileFromAttributes(attrs entity.Attributes) (*StoneTileAttributes, error) {
	out := &StoneTileAttributes{}

	var err error
	if out.DesignPattern, err = requireNonEmptyString(attrs, "design_pattern"); err != nil {
		return nil, err
	}
	if out.PcsPerPallet, err = requirePositiveNumber(attrs, "pcs_per_pallet"); err != nil {
		return nil, err
	}
	if out.SqmCoverage, err = requirePositiveNumber(attrs, "sqm_coverage"); err != nil {
		return nil, err
	}
	if out.PalletNumber, err = requireNonEmptyString(attrs, "pallet_number"); err != nil {
		return nil, err
	}

	return out, nil
}

// ToAttributes converts back to the stored map form.
func (s *StoneTileAttributes) ToAttributes() entity.Attributes {
	return entity.Attributes{
		"design_pattern": s.DesignPattern,
		"pcs_per_pallet": s.PcsPerPallet,
		"sqm_coverage":   s.SqmCoverage,
		"pallet_number":  s.PalletNumber,
	}
}
