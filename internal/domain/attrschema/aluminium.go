package attrschema

import (
	"strings"

	"github.com/shopspring/decimal"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
)

// Gauge bounds in millimetres for aluminium coil stock.
var (
	gaugeMin = decimal.RequireFromString("0.10")
	gaugeMax = decimal.RequireFromString("1.00")
)

// AluminiumAttributes is the typed form of aluminium coil attribute_data.
// Conversion to and from the stored map happens only at the validator
// boundary; storage keeps the open JSONB map.
type AluminiumAttributes struct {
	WeightKg   decimal.Decimal
	GaugeMm    *decimal.Decimal // nil when the category does not accept gauge
	Embossment string
	ColorCode  string
	CoilNumber string
}

// AluminiumFromAttributes extracts and validates the aluminium ruleset:
// weight_kg numeric > 0; gauge_mm numeric in [0.10, 1.00] when the
// category accepts gauge, absent otherwise; embossment, color_code and
// coil_number non-empty strings.
func AluminiumFromAttributes(attrs entity.Attributes, acceptsGauge bool) (*AluminiumAttributes, error) {
	out := &AluminiumAttributes{}

	weight, err := requirePositiveNumber(attrs, "weight_kg")
	if err != nil {
		return nil, err
	}
	out.WeightKg = weight

	if acceptsGauge {
		gauge, ok := attrs.Number("gauge_mm")
		if !ok {
			if attrs.Has("gauge_mm") {
				return nil, apperror.NewInvalidAttribute("gauge_mm", "must be a number")
			}
			return nil, apperror.NewInvalidAttribute("gauge_mm", "is required")
		}
		if gauge.LessThan(gaugeMin) || gauge.GreaterThan(gaugeMax) {
			return nil, apperror.NewInvalidAttribute("gauge_mm", "must be between 0.10 and 1.00").
				WithDetail("value", gauge)
		}
		out.GaugeMm = &gauge
	} else if attrs.Has("gauge_mm") {
		return nil, apperror.NewInvalidAttribute("gauge_mm", "category does not accept a gauge attribute")
	}

	for _, field := range []string{"embossment", "color_code", "coil_number"} {
		v, err := requireNonEmptyString(attrs, field)
		if err != nil {
			return nil, err
		}
		switch field {
		case "embossment":
			out.Embossment = v
		case "color_code":
			out.ColorCode = v
		case "coil_number":
			out.CoilNumber = v
		}
	}

	return out, nil
}

// ToAttributes converts back to the stored map form.
func (a *AluminiumAttributes) ToAttributes() entity.Attributes {
	attrs := entity.Attributes{
		"weight_kg":   a.WeightKg,
		"embossment":  a.Embossment,
		"color_code":  a.ColorCode,
		"coil_number": a.CoilNumber,
	}
	if a.GaugeMm != nil {
		attrs["gauge_mm"] = *a.GaugeMm
	}
	return attrs
}

// --- shared field extraction helpers ---

func requirePositiveNumber(attrs entity.Attributes, field string) (decimal.Decimal, error) {
	v, ok := attrs.Number(field)
	if !ok {
		if attrs.Has(field) {
			return decimal.Zero, apperror.NewInvalidAttribute(field, "must be a number")
		}
		return decimal.Zero, apperror.NewInvalidAttribute(field, "is required")
	}
	if !v.IsPositive() {
		return decimal.Zero, apperror.NewInvalidAttribute(field, "must be greater than zero").
			WithDetail("value", v)
	}
	return v, nil
}

func requireNonEmptyString(attrs entity.Attributes, field string) (string, error) {
	if !attrs.Has(field) {
		return "", apperror.NewInvalidAttribute(field, "is required")
	}
	v, ok := attrs[field].(string)
	if !ok {
		return "", apperror.NewInvalidAttribute(field, "must be a string")
	}
	if strings.TrimSpace(v) == "" {
		return "", apperror.NewInvalidAttribute(field, "must not be empty")
	}
	return v, nil
}
