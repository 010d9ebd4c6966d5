package attrschema

import (
	"github.com/shopspring/decimal"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
)

// AccessoryAttributes is the typed form of accessory attribute_data.
// Accessories are counted either by packet or by piece; at least one of
// the two counts must be present.
type AccessoryAttributes struct {
	PacketSize *decimal.Decimal
	PcsCount   *decimal.Decimal
}

// AccessoryFromAttributes extracts and validates the accessories ruleset:
// at least one of packet_size or pcs_count present, and whichever is
// present must be numeric and > 0.
func AccessoryFromAttributes(attrs entity.Attributes) (*AccessoryAttributes, error) {
	out := &AccessoryAttributes{}

	if !attrs.Has("packet_size") && !attrs.Has("pcs_count") {
		return nil, apperror.NewInvalidAttribute("packet_size", "at least one of packet_size or pcs_count is required")
	}

	if attrs.Has("packet_size") {
		v, err := requirePositiveNumber(attrs, "packet_size")
		if err != nil {
			return nil, err
		}
		out.PacketSize = &v
	}
	if attrs.Has("pcs_count") {
		v, err := requirePositiveNumber(attrs, "pcs_count")
		if err != nil {
			return nil, err
		}
		out.PcsCount = &v
	}

	return out, nil
}

// ToAttributes converts back to the stored map form.
func (a *AccessoryAttributes) ToAttributes() entity.Attributes {
	attrs := entity.Attributes{}
	if a.PacketSize != nil {
		attrs["packet_size"] = *a.PacketSize
	}
	if a.PcsCount != nil {
		attrs["pcs_count"] = *a.PcsCount
	}
	return attrs
}
