// Package types provides common type aliases and quantity arithmetic.
package types

import (
	"github.com/shopspring/decimal"
)

// Quantity represents a physical stock quantity in the product's base unit.
// Uses decimal.Decimal to avoid floating-point errors; stored as
// NUMERIC(20,4) in PostgreSQL.
type Quantity = decimal.Decimal

// QuantityTolerance is the absolute tolerance used when comparing
// quantities. Conversion factors introduce sub-milliunit rounding noise;
// comparisons absorb it, stored values and requirements are never rounded.
var QuantityTolerance = decimal.New(1, -3) // 0.001

// NewQuantity creates a Quantity from a float.
// WARNING: Use NewQuantityFromString for precise values.
func NewQuantity(f float64) Quantity {
	return decimal.NewFromFloat(f)
}

// NewQuantityFromString creates a Quantity from a string.
// This is the preferred method for exact values.
func NewQuantityFromString(s string) (Quantity, error) {
	return decimal.NewFromString(s)
}

// MustQuantity creates a Quantity from a string, panics on error.
// Use only for constants and tests.
func MustQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroQuantity returns the zero Quantity.
func ZeroQuantity() Quantity {
	return decimal.Zero
}

// QtyEqual reports a == b within tolerance.
func QtyEqual(a, b Quantity) bool {
	return a.Sub(b).Abs().LessThanOrEqual(QuantityTolerance)
}

// QtyCovers reports a >= b within tolerance, i.e. a quantity of a is
// enough to satisfy a requirement of b.
func QtyCovers(a, b Quantity) bool {
	return a.GreaterThanOrEqual(b.Sub(QuantityTolerance))
}

// QtyExceeds reports a > b beyond tolerance. Used for "requested more
// than available" guards so that a == b still passes.
func QtyExceeds(a, b Quantity) bool {
	return a.GreaterThan(b.Add(QuantityTolerance))
}

// QtyMin returns the smaller of a and b.
func QtyMin(a, b Quantity) Quantity {
	if a.LessThan(b) {
		return a
	}
	return b
}
