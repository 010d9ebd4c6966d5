package numerator

import (
	"context"
	"time"
)

// Generator generates sequential operation numbers.
// Services depend on this contract; Service is the production implementation.
type Generator interface {
	// GetNextNumber generates the next operation number.
	// Pattern: PREFIX-YEAR-XXXXXX (e.g., ALO-2026-000042)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the next number value (for migration purposes).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// Ensure compile-time interface compliance.
var _ Generator = (*Service)(nil)
