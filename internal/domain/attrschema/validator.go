package attrschema

import (
	"context"
	"fmt"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
)

// GaugeLookup decides whether a category accepts a gauge attribute.
// The production implementation is configuration-driven; the core stays
// free of settings-resolution concerns. A nil lookup accepts gauge for
// every category.
type GaugeLookup func(ctx context.Context, schema Schema) (bool, error)

// ValidatorConfig configures the validator.
type ValidatorConfig struct {
	// GaugeLookup is consulted for aluminium categories only.
	// Nil means every category accepts gauge.
	GaugeLookup GaugeLookup
}

// Validator enforces category attribute schemas. It performs no I/O of
// its own; the gauge lookup is the single injected decision point.
type Validator struct {
	gauge GaugeLookup
	rules *ruleCache
}

// NewValidator creates a validator.
func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{
		gauge: cfg.GaugeLookup,
		rules: newRuleCache(),
	}
}

// Validate checks attrs against the schema's archetype ruleset, then
// against the category's extra CEL rules. attrs may carry arbitrary keys
// beyond the ruleset; they are preserved, not rejected.
func (v *Validator) Validate(ctx context.Context, schema Schema, attrs entity.Attributes) error {
	if !schema.Archetype.Valid() {
		return apperror.NewValidation(fmt.Sprintf("category %q has unknown archetype %q", schema.Code, schema.Archetype)).
			WithDetail("archetype", string(schema.Archetype))
	}

	switch schema.Archetype {
	case ArchetypeAluminium:
		acceptsGauge := true
		if v.gauge != nil {
			ok, err := v.gauge(ctx, schema)
			if err != nil {
				return apperror.NewInternal(err).WithDetail("lookup", "gauge_policy")
			}
			acceptsGauge = ok
		}
		if _, err := AluminiumFromAttributes(attrs, acceptsGauge); err != nil {
			return err
		}
	case ArchetypeStoneTile:
		if _, err := StoneTileFromAttributes(attrs); err != nil {
			return err
		}
	case ArchetypeAccessories:
		if _, err := AccessoryFromAttributes(attrs); err != nil {
			return err
		}
	case ArchetypeGeneral:
		// no archetype constraints
	}

	if len(schema.ExtraRules) > 0 {
		if err := v.rules.eval(schema, attrs); err != nil {
			return err
		}
	}

	return nil
}

// CompileRules checks that every expression compiles and yields a bool.
// Category registration calls it so rule errors surface to the admin,
// not to the operator creating a batch.
func (v *Validator) CompileRules(rules []string) error {
	return v.rules.compileAll(rules)
}
