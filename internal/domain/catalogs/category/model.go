// Package category provides the Category catalog.
// A category binds batches to an attribute archetype (the fixed physical
// ruleset) plus optional per-category extra rules. Binding happens once,
// at registration; the validator dispatches on the stored archetype and
// never re-inspects category names.
package category

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/domain/attrschema"
)

// RuleList is a JSONB-stored list of CEL expressions over `attrs`.
type RuleList []string

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
func (r *RuleList) Scan(src any) error {
	if src == nil {
		*r = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for RuleList: %T", src)
	}

	if len(source) == 0 {
		*r = nil
		return nil
	}
	return json.Unmarshal(source, r)
}

// Value implements driver.Valuer for writing to PostgreSQL JSONB.
func (r RuleList) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Category represents a batch category with its validation binding.
type Category struct {
	entity.Catalog

	// Archetype selects the fixed physical ruleset. Resolved from the
	// name at registration, stored explicitly from then on.
	Archetype attrschema.Archetype `db:"archetype" json:"archetype"`

	// ExtraRules are additional CEL constraints evaluated after the
	// archetype ruleset passes
	ExtraRules RuleList `db:"extra_rules" json:"extraRules,omitempty"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewCategory creates a Category, resolving the archetype from the name.
func NewCategory(code, name string) *Category {
	return &Category{
		Catalog:   entity.NewCatalog(code, name),
		Archetype: attrschema.ResolveArchetype(name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Category) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !c.Archetype.Valid() {
		return apperror.NewValidation("invalid category archetype").
			WithDetail("field", "archetype").
			WithDetail("value", string(c.Archetype))
	}

	return nil
}

// AttrSchema converts to the validator's view of this category.
// The entity version keys the compiled-rule cache, so a rules change
// always invalidates stale programs.
func (c *Category) AttrSchema() attrschema.Schema {
	return attrschema.Schema{
		CategoryID: c.ID,
		Code:       c.Code,
		Name:       c.Name,
		Archetype:  c.Archetype,
		ExtraRules: c.ExtraRules,
		Version:    c.Version,
	}
}
