// Package attrschema validates batch attribute_data against the owning
// category's physical schema. It is the single source of truth for
// "is this batch physically well-formed": creation, update, bulk import
// and split inheritance all run the same Validate.
package attrschema

import (
	"strings"

	"batchline/internal/core/id"
)

// Archetype selects the fixed ruleset a category is validated against.
// Categories are bound to an archetype once, when they are registered;
// validation dispatches on the enum, never on category names.
type Archetype string

const (
	// ArchetypeAluminium covers coil stock (weight, gauge, embossment).
	ArchetypeAluminium Archetype = "aluminium"

	// ArchetypeStoneTile covers palletized stone and tile stock.
	ArchetypeStoneTile Archetype = "stone_tile"

	// ArchetypeAccessories covers counted accessory stock.
	ArchetypeAccessories Archetype = "accessories"

	// ArchetypeGeneral applies no constraints beyond the ledger invariants.
	ArchetypeGeneral Archetype = "general"
)

// Valid reports whether a is a known archetype.
func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeAluminium, ArchetypeStoneTile, ArchetypeAccessories, ArchetypeGeneral:
		return true
	}
	return false
}

// ResolveArchetype classifies a free-text category name into an archetype.
// Called once at category registration/seeding time; validation itself
// never looks at names. Unmatched names map to ArchetypeGeneral.
func ResolveArchetype(name string) Archetype {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "aluminium"), strings.Contains(n, "aluminum"):
		return ArchetypeAluminium
	case strings.Contains(n, "stone"), strings.Contains(n, "tile"), strings.Contains(n, "ceramic"):
		return ArchetypeStoneTile
	case strings.Contains(n, "accessor"), strings.Contains(n, "fitting"):
		return ArchetypeAccessories
	}
	return ArchetypeGeneral
}

// Schema is the validation-relevant slice of a category. The category
// catalog converts to it at the validator boundary, so this package does
// not depend on catalog types.
type Schema struct {
	// CategoryID identifies the category (zero for uncategorized batches)
	CategoryID id.ID

	// Code and Name are carried for error context and gauge policy lookups
	Code string
	Name string

	// Archetype selects the ruleset
	Archetype Archetype

	// ExtraRules are CEL expressions over `attrs` that must all hold,
	// checked after the archetype ruleset passes
	ExtraRules []string

	// Version keys the compiled rule cache; bumped when rules change
	Version int
}

// Uncategorized is the schema applied when a batch has no category.
// Only the ledger invariants apply.
func Uncategorized() Schema {
	return Schema{Archetype: ArchetypeGeneral}
}
