package memory

import (
	"context"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/catalogs/category"
)

// SchemaMap is a static ledger.SchemaResolver. The production resolver
// is the category cache; this one serves tests and tooling.
type SchemaMap struct {
	ByCategory map[id.ID]attrschema.Schema
}

// NewSchemaMap builds a resolver over the given categories.
func NewSchemaMap(categories ...*category.Category) *SchemaMap {
	m := &SchemaMap{ByCategory: make(map[id.ID]attrschema.Schema, len(categories))}
	for _, c := range categories {
		m.Add(c)
	}
	return m
}

// Add registers a category's schema, replacing any previous version.
func (s *SchemaMap) Add(c *category.Category) {
	s.ByCategory[c.ID] = c.AttrSchema()
}

// SchemaFor implements ledger.SchemaResolver. Uncategorized batches get
// the unconstrained schema; a missing category is a data error.
func (s *SchemaMap) SchemaFor(ctx context.Context, categoryID *id.ID) (attrschema.Schema, error) {
	if categoryID == nil || id.IsNil(*categoryID) {
		return attrschema.Uncategorized(), nil
	}
	schema, ok := s.ByCategory[*categoryID]
	if !ok {
		return attrschema.Schema{}, apperror.NewNotFound("category", categoryID.String())
	}
	return schema, nil
}
