package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"batchline/internal/core/entity"
	"batchline/internal/core/id"
)

type fakeCatalog struct {
	entity.BaseCatalog
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`
	IsDefault bool   `db:"is_default" json:"isDefault"`
	Skipped   string `db:"-" json:"-"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[fakeCatalog]()

	expected := []string{"id", "deletion_mark", "version", "attributes", "code", "name", "is_default"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Skipped")
}

func TestStructToMap(t *testing.T) {
	cat := fakeCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
				Attributes:   entity.Attributes{"region": "north"},
			},
		},
		Code:      "HQ",
		Name:      "Headquarters",
		IsDefault: true,
		Skipped:   "not persisted",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "HQ", m["code"])
	assert.Equal(t, "Headquarters", m["name"])
	assert.Equal(t, true, m["is_default"])
	assert.NotContains(t, m, "-")
}
