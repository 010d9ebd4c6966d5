package category

import (
	"batchline/internal/domain"
)

// Repository defines the interface for Category persistence.
// Implementations notify the schema cache on every write so validators
// across instances pick up archetype/rule changes.
type Repository interface {
	domain.CatalogRepository[*Category]
}
