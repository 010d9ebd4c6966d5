package branch

import (
	"context"

	"batchline/internal/core/id"
	"batchline/internal/domain"
)

// Repository defines the interface for Branch persistence.
type Repository interface {
	domain.CatalogRepository[*Branch]

	// GetForUpdate retrieves branch with row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*Branch, error)

	// ClearDefault clears the default flag on all branches (before setting new default).
	ClearDefault(ctx context.Context) error
}
