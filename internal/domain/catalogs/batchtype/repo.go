package batchtype

import (
	"context"

	"batchline/internal/core/id"
	"batchline/internal/domain"
)

// Repository defines the interface for BatchType persistence.
type Repository interface {
	domain.CatalogRepository[*BatchType]

	// GetForUpdate retrieves batch type with row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*BatchType, error)

	// GetDefault retrieves the current default type, apperror.NotFound when unset.
	GetDefault(ctx context.Context) (*BatchType, error)

	// ClearDefault clears the default flag on all types (before setting new default).
	ClearDefault(ctx context.Context) error
}
