package recipe

import (
	"context"

	"batchline/internal/core/id"
	"batchline/internal/domain"
)

// Repository defines the interface for Recipe persistence.
type Repository interface {
	domain.CatalogRepository[*Recipe]

	// ListByVirtualProduct returns recipes manufacturing the given product,
	// in creation order. activeOnly drops inactive ones.
	ListByVirtualProduct(ctx context.Context, virtualProductID id.ID, activeOnly bool) ([]*Recipe, error)
}
