package catalog_repo

import (
	"context"
	"fmt"

	"batchline/internal/core/id"
	"batchline/internal/domain/catalogs/category"
	"batchline/internal/infrastructure/cache"
	"batchline/internal/infrastructure/storage/postgres"
)

const categoryTable = "cat_categories"

// CategoryRepo implements category.Repository. Every write notifies the
// categories channel so schema caches across instances reload; inside a
// transaction the notification is delivered at commit.
type CategoryRepo struct {
	*Base[*category.Category]
}

// NewCategoryRepo creates a new category repository.
func NewCategoryRepo(txm *postgres.TxManager) *CategoryRepo {
	return &CategoryRepo{
		Base: NewBase[*category.Category](
			txm,
			categoryTable,
			postgres.ExtractDBColumns[category.Category](),
			func() *category.Category { return &category.Category{} },
		),
	}
}

// Create inserts the category and notifies listeners.
func (r *CategoryRepo) Create(ctx context.Context, c *category.Category) error {
	if err := r.Base.Create(ctx, c); err != nil {
		return err
	}
	return r.notify(ctx, c.ID)
}

// Update modifies the category and notifies listeners.
func (r *CategoryRepo) Update(ctx context.Context, c *category.Category) error {
	if err := r.Base.Update(ctx, c); err != nil {
		return err
	}
	return r.notify(ctx, c.ID)
}

// SetDeletionMark marks the category and notifies listeners.
func (r *CategoryRepo) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	if err := r.Base.SetDeletionMark(ctx, entityID, marked); err != nil {
		return err
	}
	return r.notify(ctx, entityID)
}

func (r *CategoryRepo) notify(ctx context.Context, categoryID id.ID) error {
	querier := r.txm.GetQuerier(ctx)
	_, err := querier.Exec(ctx, "SELECT pg_notify($1, $2)", cache.CategoriesChannel, categoryID.String())
	if err != nil {
		return fmt.Errorf("notify category change: %w", err)
	}
	return nil
}

var _ category.Repository = (*CategoryRepo)(nil)
