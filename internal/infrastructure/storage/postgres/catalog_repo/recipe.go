package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"batchline/internal/core/id"
	"batchline/internal/domain/recipe"
	"batchline/internal/infrastructure/storage/postgres"
)

const recipeTable = "cat_recipes"

// RecipeRepo implements recipe.Repository.
type RecipeRepo struct {
	*Base[*recipe.Recipe]
}

// NewRecipeRepo creates a new recipe repository.
func NewRecipeRepo(txm *postgres.TxManager) *RecipeRepo {
	return &RecipeRepo{
		Base: NewBase[*recipe.Recipe](
			txm,
			recipeTable,
			postgres.ExtractDBColumns[recipe.Recipe](),
			func() *recipe.Recipe { return &recipe.Recipe{} },
		),
	}
}

// ListByVirtualProduct returns recipes manufacturing the given product,
// in creation order.
func (r *RecipeRepo) ListByVirtualProduct(ctx context.Context, virtualProductID id.ID, activeOnly bool) ([]*recipe.Recipe, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"virtual_product_id": virtualProductID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("created_at", "id")

	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recipes []*recipe.Recipe
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &recipes, sql, args...); err != nil {
		return nil, fmt.Errorf("list by virtual product: %w", err)
	}

	return recipes, nil
}

var _ recipe.Repository = (*RecipeRepo)(nil)
