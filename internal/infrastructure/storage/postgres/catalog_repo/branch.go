package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/infrastructure/storage/postgres"
)

const branchTable = "cat_branches"

// BranchRepo implements branch.Repository.
type BranchRepo struct {
	*Base[*branch.Branch]
}

// NewBranchRepo creates a new branch repository.
func NewBranchRepo(txm *postgres.TxManager) *BranchRepo {
	return &BranchRepo{
		Base: NewBase[*branch.Branch](
			txm,
			branchTable,
			postgres.ExtractDBColumns[branch.Branch](),
			func() *branch.Branch { return &branch.Branch{} },
		),
	}
}

// ClearDefault clears the default flag on all branches.
func (r *BranchRepo) ClearDefault(ctx context.Context) error {
	q := r.Builder().
		Update(branchTable).
		Set("is_default", false).
		Where(squirrel.Eq{"is_default": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}

	return nil
}

var _ branch.Repository = (*BranchRepo)(nil)
