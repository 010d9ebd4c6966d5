package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/infrastructure/storage/postgres"
)

const batchTypeTable = "cat_batch_types"

// BatchTypeRepo implements batchtype.Repository.
type BatchTypeRepo struct {
	*Base[*batchtype.BatchType]
}

// NewBatchTypeRepo creates a new batch type repository.
func NewBatchTypeRepo(txm *postgres.TxManager) *BatchTypeRepo {
	return &BatchTypeRepo{
		Base: NewBase[*batchtype.BatchType](
			txm,
			batchTypeTable,
			postgres.ExtractDBColumns[batchtype.BatchType](),
			func() *batchtype.BatchType { return &batchtype.BatchType{} },
		),
	}
}

// GetDefault retrieves the current default batch type.
func (r *BatchTypeRepo) GetDefault(ctx context.Context) (*batchtype.BatchType, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"is_default": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// ClearDefault clears the default flag on all batch types.
func (r *BatchTypeRepo) ClearDefault(ctx context.Context) error {
	q := r.Builder().
		Update(batchTypeTable).
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

var _ batchtype.Repository = (*BatchTypeRepo)(nil)
