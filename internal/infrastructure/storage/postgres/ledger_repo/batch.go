// Package ledger_repo provides the PostgreSQL implementation of the
// batch ledger repository: batch rows, the operation journal, and the
// locking reads the mutation services build on.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain"
	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/storage/postgres"
)

const (
	batchesTable    = "reg_batches"
	operationsTable = "doc_operations"
	entriesTable    = "reg_ledger_entries"
)

// batchColumns lists reg_batches columns in struct field order. Insert
// rows are built in the same order by batchValues.
var batchColumns = []string{
	"id", "product_id", "branch_id", "category_id", "batch_type_id",
	"grouped", "instance_code", "batch_identifier",
	"initial_quantity", "remaining_quantity", "status", "attribute_data",
	"version", "created_at", "updated_at",
}

var batchForUpdateSQL = fmt.Sprintf(`
	SELECT %s
	FROM reg_batches
	WHERE id = $1
	FOR UPDATE
`, strings.Join(batchColumns, ", "))

// lockManySQL locks in ascending id order so concurrent multi-batch
// operations acquire row locks in the same sequence and cannot deadlock
// each other.
var lockManySQL = fmt.Sprintf(`
	SELECT %s
	FROM reg_batches
	WHERE id = ANY($1)
	ORDER BY id
	FOR UPDATE
`, strings.Join(batchColumns, ", "))

// LedgerRepo implements ledger.Repository. Mutating calls are expected
// to run inside a TxManager transaction; reads outside one fall back to
// the pool.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates the PostgreSQL ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func batchValues(b *ledger.Batch) []any {
	return []any{
		b.ID, b.ProductID, b.BranchID, b.CategoryID, b.BatchTypeID,
		b.Grouped, b.InstanceCode, b.BatchIdentifier,
		b.InitialQuantity, b.RemainingQuantity, b.Status, b.AttributeData,
		b.Version, b.CreatedAt, b.UpdatedAt,
	}
}

// CreateBatch inserts a single batch.
func (r *LedgerRepo) CreateBatch(ctx context.Context, b *ledger.Batch) error {
	q := r.builder.Insert(batchesTable).
		Columns(batchColumns...).
		Values(batchValues(b)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err, "batch")
	}
	return nil
}

// CreateBatches bulk inserts batches.
func (r *LedgerRepo) CreateBatches(ctx context.Context, batches []*ledger.Batch) error {
	if len(batches) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(batches))
		for _, b := range batches {
			rows = append(rows, batchValues(b))
		}
		if _, err := inserter.CopyFromSlice(ctx, batchesTable, batchColumns, rows); err != nil {
			return postgres.TranslateError(err, "batch")
		}
		return nil
	}

	// Fallback: non-transactional insert (slower). Prefer calling CreateBatches within tx.
	q := r.builder.Insert(batchesTable).Columns(batchColumns...)
	for _, b := range batches {
		q = q.Values(batchValues(b)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err, "batch")
	}
	return nil
}

// UpdateBatch writes every mutable column guarded by the stored version.
// On success the caller's version is bumped in step with the store.
func (r *LedgerRepo) UpdateBatch(ctx context.Context, b *ledger.Batch) error {
	q := r.builder.Update(batchesTable).
		Set("product_id", b.ProductID).
		Set("branch_id", b.BranchID).
		Set("category_id", b.CategoryID).
		Set("batch_type_id", b.BatchTypeID).
		Set("grouped", b.Grouped).
		Set("instance_code", b.InstanceCode).
		Set("batch_identifier", b.BatchIdentifier).
		Set("initial_quantity", b.InitialQuantity).
		Set("remaining_quantity", b.RemainingQuantity).
		Set("status", b.Status).
		Set("attribute_data", b.AttributeData).
		Set("updated_at", b.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": b.ID}).
		Where(squirrel.Eq{"version": b.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(err, "batch")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("batch", b.ID.String())
	}

	b.Version++
	return nil
}

// DeleteBatch hard deletes a batch row. The creation entry goes with it
// through the FK cascade; the service guards that nothing else exists.
func (r *LedgerRepo) DeleteBatch(ctx context.Context, batchID id.ID) error {
	q := r.builder.Delete(batchesTable).Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(err, "batch")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

// GetByID retrieves a batch.
func (r *LedgerRepo) GetByID(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	q := r.builder.Select(batchColumns...).From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b ledger.Batch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// GetByIDForUpdate retrieves a batch with a row lock.
func (r *LedgerRepo) GetByIDForUpdate(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	var b ledger.Batch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, batchForUpdateSQL, batchID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, postgres.TranslateError(err, "batch")
	}
	return &b, nil
}

// LockMany locks and returns the given batches in one statement, in
// ascending id order. Missing ids surface as NotFound.
func (r *LedgerRepo) LockMany(ctx context.Context, batchIDs []id.ID) ([]*ledger.Batch, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}

	var batches []*ledger.Batch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &batches, lockManySQL, batchIDs); err != nil {
		return nil, postgres.TranslateError(err, "batch")
	}

	locked := make(map[id.ID]struct{}, len(batches))
	for _, b := range batches {
		locked[b.ID] = struct{}{}
	}
	for _, batchID := range batchIDs {
		if _, ok := locked[batchID]; !ok {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
	}
	return batches, nil
}

// List retrieves batches with filtering and pagination.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.Filter) (domain.ListResult[*ledger.Batch], error) {
	var result domain.ListResult[*ledger.Batch]

	q := applyBatchFilter(r.builder.Select(batchColumns...).From(batchesTable), filter)

	// Count total (before pagination)
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	order, err := parseBatchOrder(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(order...)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select batches: %w", err)
	}

	result.Limit = filter.Limit
	result.Offset = filter.Offset
	return result, nil
}

// ListCandidates returns allocation candidates in creation order.
func (r *LedgerRepo) ListCandidates(ctx context.Context, productID id.ID, branchID *id.ID) ([]*ledger.Batch, error) {
	q := r.candidatesQuery(productID, branchID)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*ledger.Batch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	return batches, nil
}

func (r *LedgerRepo) candidatesQuery(productID id.ID, branchID *id.ID) squirrel.SelectBuilder {
	q := r.builder.Select(batchColumns...).From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"status": ledger.StatusInStock}).
		Where(squirrel.Gt{"remaining_quantity": 0})
	if branchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *branchID})
	}
	return q.OrderBy("created_at", "id")
}

// SumAvailability totals remaining quantity of in_stock batches.
func (r *LedgerRepo) SumAvailability(ctx context.Context, productID id.ID, branchID *id.ID) (types.Quantity, error) {
	args := []any{productID, ledger.StatusInStock}
	conditions := "product_id = $1 AND status = $2"
	if branchID != nil {
		conditions += " AND branch_id = $3"
		args = append(args, *branchID)
	}

	sql := fmt.Sprintf(`
		SELECT COALESCE(SUM(remaining_quantity), 0)
		FROM reg_batches
		WHERE %s
	`, conditions)

	var total types.Quantity
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, args...).Scan(&total)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return types.ZeroQuantity(), fmt.Errorf("sum availability: %w", err)
	}
	return total, nil
}

// InstanceCodeExists checks global instance-code uniqueness, across all
// branches and statuses.
func (r *LedgerRepo) InstanceCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error) {
	q := r.builder.Select("1").From(batchesTable).
		Where(squirrel.Eq{"instance_code": code}).
		Limit(1)
	if excludeID != nil {
		q = q.Where(squirrel.NotEq{"id": *excludeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check instance code: %w", err)
	}
	return true, nil
}

func applyBatchFilter(q squirrel.SelectBuilder, filter ledger.Filter) squirrel.SelectBuilder {
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.CategoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *filter.CategoryID})
	}
	if filter.BatchTypeID != nil {
		q = q.Where(squirrel.Eq{"batch_type_id": *filter.BatchTypeID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Grouped != nil {
		q = q.Where(squirrel.Eq{"grouped": *filter.Grouped})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"instance_code": pattern},
			squirrel.ILike{"batch_identifier": pattern},
		})
	}
	return q
}

var batchOrderColumns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(batchColumns))
	for _, col := range batchColumns {
		m[col] = struct{}{}
	}
	return m
}()

// parseBatchOrder validates a client-supplied sort field against the
// column list. Empty means creation order; "-field" sorts descending.
// The id tie-break keeps pagination stable.
func parseBatchOrder(orderBy string) ([]string, error) {
	field := strings.TrimSpace(orderBy)
	if field == "" {
		return []string{"created_at ASC", "id ASC"}, nil
	}

	direction := "ASC"
	if strings.HasPrefix(field, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(field, "-")
	} else if strings.HasPrefix(field, "+") {
		field = strings.TrimPrefix(field, "+")
	}

	field = strings.TrimSpace(field)
	if _, ok := batchOrderColumns[field]; !ok {
		return nil, apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}
	return []string{field + " " + direction, "id ASC"}, nil
}
