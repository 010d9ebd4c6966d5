package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/domain"
	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/storage/postgres"
)

var operationColumns = []string{
	"id", "number", "type", "branch_id", "reason", "operator", "meta", "created_at",
}

var entryColumns = []string{
	"id", "operation_id", "batch_id", "direction", "quantity", "remaining_after", "created_at",
}

func operationValues(op *ledger.Operation) []any {
	return []any{
		op.ID, op.Number, op.Type, op.BranchID, op.Reason, op.Operator, op.Meta, op.CreatedAt,
	}
}

func entryValues(e ledger.Entry) []any {
	return []any{
		e.ID, e.OperationID, e.BatchID, e.Direction, e.Quantity, e.RemainingAfter, e.CreatedAt,
	}
}

// CreateOperation inserts a journal header.
func (r *LedgerRepo) CreateOperation(ctx context.Context, op *ledger.Operation) error {
	q := r.builder.Insert(operationsTable).
		Columns(operationColumns...).
		Values(operationValues(op)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err, "operation")
	}
	return nil
}

// CreateEntries bulk inserts the operation's movements.
func (r *LedgerRepo) CreateEntries(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, entryValues(e))
		}
		if _, err := inserter.CopyFromSlice(ctx, entriesTable, entryColumns, rows); err != nil {
			return postgres.TranslateError(err, "entry")
		}
		return nil
	}

	q := r.builder.Insert(entriesTable).Columns(entryColumns...)
	for _, e := range entries {
		q = q.Values(entryValues(e)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err, "entry")
	}
	return nil
}

// GetOperation retrieves a journal header.
func (r *LedgerRepo) GetOperation(ctx context.Context, opID id.ID) (*ledger.Operation, error) {
	q := r.builder.Select(operationColumns...).From(operationsTable).
		Where(squirrel.Eq{"id": opID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var op ledger.Operation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &op, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("operation", opID.String())
		}
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return &op, nil
}

// ListOperations retrieves journal headers, newest first.
func (r *LedgerRepo) ListOperations(ctx context.Context, filter ledger.OperationFilter) (domain.ListResult[*ledger.Operation], error) {
	var result domain.ListResult[*ledger.Operation]

	q := applyOperationFilter(r.builder.Select(operationColumns...).From(operationsTable), filter)

	// Count total (before pagination)
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("created_at DESC", "id DESC")
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
		return result, fmt.Errorf("select operations: %w", err)
	}

	result.Limit = filter.Limit
	result.Offset = filter.Offset
	return result, nil
}

func applyOperationFilter(q squirrel.SelectBuilder, filter ledger.OperationFilter) squirrel.SelectBuilder {
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.BatchID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+entriesTable+" e WHERE e.operation_id = "+operationsTable+".id AND e.batch_id = ?)",
			*filter.BatchID,
		))
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return q
}

// ListEntriesByOperation returns an operation's movements in write order.
func (r *LedgerRepo) ListEntriesByOperation(ctx context.Context, opID id.ID) ([]ledger.Entry, error) {
	return r.listEntries(ctx, squirrel.Eq{"operation_id": opID})
}

// ListEntriesByBatch returns a batch's full movement history.
func (r *LedgerRepo) ListEntriesByBatch(ctx context.Context, batchID id.ID) ([]ledger.Entry, error) {
	return r.listEntries(ctx, squirrel.Eq{"batch_id": batchID})
}

func (r *LedgerRepo) listEntries(ctx context.Context, cond squirrel.Eq) ([]ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).From(entriesTable).
		Where(cond).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.Entry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

// CountEntriesByBatch counts a batch's movements.
func (r *LedgerRepo) CountEntriesByBatch(ctx context.Context, batchID id.ID) (int64, error) {
	q := r.builder.Select("COUNT(*)").From(entriesTable).
		Where(squirrel.Eq{"batch_id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
