package ledger

import (
	"context"
	"time"

	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain"
)

// Filter narrows batch listings.
type Filter struct {
	ProductID   *id.ID
	BranchID    *id.ID
	CategoryID  *id.ID
	BatchTypeID *id.ID
	Status      *Status
	Grouped     *bool

	// Search matches instance_code and batch_identifier
	Search string

	// OrderBy defaults to creation order
	OrderBy string
	Limit   int
	Offset  int
}

// OperationFilter narrows journal listings.
type OperationFilter struct {
	Type     *OperationType
	BranchID *id.ID
	BatchID  *id.ID
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines persistence for batches and the operation journal.
// Locking reads and version-guarded writes implement the concurrency
// contract: the caller locks, re-checks invariants, writes, commits.
type Repository interface {
	// --- batch writes ---

	// CreateBatch inserts a new batch.
	CreateBatch(ctx context.Context, b *Batch) error

	// CreateBatches bulk inserts (used by import and split).
	CreateBatches(ctx context.Context, batches []*Batch) error

	// UpdateBatch writes a batch guarded by its version; a stale version
	// surfaces as ConcurrentModification.
	UpdateBatch(ctx context.Context, b *Batch) error

	// DeleteBatch hard deletes. The service guards: only untouched
	// receipt batches qualify.
	DeleteBatch(ctx context.Context, batchID id.ID) error

	// --- batch reads ---

	// GetByID retrieves a batch.
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetByIDForUpdate retrieves a batch with a row lock.
	GetByIDForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// LockMany locks and returns all given batches in one statement,
	// in ascending id order so concurrent multi-row operations cannot
	// deadlock each other. Missing ids surface as NotFound.
	LockMany(ctx context.Context, batchIDs []id.ID) ([]*Batch, error)

	// List retrieves batches with filtering and pagination.
	List(ctx context.Context, filter Filter) (domain.ListResult[*Batch], error)

	// ListCandidates returns allocation candidates: in_stock batches of
	// the product with remaining quantity above zero, in creation order
	// (created_at, then id). Nil branch means branch-agnostic.
	ListCandidates(ctx context.Context, productID id.ID, branchID *id.ID) ([]*Batch, error)

	// SumAvailability totals remaining quantity of in_stock batches.
	SumAvailability(ctx context.Context, productID id.ID, branchID *id.ID) (types.Quantity, error)

	// InstanceCodeExists checks global instance-code uniqueness.
	InstanceCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error)

	// --- journal ---

	// CreateOperation inserts an operation header.
	CreateOperation(ctx context.Context, op *Operation) error

	// CreateEntries inserts the operation's movements.
	CreateEntries(ctx context.Context, entries []Entry) error

	// GetOperation retrieves an operation header.
	GetOperation(ctx context.Context, opID id.ID) (*Operation, error)

	// ListOperations retrieves journal headers with filtering.
	ListOperations(ctx context.Context, filter OperationFilter) (domain.ListResult[*Operation], error)

	// ListEntriesByOperation returns an operation's movements.
	ListEntriesByOperation(ctx context.Context, opID id.ID) ([]Entry, error)

	// ListEntriesByBatch returns a batch's full movement history.
	ListEntriesByBatch(ctx context.Context, batchID id.ID) ([]Entry, error)

	// CountEntriesByBatch counts a batch's movements (the delete guard:
	// exactly one means only the creation receipt).
	CountEntriesByBatch(ctx context.Context, batchID id.ID) (int64, error)
}
