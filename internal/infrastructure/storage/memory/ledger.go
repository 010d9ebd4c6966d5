package memory

import (
	"bytes"
	"sort"
	"strings"
	"sync"

	"context"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain"
	"batchline/internal/domain/ledger"
)

// LedgerRepo is the in-memory ledger.Repository. Batches keep honest
// version guards and creation order; the journal is append-only.
type LedgerRepo struct {
	// UpdateBatchHook, when set, runs before every UpdateBatch and can
	// fail it. Tests use it to force mid-transaction errors.
	UpdateBatchHook func(b *ledger.Batch) error

	mu      sync.RWMutex
	batches map[id.ID]*ledger.Batch
	order   []id.ID
	ops     map[id.ID]*ledger.Operation
	opOrder []id.ID
	entries []ledger.Entry
}

// NewLedgerRepo creates an empty ledger repository.
func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{
		batches: make(map[id.ID]*ledger.Batch),
		ops:     make(map[id.ID]*ledger.Operation),
	}
}

// CreateBatch implements ledger.Repository.
func (r *LedgerRepo) CreateBatch(ctx context.Context, b *ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertBatch(b)
}

// CreateBatches implements ledger.Repository.
func (r *LedgerRepo) CreateBatches(ctx context.Context, batches []*ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range batches {
		if err := r.insertBatch(b); err != nil {
			return err
		}
	}
	return nil
}

func (r *LedgerRepo) insertBatch(b *ledger.Batch) error {
	if _, exists := r.batches[b.ID]; exists {
		return apperror.NewDuplicate("batch", "id", b.ID.String())
	}
	if b.Grouped && b.InstanceCode != nil {
		if r.instanceCodeTaken(*b.InstanceCode, &b.ID) {
			return apperror.NewDuplicate("batch", "instance_code", *b.InstanceCode)
		}
	}
	r.batches[b.ID] = b.Clone()
	r.order = append(r.order, b.ID)
	return nil
}

// UpdateBatch implements ledger.Repository. The stored version must
// match the caller's; on success the caller's version is bumped in step
// with the store.
func (r *LedgerRepo) UpdateBatch(ctx context.Context, b *ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.batches[b.ID]
	if !ok {
		return apperror.NewNotFound("batch", b.ID.String())
	}
	if stored.Version != b.Version {
		return apperror.NewConcurrentModification("batch", b.ID.String())
	}
	if r.UpdateBatchHook != nil {
		if err := r.UpdateBatchHook(b); err != nil {
			return err
		}
	}
	b.Version++
	r.batches[b.ID] = b.Clone()
	return nil
}

// DeleteBatch implements ledger.Repository.
func (r *LedgerRepo) DeleteBatch(ctx context.Context, batchID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[batchID]; !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	delete(r.batches, batchID)
	for i, v := range r.order {
		if v == batchID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetByID implements ledger.Repository.
func (r *LedgerRepo) GetByID(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	return b.Clone(), nil
}

// GetByIDForUpdate implements ledger.Repository. The memory store has
// no row locks; it returns the current state.
func (r *LedgerRepo) GetByIDForUpdate(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	return r.GetByID(ctx, batchID)
}

// LockMany implements ledger.Repository, returning batches in ascending
// id order like the SQL implementation.
func (r *LedgerRepo) LockMany(ctx context.Context, batchIDs []id.ID) ([]*ledger.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := append([]id.ID(nil), batchIDs...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	out := make([]*ledger.Batch, 0, len(sorted))
	for _, batchID := range sorted {
		b, ok := r.batches[batchID]
		if !ok {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

// List implements ledger.Repository.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.Filter) (domain.ListResult[*ledger.Batch], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*ledger.Batch, 0, len(r.order))
	for _, batchID := range r.order {
		b := r.batches[batchID]
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		if filter.BranchID != nil && b.BranchID != *filter.BranchID {
			continue
		}
		if filter.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.BatchTypeID != nil && b.BatchTypeID != *filter.BatchTypeID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.Grouped != nil && b.Grouped != *filter.Grouped {
			continue
		}
		if search != "" && !matchesSearch(b, search) {
			continue
		}
		matched = append(matched, b)
	}

	total := int64(len(matched))
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}

	items := make([]*ledger.Batch, 0, end-offset)
	for _, b := range matched[offset:end] {
		items = append(items, b.Clone())
	}
	return domain.ListResult[*ledger.Batch]{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func matchesSearch(b *ledger.Batch, search string) bool {
	if b.InstanceCode != nil && strings.Contains(strings.ToLower(*b.InstanceCode), search) {
		return true
	}
	if b.BatchIdentifier != nil && strings.Contains(strings.ToLower(*b.BatchIdentifier), search) {
		return true
	}
	return false
}

// ListCandidates implements ledger.Repository: in-stock batches of the
// product holding quantity, in creation order.
func (r *LedgerRepo) ListCandidates(ctx context.Context, productID id.ID, branchID *id.ID) ([]*ledger.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ledger.Batch
	for _, batchID := range r.order {
		b := r.batches[batchID]
		if b.ProductID != productID || b.Status != ledger.StatusInStock {
			continue
		}
		if !b.RemainingQuantity.IsPositive() {
			continue
		}
		if branchID != nil && b.BranchID != *branchID {
			continue
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

// SumAvailability implements ledger.Repository.
func (r *LedgerRepo) SumAvailability(ctx context.Context, productID id.ID, branchID *id.ID) (types.Quantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := types.ZeroQuantity()
	for _, b := range r.batches {
		if b.ProductID != productID || b.Status != ledger.StatusInStock {
			continue
		}
		if branchID != nil && b.BranchID != *branchID {
			continue
		}
		total = total.Add(b.RemainingQuantity)
	}
	return total, nil
}

// InstanceCodeExists implements ledger.Repository.
func (r *LedgerRepo) InstanceCodeExists(ctx context.Context, code string, excludeID *id.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instanceCodeTaken(code, excludeID), nil
}

func (r *LedgerRepo) instanceCodeTaken(code string, excludeID *id.ID) bool {
	for _, b := range r.batches {
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if b.InstanceCode != nil && *b.InstanceCode == code {
			return true
		}
	}
	return false
}

// CreateOperation implements ledger.Repository.
func (r *LedgerRepo) CreateOperation(ctx context.Context, op *ledger.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.ID]; exists {
		return apperror.NewDuplicate("operation", "id", op.ID.String())
	}
	r.ops[op.ID] = op.Clone()
	r.opOrder = append(r.opOrder, op.ID)
	return nil
}

// CreateEntries implements ledger.Repository.
func (r *LedgerRepo) CreateEntries(ctx context.Context, entries []ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

// GetOperation implements ledger.Repository.
func (r *LedgerRepo) GetOperation(ctx context.Context, opID id.ID) (*ledger.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[opID]
	if !ok {
		return nil, apperror.NewNotFound("operation", opID.String())
	}
	return op.Clone(), nil
}

// ListOperations implements ledger.Repository, newest first.
func (r *LedgerRepo) ListOperations(ctx context.Context, filter ledger.OperationFilter) (domain.ListResult[*ledger.Operation], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var batchOps map[id.ID]struct{}
	if filter.BatchID != nil {
		batchOps = make(map[id.ID]struct{})
		for _, e := range r.entries {
			if e.BatchID == *filter.BatchID {
				batchOps[e.OperationID] = struct{}{}
			}
		}
	}

	matched := make([]*ledger.Operation, 0, len(r.opOrder))
	for i := len(r.opOrder) - 1; i >= 0; i-- {
		op := r.ops[r.opOrder[i]]
		if filter.Type != nil && op.Type != *filter.Type {
			continue
		}
		if filter.BranchID != nil && (op.BranchID == nil || *op.BranchID != *filter.BranchID) {
			continue
		}
		if batchOps != nil {
			if _, ok := batchOps[op.ID]; !ok {
				continue
			}
		}
		if filter.FromDate != nil && op.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && op.CreatedAt.After(*filter.ToDate) {
			continue
		}
		matched = append(matched, op)
	}

	total := int64(len(matched))
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}

	items := make([]*ledger.Operation, 0, end-offset)
	for _, op := range matched[offset:end] {
		items = append(items, op.Clone())
	}
	return domain.ListResult[*ledger.Operation]{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// ListEntriesByOperation implements ledger.Repository.
func (r *LedgerRepo) ListEntriesByOperation(ctx context.Context, opID id.ID) ([]ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range r.entries {
		if e.OperationID == opID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListEntriesByBatch implements ledger.Repository.
func (r *LedgerRepo) ListEntriesByBatch(ctx context.Context, batchID id.ID) ([]ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range r.entries {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

// CountEntriesByBatch implements ledger.Repository.
func (r *LedgerRepo) CountEntriesByBatch(ctx context.Context, batchID id.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, e := range r.entries {
		if e.BatchID == batchID {
			n++
		}
	}
	return n, nil
}

type ledgerSnapshot struct {
	batches map[id.ID]*ledger.Batch
	order   []id.ID
	ops     map[id.ID]*ledger.Operation
	opOrder []id.ID
	entries []ledger.Entry
}

// Snapshot implements Snapshotter.
func (r *LedgerRepo) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := ledgerSnapshot{
		batches: make(map[id.ID]*ledger.Batch, len(r.batches)),
		order:   append([]id.ID(nil), r.order...),
		ops:     make(map[id.ID]*ledger.Operation, len(r.ops)),
		opOrder: append([]id.ID(nil), r.opOrder...),
		entries: append([]ledger.Entry(nil), r.entries...),
	}
	for k, v := range r.batches {
		snap.batches[k] = v.Clone()
	}
	for k, v := range r.ops {
		snap.ops[k] = v.Clone()
	}
	return snap
}

// Restore implements Snapshotter.
func (r *LedgerRepo) Restore(snapshot any) {
	snap := snapshot.(ledgerSnapshot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = snap.batches
	r.order = snap.order
	r.ops = snap.ops
	r.opOrder = snap.opOrder
	r.entries = snap.entries
}

var _ ledger.Repository = (*LedgerRepo)(nil)
