// Package memory provides in-memory implementations of the storage
// contracts: the ledger repository, the catalog repositories and a
// transaction manager with snapshot rollback. Package tests run the
// full service stack against it; nothing here talks to a database.
package memory

import (
	"context"

	"batchline/internal/core/tx"
)

// Snapshotter captures and restores a store's full state. The memory
// TxManager snapshots every registered store before the outermost
// transaction function and restores on error, so rollback semantics in
// tests match the real thing.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

type txKey struct{}

// TxManager implements tx.Manager and tx.ReadOnlyManager over the
// registered stores. Single-process only.
type TxManager struct {
	stores []Snapshotter
}

// NewTxManager creates a manager rolling back the given stores.
func NewTxManager(stores ...Snapshotter) *TxManager {
	return &TxManager{stores: stores}
}

// RunInTransaction executes fn, restoring every registered store when fn
// fails. Nested calls join the outer transaction: only the outermost
// failure restores.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	snapshots := make([]any, len(m.stores))
	for i, s := range m.stores {
		snapshots[i] = s.Snapshot()
	}

	err := fn(context.WithValue(ctx, txKey{}, struct{}{}))
	if err != nil {
		for i, s := range m.stores {
			s.Restore(snapshots[i])
		}
	}
	return err
}

// ReadOnly executes fn without snapshotting. Writes are not rejected;
// the memory store trusts its callers.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)
