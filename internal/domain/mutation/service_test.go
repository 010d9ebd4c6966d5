package mutation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/storage/memory"
	"batchline/pkg/numerator"
)

func q(s string) types.Quantity { return types.MustQuantity(s) }

// fixture runs the mutation service against the in-memory stores, so
// every test exercises the real transactional path including rollback.
type fixture struct {
	ctx context.Context

	repo       *memory.LedgerRepo
	branches   *memory.BranchRepo
	batchTypes *memory.BatchTypeRepo
	schemas    *memory.SchemaMap

	svc *Service

	branchA *branch.Branch
	branchB *branch.Branch
	loose   *batchtype.BatchType // splittable
	coil    *batchtype.BatchType // not splittable

	rawProduct id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		ctx:        ctx,
		repo:       memory.NewLedgerRepo(),
		branches:   memory.NewBranchRepo(),
		batchTypes: memory.NewBatchTypeRepo(),
		schemas:    memory.NewSchemaMap(),
		rawProduct: id.New(),
	}

	f.branchA = branch.NewBranch("BR-0001", "Central warehouse")
	f.branchB = branch.NewBranch("BR-0002", "South branch")
	require.NoError(t, f.branches.Create(ctx, f.branchA))
	require.NoError(t, f.branches.Create(ctx, f.branchB))

	f.loose = batchtype.NewBatchType("BT-0001", "Loose", true)
	f.coil = batchtype.NewBatchType("BT-0002", "Coil", false)
	require.NoError(t, f.batchTypes.Create(ctx, f.loose))
	require.NoError(t, f.batchTypes.Create(ctx, f.coil))

	f.svc = NewService(Config{
		Repo:       f.repo,
		TxManager:  memory.NewTxManager(f.repo, f.branches, f.batchTypes),
		Branches:   f.branches,
		BatchTypes: f.batchTypes,
		Validator:  attrschema.NewValidator(attrschema.ValidatorConfig{}),
		Schemas:    f.schemas,
		Numerator:  &numerator.MockGenerator{},
	})
	return f
}

// seed inserts an in-stock batch with its receipt journal, the way the
// ledger store would have created it.
func (f *fixture) seed(t *testing.T, quantity string, mut ...func(*ledger.Batch)) *ledger.Batch {
	t.Helper()

	b := ledger.NewBatch(f.rawProduct, f.branchA.ID, f.loose.ID, q(quantity))
	for _, m := range mut {
		m(b)
	}
	require.NoError(t, f.repo.CreateBatch(f.ctx, b))

	op := ledger.NewOperation(ledger.OpReceipt, "RCP-SEED-000001", "tester")
	op.BranchID = &b.BranchID
	require.NoError(t, f.repo.CreateOperation(f.ctx, op))
	if b.RemainingQuantity.IsPositive() {
		entry := ledger.NewEntry(op.ID, b.ID, ledger.DirectionReceipt, b.InitialQuantity, b.RemainingQuantity)
		require.NoError(t, f.repo.CreateEntries(f.ctx, []ledger.Entry{entry}))
	}
	return b
}

func (f *fixture) get(t *testing.T, batchID id.ID) *ledger.Batch {
	t.Helper()
	b, err := f.repo.GetByID(f.ctx, batchID)
	require.NoError(t, err)
	return b
}

// deplete drains a batch to zero through the repository, as a committed
// allocation would have.
func (f *fixture) deplete(t *testing.T, batchID id.ID) *ledger.Batch {
	t.Helper()
	b := f.get(t, batchID)
	b.ApplyDeduction(b.RemainingQuantity)
	require.NoError(t, f.repo.UpdateBatch(f.ctx, b))
	return f.get(t, batchID)
}

func (f *fixture) operations(t *testing.T, opType ledger.OperationType) []*ledger.Operation {
	t.Helper()
	res, err := f.repo.ListOperations(f.ctx, ledger.OperationFilter{Type: &opType})
	require.NoError(t, err)
	return res.Items
}

func (f *fixture) entriesOf(t *testing.T, opID id.ID) []ledger.Entry {
	t.Helper()
	entries, err := f.repo.ListEntriesByOperation(f.ctx, opID)
	require.NoError(t, err)
	return entries
}

func asGrouped(code string) func(*ledger.Batch) {
	return func(b *ledger.Batch) {
		b.Grouped = true
		b.InstanceCode = &code
	}
}

func withType(typeID id.ID) func(*ledger.Batch) {
	return func(b *ledger.Batch) { b.BatchTypeID = typeID }
}
