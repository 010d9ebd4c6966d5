package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/catalogs/category"
	"batchline/internal/domain/ledger"
)

func TestTransfer_WholeBatchMovesInPlace(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	res, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("10"),
	})
	require.NoError(t, err)

	assert.Nil(t, res.Created, "whole move creates no batch")
	assert.Equal(t, f.branchB.ID, res.Source.BranchID)
	assert.True(t, res.Source.RemainingQuantity.Equal(q("10")))

	fresh := f.get(t, b.ID)
	assert.Equal(t, f.branchB.ID, fresh.BranchID)
	assert.Equal(t, 2, fresh.Version)

	ops := f.operations(t, ledger.OpTransfer)
	require.Len(t, ops, 1)
	assert.Equal(t, true, ops[0].Meta["whole"])
	assert.Empty(t, f.entriesOf(t, ops[0].ID), "no quantity moved, no journal entries")
}

func TestTransfer_GroupedMovesWhole(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "2500", asGrouped("C-2207"))

	res, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("2500"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	require.NotNil(t, res.Source.InstanceCode)
	assert.Equal(t, "C-2207", *res.Source.InstanceCode)
	assert.Equal(t, f.branchB.ID, res.Source.BranchID)
}

func TestTransfer_PartialCreatesDestinationBatch(t *testing.T) {
	f := newFixture(t)
	ident := "LOT-77"
	b := f.seed(t, "100", func(b *ledger.Batch) {
		b.BatchIdentifier = &ident
		b.AttributeData = entity.Attributes{"supplier": "ACME"}
	})

	res, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("30"),
	})
	require.NoError(t, err)

	assert.True(t, res.Source.RemainingQuantity.Equal(q("70")))
	assert.Equal(t, f.branchA.ID, res.Source.BranchID)
	assert.Equal(t, ledger.StatusInStock, res.Source.Status)

	created := res.Created
	require.NotNil(t, created)
	assert.Equal(t, f.branchB.ID, created.BranchID)
	assert.Equal(t, b.ProductID, created.ProductID)
	assert.Equal(t, b.BatchTypeID, created.BatchTypeID)
	assert.True(t, created.InitialQuantity.Equal(q("30")))
	assert.True(t, created.RemainingQuantity.Equal(q("30")))
	require.NotNil(t, created.BatchIdentifier)
	assert.Equal(t, "LOT-77", *created.BatchIdentifier)
	assert.Equal(t, "ACME", created.AttributeData.GetString("supplier"))

	ops := f.operations(t, ledger.OpTransfer)
	require.Len(t, ops, 1)
	entries := f.entriesOf(t, ops[0].ID)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.DirectionExpense, entries[0].Direction)
	assert.Equal(t, b.ID, entries[0].BatchID)
	assert.True(t, entries[0].RemainingAfter.Equal(q("70")))
	assert.Equal(t, ledger.DirectionReceipt, entries[1].Direction)
	assert.Equal(t, created.ID, entries[1].BatchID)
	assert.True(t, entries[1].RemainingAfter.Equal(q("30")))
}

func TestTransfer_PartialOfGroupedRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "2500", asGrouped("C-2208"))

	_, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("1000"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
	assert.True(t, f.get(t, b.ID).RemainingQuantity.Equal(q("2500")))
}

func TestTransfer_ExceedsRemainingFails(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "100")

	_, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("150"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeQuantityExceedsAvailable))
}

func TestTransfer_WithinToleranceIsWholeMove(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	// Requested a hair over remaining: inside tolerance this is the
	// whole batch, so the row moves and no quantity is invented.
	res, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("10.0005"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	assert.True(t, res.Source.RemainingQuantity.Equal(q("10")))
	assert.Equal(t, f.branchB.ID, res.Source.BranchID)
}

func TestTransfer_PartialRevalidatesAttributes(t *testing.T) {
	f := newFixture(t)
	cat := category.NewCategory("CT-0001", "Aluminium coils")
	f.schemas.Add(cat)

	good := f.seed(t, "100", func(b *ledger.Batch) {
		b.CategoryID = &cat.ID
		b.AttributeData = entity.Attributes{
			"weight_kg":   50.0,
			"gauge_mm":    0.45,
			"embossment":  "stucco",
			"color_code":  "RAL9010",
			"coil_number": "C-301",
		}
	})
	res, err := f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             good.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("40"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.Equal(t, &cat.ID, res.Created.CategoryID)

	// A row that predates the schema fails the re-validation instead of
	// spreading malformed attributes to a new batch.
	bad := f.seed(t, "100", func(b *ledger.Batch) {
		b.CategoryID = &cat.ID
		b.AttributeData = entity.Attributes{"weight_kg": 50.0}
	})
	_, err = f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             bad.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("40"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidAttribute))
}

func TestTransfer_RejectsBadTargets(t *testing.T) {
	f := newFixture(t)
	closed := branch.NewBranch("BR-0003", "Closed outlet")
	closed.IsActive = false
	require.NoError(t, f.branches.Create(f.ctx, closed))

	b := f.seed(t, "10")

	t.Run("same branch", func(t *testing.T) {
		_, err := f.svc.Transfer(f.ctx, TransferInput{
			BatchID:             b.ID,
			DestinationBranchID: f.branchA.ID,
			Quantity:            q("10"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("inactive branch", func(t *testing.T) {
		_, err := f.svc.Transfer(f.ctx, TransferInput{
			BatchID:             b.ID,
			DestinationBranchID: closed.ID,
			Quantity:            q("10"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("unknown branch", func(t *testing.T) {
		_, err := f.svc.Transfer(f.ctx, TransferInput{
			BatchID:             b.ID,
			DestinationBranchID: f.rawProduct, // no branch with this id
			Quantity:            q("10"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("depleted batch", func(t *testing.T) {
		d := f.seed(t, "5")
		f.deplete(t, d.ID)
		_, err := f.svc.Transfer(f.ctx, TransferInput{
			BatchID:             d.ID,
			DestinationBranchID: f.branchB.ID,
			Quantity:            q("5"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
	})
}
