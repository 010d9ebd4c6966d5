package mutation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/domain/ledger"
)

func TestScrap_WritesOffRemaining(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "40")

	scrapped, err := f.svc.Scrap(f.ctx, ScrapInput{BatchID: b.ID, Reason: "water damage"})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusScrapped, scrapped.Status)
	assert.True(t, scrapped.RemainingQuantity.IsZero())
	assert.True(t, scrapped.InitialQuantity.Equal(q("40")))

	ops := f.operations(t, ledger.OpScrap)
	require.Len(t, ops, 1)
	assert.True(t, strings.HasPrefix(ops[0].Number, "SCR-"))
	assert.Equal(t, "water damage", ops[0].Reason)

	entries := f.entriesOf(t, ops[0].ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.DirectionExpense, entries[0].Direction)
	assert.True(t, entries[0].Quantity.Equal(q("40")))
	assert.True(t, entries[0].RemainingAfter.IsZero())
}

func TestScrap_DepletedBatchRecordsNoMovement(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")
	f.deplete(t, b.ID)

	scrapped, err := f.svc.Scrap(f.ctx, ScrapInput{BatchID: b.ID, Reason: "administrative close"})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusScrapped, scrapped.Status)

	ops := f.operations(t, ledger.OpScrap)
	require.Len(t, ops, 1)
	assert.Empty(t, f.entriesOf(t, ops[0].ID), "nothing was held, nothing moves")
}

func TestScrap_IsTerminal(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	_, err := f.svc.Scrap(f.ctx, ScrapInput{BatchID: b.ID, Reason: "expired"})
	require.NoError(t, err)

	_, err = f.svc.Scrap(f.ctx, ScrapInput{BatchID: b.ID, Reason: "expired again"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))

	_, err = f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustIncrease,
		Quantity:  q("5"),
		Reason:    "found more",
	})
	require.Error(t, err, "scrapped batches cannot be revived")
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))

	_, err = f.svc.Transfer(f.ctx, TransferInput{
		BatchID:             b.ID,
		DestinationBranchID: f.branchB.ID,
		Quantity:            q("5"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
}

func TestScrap_RequiresReason(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	_, err := f.svc.Scrap(f.ctx, ScrapInput{BatchID: b.ID, Reason: "   "})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.True(t, f.get(t, b.ID).RemainingQuantity.Equal(q("10")))
}

func TestScrap_UnknownBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Scrap(f.ctx, ScrapInput{BatchID: f.rawProduct, Reason: "cleanup"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
