package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/core/types"
	"batchline/internal/domain/ledger"
)

func TestAdjust_IncreaseLiftsInitial(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	updated, err := f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustIncrease,
		Quantity:  q("5"),
		Reason:    "recount found more",
	})
	require.NoError(t, err)

	assert.True(t, updated.RemainingQuantity.Equal(q("15")))
	assert.True(t, updated.InitialQuantity.Equal(q("15")), "initial follows remaining upward")
	assert.Equal(t, ledger.StatusInStock, updated.Status)

	ops := f.operations(t, ledger.OpAdjustment)
	require.Len(t, ops, 1)
	assert.Equal(t, "recount found more", ops[0].Reason)
	assert.Equal(t, string(AdjustIncrease), ops[0].Meta.GetString("direction"))

	entries := f.entriesOf(t, ops[0].ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.DirectionReceipt, entries[0].Direction)
	assert.True(t, entries[0].Quantity.Equal(q("5")))
	assert.True(t, entries[0].RemainingAfter.Equal(q("15")))
}

func TestAdjust_IncreaseRevivesDepleted(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")
	depleted := f.deplete(t, b.ID)
	require.Equal(t, ledger.StatusDepleted, depleted.Status)

	updated, err := f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustIncrease,
		Quantity:  q("3"),
		Reason:    "found misplaced stock",
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusInStock, updated.Status)
	assert.True(t, updated.RemainingQuantity.Equal(q("3")))
	assert.True(t, updated.InitialQuantity.Equal(q("10")), "initial unchanged while remaining stays below it")
}

func TestAdjust_DecreasePartial(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	updated, err := f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustDecrease,
		Quantity:  q("4"),
		Reason:    "damaged edge trimmed",
	})
	require.NoError(t, err)

	assert.True(t, updated.RemainingQuantity.Equal(q("6")))
	assert.Equal(t, ledger.StatusInStock, updated.Status)

	ops := f.operations(t, ledger.OpAdjustment)
	require.Len(t, ops, 1)
	entries := f.entriesOf(t, ops[0].ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.DirectionExpense, entries[0].Direction)
	assert.True(t, entries[0].Quantity.Equal(q("4")))
}

func TestAdjust_DecreaseToZeroFlipsDepleted(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	updated, err := f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustDecrease,
		Quantity:  q("10"),
		Reason:    "write-off after recount",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDepleted, updated.Status)
	assert.True(t, updated.RemainingQuantity.IsZero())
}

func TestAdjust_DecreaseBeyondRemainingFails(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "3")

	_, err := f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustDecrease,
		Quantity:  q("5"),
		Reason:    "recount",
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityExceedsAvailable, appErr.Code)
	requested, ok := appErr.Details["requested"].(types.Quantity)
	require.True(t, ok)
	assert.True(t, requested.Equal(q("5")))
	available, ok := appErr.Details["available"].(types.Quantity)
	require.True(t, ok)
	assert.True(t, available.Equal(q("3")))

	assert.True(t, f.get(t, b.ID).RemainingQuantity.Equal(q("3")), "batch unchanged on failure")
	assert.Empty(t, f.operations(t, ledger.OpAdjustment))
}

func TestAdjust_DecreaseWithinToleranceClamps(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "5.0005")

	updated, err := f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustDecrease,
		Quantity:  q("5.001"),
		Reason:    "recount to zero",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDepleted, updated.Status)
	assert.True(t, updated.RemainingQuantity.IsZero())
}

func TestAdjust_ScrappedRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")
	_, err := f.svc.Scrap(f.ctx, ScrapInput{BatchID: b.ID, Reason: "water damage"})
	require.NoError(t, err)

	_, err = f.svc.Adjust(f.ctx, AdjustInput{
		BatchID:   b.ID,
		Direction: AdjustIncrease,
		Quantity:  q("1"),
		Reason:    "recount",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
}

func TestAdjust_InputValidation(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	tests := []struct {
		name  string
		input AdjustInput
	}{
		{"missing reason", AdjustInput{BatchID: b.ID, Direction: AdjustDecrease, Quantity: q("1")}},
		{"unknown direction", AdjustInput{BatchID: b.ID, Direction: "sideways", Quantity: q("1"), Reason: "r"}},
		{"zero quantity", AdjustInput{BatchID: b.ID, Direction: AdjustIncrease, Quantity: q("0"), Reason: "r"}},
		{"negative quantity", AdjustInput{BatchID: b.ID, Direction: AdjustIncrease, Quantity: q("-2"), Reason: "r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Adjust(f.ctx, tt.input)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}
