package mutation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/allocation"
	"batchline/internal/domain/ledger"
)

func line(b *ledger.Batch, qty string) allocation.Line {
	return allocation.Line{BatchID: b.ID, InstanceCode: b.InstanceCode, QuantityDeducted: q(qty)}
}

func (f *fixture) proposal(lines ...allocation.Line) *allocation.Proposal {
	total := types.ZeroQuantity()
	for _, l := range lines {
		total = total.Add(l.QuantityDeducted)
	}
	return &allocation.Proposal{
		RecipeID:         id.New(),
		RecipeCode:       "BOM-0001",
		VirtualProductID: id.New(),
		RawProductID:     f.rawProduct,
		OutputQuantity:   total,
		ConversionFactor: q("1"),
		RequiredQuantity: total,
		SelectedTotal:    total,
		Lines:            lines,
		Policy:           allocation.PolicyCreationOrder,
	}
}

func TestCommitAllocation_AppliesAllLines(t *testing.T) {
	f := newFixture(t)
	b1 := f.seed(t, "15")
	b2 := f.seed(t, "10")

	receipts, err := f.svc.CommitAllocation(f.ctx, f.proposal(line(b1, "15"), line(b2, "5")))
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	assert.True(t, strings.HasPrefix(receipts[0].OperationNumber, "ALO-"))
	assert.Equal(t, b1.ID, receipts[0].BatchID)
	assert.True(t, receipts[0].QuantityDeducted.Equal(q("15")))
	assert.True(t, receipts[0].RemainingAfter.IsZero())
	assert.Equal(t, b2.ID, receipts[1].BatchID)
	assert.True(t, receipts[1].QuantityDeducted.Equal(q("5")))
	assert.True(t, receipts[1].RemainingAfter.Equal(q("5")))

	fresh1 := f.get(t, b1.ID)
	assert.Equal(t, ledger.StatusDepleted, fresh1.Status)
	assert.True(t, fresh1.RemainingQuantity.IsZero())
	fresh2 := f.get(t, b2.ID)
	assert.Equal(t, ledger.StatusInStock, fresh2.Status)
	assert.True(t, fresh2.RemainingQuantity.Equal(q("5")))

	ops := f.operations(t, ledger.OpAllocation)
	require.Len(t, ops, 1)
	assert.Equal(t, "BOM-0001", ops[0].Meta.GetString("recipe_code"))

	entries := f.entriesOf(t, ops[0].ID)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ledger.DirectionExpense, e.Direction)
	}
}

func TestCommitAllocation_RejectsStaleProposal(t *testing.T) {
	f := newFixture(t)
	b1 := f.seed(t, "15")
	b2 := f.seed(t, "10")
	p := f.proposal(line(b1, "15"), line(b2, "5"))

	// Another allocation shrinks b1 between propose and commit.
	shrunk := f.get(t, b1.ID)
	shrunk.ApplyDeduction(q("12"))
	require.NoError(t, f.repo.UpdateBatch(f.ctx, shrunk))

	_, err := f.svc.CommitAllocation(f.ctx, p)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, b1.ID.String(), appErr.Details["batchId"])

	// Nothing moved: b1 keeps its concurrent state, b2 is untouched,
	// and no allocation reached the journal.
	assert.True(t, f.get(t, b1.ID).RemainingQuantity.Equal(q("3")))
	assert.True(t, f.get(t, b2.ID).RemainingQuantity.Equal(q("10")))
	assert.Empty(t, f.operations(t, ledger.OpAllocation))
}

func TestCommitAllocation_RejectsDepletedCandidate(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")
	f.deplete(t, b.ID)

	_, err := f.svc.CommitAllocation(f.ctx, f.proposal(line(b, "5")))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, string(ledger.StatusDepleted), appErr.Details["status"])
}

func TestCommitAllocation_RollsBackMidwayFailure(t *testing.T) {
	f := newFixture(t)
	b1 := f.seed(t, "10")
	b2 := f.seed(t, "10")
	b3 := f.seed(t, "10")

	// Fail the second row write after the first one landed.
	var updates int
	f.repo.UpdateBatchHook = func(b *ledger.Batch) error {
		updates++
		if updates == 2 {
			return apperror.NewConcurrentModification("batch", b.ID.String())
		}
		return nil
	}

	_, err := f.svc.CommitAllocation(f.ctx, f.proposal(line(b1, "2"), line(b2, "2"), line(b3, "2")))
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))

	f.repo.UpdateBatchHook = nil
	for _, b := range []*ledger.Batch{b1, b2, b3} {
		fresh := f.get(t, b.ID)
		assert.True(t, fresh.RemainingQuantity.Equal(q("10")), "batch %s must be restored", b.ID)
		assert.Equal(t, 1, fresh.Version)
	}
	assert.Empty(t, f.operations(t, ledger.OpAllocation))
}

func TestCommitAllocation_ClampsWithinTolerance(t *testing.T) {
	f := newFixture(t)
	// The proposal line overshoots the row by half the tolerance; the
	// commit deducts what the row actually holds and depletes it.
	b := f.seed(t, "19.9995")

	receipts, err := f.svc.CommitAllocation(f.ctx, f.proposal(line(b, "20")))
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.True(t, receipts[0].QuantityDeducted.Equal(q("19.9995")))

	fresh := f.get(t, b.ID)
	assert.Equal(t, ledger.StatusDepleted, fresh.Status)
	assert.True(t, fresh.RemainingQuantity.IsZero())
}

func TestCommitAllocation_ProposalValidation(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "10")

	tests := []struct {
		name string
		p    *allocation.Proposal
	}{
		{"nil proposal", nil},
		{"no lines", f.proposal()},
		{"non-positive quantity", f.proposal(line(b, "0"))},
		{"duplicate batch", f.proposal(line(b, "2"), line(b, "3"))},
		{"nil batch id", f.proposal(allocation.Line{QuantityDeducted: q("1")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CommitAllocation(f.ctx, tt.p)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestCommitAllocation_UnknownBatch(t *testing.T) {
	f := newFixture(t)
	ghost := ledger.NewBatch(f.rawProduct, f.branchA.ID, f.loose.ID, q("5"))

	_, err := f.svc.CommitAllocation(f.ctx, f.proposal(line(ghost, "5")))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
