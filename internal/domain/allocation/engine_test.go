package allocation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/ledger"
	"batchline/internal/domain/recipe"
)

type stubCandidates struct {
	batches []*ledger.Batch
	err     error

	gotProduct id.ID
	gotBranch  *id.ID
}

func (s *stubCandidates) ListCandidates(ctx context.Context, productID id.ID, branchID *id.ID) ([]*ledger.Batch, error) {
	s.gotProduct = productID
	s.gotBranch = branchID
	return s.batches, s.err
}

type stubRecipes struct {
	recipe *recipe.Recipe
	err    error
}

func (s *stubRecipes) Resolve(ctx context.Context, virtualProductID id.ID, recipeID *id.ID) (*recipe.Recipe, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.recipe, nil
}

type engineFixture struct {
	raw    id.ID
	virt   id.ID
	branch id.ID
	btype  id.ID

	candidates *stubCandidates
	recipes    *stubRecipes
	engine     *Engine
}

func newEngineFixture(t *testing.T, factor string, remaining ...string) *engineFixture {
	t.Helper()
	f := &engineFixture{
		raw:    id.New(),
		virt:   id.New(),
		branch: id.New(),
		btype:  id.New(),
	}

	batches := make([]*ledger.Batch, 0, len(remaining))
	for _, q := range remaining {
		batches = append(batches, ledger.NewBatch(f.raw, f.branch, f.btype, types.MustQuantity(q)))
	}
	f.candidates = &stubCandidates{batches: batches}
	f.recipes = &stubRecipes{
		recipe: recipe.NewRecipe("BOM-0001", "Standing seam panel", f.virt, f.raw, types.MustQuantity(factor)),
	}
	f.engine = NewEngine(f.candidates, f.recipes, PolicyCreationOrder)
	return f
}

func (f *engineFixture) batch(i int) *ledger.Batch {
	return f.candidates.batches[i]
}

func TestPropose_CoversAcrossBatchesInCreationOrder(t *testing.T) {
	// factor 2.0, output 10 -> required 20; batches hold 15 and 10
	f := newEngineFixture(t, "2.0", "15", "10")

	p, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("10"),
	})
	require.NoError(t, err)

	assert.True(t, p.RequiredQuantity.Equal(types.MustQuantity("20")), "required = %s", p.RequiredQuantity)
	assert.True(t, p.SelectedTotal.Equal(types.MustQuantity("20")), "selected = %s", p.SelectedTotal)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, f.batch(0).ID, p.Lines[0].BatchID)
	assert.True(t, p.Lines[0].QuantityDeducted.Equal(types.MustQuantity("15")))
	assert.Equal(t, f.batch(1).ID, p.Lines[1].BatchID)
	assert.True(t, p.Lines[1].QuantityDeducted.Equal(types.MustQuantity("5")))

	assert.Equal(t, f.recipes.recipe.ID, p.RecipeID)
	assert.Equal(t, "BOM-0001", p.RecipeCode)
	assert.Equal(t, f.raw, p.RawProductID)
	assert.Equal(t, PolicyCreationOrder, p.Policy)
	assert.Equal(t, f.raw, f.candidates.gotProduct, "candidates queried for the raw product")
}

func TestPropose_SingleBatchCovers(t *testing.T) {
	f := newEngineFixture(t, "1.5", "100")

	p, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("8"),
	})
	require.NoError(t, err)

	require.Len(t, p.Lines, 1)
	assert.True(t, p.Lines[0].QuantityDeducted.Equal(types.MustQuantity("12")))
	assert.True(t, p.SelectedTotal.Equal(types.MustQuantity("12")))
}

func TestPropose_InsufficientStockCarriesShortfall(t *testing.T) {
	// required 30, available only 25
	f := newEngineFixture(t, "3.0", "15", "10")

	_, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("10"),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, f.raw.String(), appErr.Details["productId"])

	shortfall, ok := appErr.Details["shortfall"].(types.Quantity)
	require.True(t, ok)
	assert.True(t, shortfall.Equal(types.MustQuantity("5")), "shortfall = %s", shortfall)
}

func TestPropose_NoCandidates(t *testing.T) {
	f := newEngineFixture(t, "2.0")

	_, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("1"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
}

func TestPropose_LargestFirstStableTieBreak(t *testing.T) {
	// creation order: 5, 20, 20. Largest-first must pick the older of
	// the two equal batches first.
	f := newEngineFixture(t, "1.0", "5", "20", "20")

	p, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("25"),
		Policy:           PolicyLargestFirst,
	})
	require.NoError(t, err)

	require.Len(t, p.Lines, 2)
	assert.Equal(t, f.batch(1).ID, p.Lines[0].BatchID)
	assert.True(t, p.Lines[0].QuantityDeducted.Equal(types.MustQuantity("20")))
	assert.Equal(t, f.batch(2).ID, p.Lines[1].BatchID)
	assert.True(t, p.Lines[1].QuantityDeducted.Equal(types.MustQuantity("5")))
	assert.Equal(t, PolicyLargestFirst, p.Policy)
}

func TestPropose_PolicyFallsBackToEngineDefault(t *testing.T) {
	f := newEngineFixture(t, "1.0", "5", "20")
	f.engine = NewEngine(f.candidates, f.recipes, PolicyLargestFirst)

	p, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("10"),
	})
	require.NoError(t, err)

	assert.Equal(t, PolicyLargestFirst, p.Policy)
	require.Len(t, p.Lines, 1)
	assert.Equal(t, f.batch(1).ID, p.Lines[0].BatchID)
}

func TestPropose_InvalidDefaultPolicyBecomesCreationOrder(t *testing.T) {
	f := newEngineFixture(t, "1.0", "5", "20")
	f.engine = NewEngine(f.candidates, f.recipes, SelectionPolicy("bogus"))

	p, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, PolicyCreationOrder, p.Policy)
	assert.Equal(t, f.batch(0).ID, p.Lines[0].BatchID)
}

func TestPropose_ToleranceAbsorbsConversionNoise(t *testing.T) {
	// required = 10 * 2.00005 = 20.0005; stock holds exactly 20.
	// Within the comparison tolerance the proposal is accepted and the
	// requirement itself stays unrounded.
	f := newEngineFixture(t, "2.00005", "20")

	p, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("10"),
	})
	require.NoError(t, err)

	assert.True(t, p.RequiredQuantity.Equal(types.MustQuantity("20.0005")), "required = %s", p.RequiredQuantity)
	assert.True(t, p.SelectedTotal.Equal(types.MustQuantity("20")), "selected = %s", p.SelectedTotal)
}

func TestPropose_BeyondToleranceFails(t *testing.T) {
	// required 20.002 against stock of 20 is short beyond tolerance
	f := newEngineFixture(t, "2.0002", "20")

	_, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("10"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
}

func TestPropose_OutputQuantityMustBePositive(t *testing.T) {
	f := newEngineFixture(t, "2.0", "10")

	for _, qty := range []string{"0", "-1"} {
		_, err := f.engine.Propose(context.Background(), ProposeInput{
			VirtualProductID: f.virt,
			OutputQuantity:   types.MustQuantity(qty),
		})
		require.Error(t, err, "quantity %s", qty)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	}
}

func TestPropose_RecipeErrorPassesThrough(t *testing.T) {
	f := newEngineFixture(t, "2.0", "10")
	f.recipes.err = apperror.NewNotFound("recipe", f.virt.String())

	_, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("1"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPropose_BranchNarrowsCandidates(t *testing.T) {
	f := newEngineFixture(t, "1.0", "10")
	branchID := id.New()

	_, err := f.engine.Propose(context.Background(), ProposeInput{
		VirtualProductID: f.virt,
		OutputQuantity:   types.MustQuantity("5"),
		BranchID:         &branchID,
	})
	require.NoError(t, err)
	require.NotNil(t, f.candidates.gotBranch)
	assert.Equal(t, branchID, *f.candidates.gotBranch)
}

func TestSelectGreedy_SkipsNothingWhenCovered(t *testing.T) {
	raw, branch, btype := id.New(), id.New(), id.New()
	candidates := []*ledger.Batch{
		ledger.NewBatch(raw, branch, btype, types.MustQuantity("30")),
		ledger.NewBatch(raw, branch, btype, types.MustQuantity("30")),
	}

	lines, selected := selectGreedy(candidates, types.MustQuantity("30"))
	require.Len(t, lines, 1, "second batch must not be touched")
	assert.True(t, selected.Equal(types.MustQuantity("30")))
}
