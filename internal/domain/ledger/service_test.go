package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/types"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/catalogs/category"
	"batchline/internal/domain/catalogs/product"
	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/storage/memory"
	"batchline/pkg/numerator"
)

func q(s string) types.Quantity { return types.MustQuantity(s) }

type fixture struct {
	ctx        context.Context
	repo       *memory.LedgerRepo
	products   *memory.ProductRepo
	branches   *memory.BranchRepo
	batchTypes *memory.BatchTypeRepo
	schemas    *memory.SchemaMap
	store      *ledger.Store

	main    *branch.Branch
	south   *branch.Branch
	loose   *batchtype.BatchType
	coil    *batchtype.BatchType
	raw     *product.Product
	virtual *product.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:        context.Background(),
		repo:       memory.NewLedgerRepo(),
		products:   memory.NewProductRepo(),
		branches:   memory.NewBranchRepo(),
		batchTypes: memory.NewBatchTypeRepo(),
		schemas:    memory.NewSchemaMap(),
	}

	f.main = branch.NewBranch("BR-0001", "Central warehouse")
	f.south = branch.NewBranch("BR-0002", "South branch")
	require.NoError(t, f.branches.Create(f.ctx, f.main))
	require.NoError(t, f.branches.Create(f.ctx, f.south))

	f.loose = batchtype.NewBatchType("BT-0001", "Loose", true)
	f.loose.IsDefault = true
	f.coil = batchtype.NewBatchType("BT-0002", "Coil", true)
	require.NoError(t, f.batchTypes.Create(f.ctx, f.loose))
	require.NoError(t, f.batchTypes.Create(f.ctx, f.coil))

	f.raw = product.NewProduct("PRD-0001", "Aluminium sheet 0.45", "sqm")
	f.virtual = product.NewProduct("PRD-0002", "Standing seam panel", "sqm")
	f.virtual.IsVirtual = true
	require.NoError(t, f.products.Create(f.ctx, f.raw))
	require.NoError(t, f.products.Create(f.ctx, f.virtual))

	f.store = ledger.NewStore(ledger.StoreConfig{
		Repo:       f.repo,
		TxManager:  memory.NewTxManager(f.repo, f.products, f.branches, f.batchTypes),
		Validator:  attrschema.NewValidator(attrschema.ValidatorConfig{}),
		Schemas:    f.schemas,
		Products:   f.products,
		Branches:   f.branches,
		BatchTypes: f.batchTypes,
		Numerator:  &numerator.MockGenerator{},
	})
	return f
}

func (f *fixture) receipt(qty string) ledger.CreateBatchInput {
	return ledger.CreateBatchInput{
		ProductID:       f.raw.ID,
		BranchID:        f.main.ID,
		InitialQuantity: q(qty),
	}
}

func (f *fixture) aluminiumCategory(t *testing.T) *category.Category {
	t.Helper()
	cat := category.NewCategory("CT-0001", "Aluminium coils")
	f.schemas.Add(cat)
	return cat
}

func validAluminiumAttrs() entity.Attributes {
	return entity.Attributes{
		"weight_kg":   120.0,
		"gauge_mm":    0.45,
		"embossment":  "stucco",
		"color_code":  "RAL9010",
		"coil_number": "C-101",
	}
}

func TestCreateBatch_ReceiptWithJournal(t *testing.T) {
	f := newFixture(t)

	input := f.receipt("100")
	input.BatchIdentifier = "LOT-2024-01"
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusInStock, b.Status)
	assert.True(t, b.RemainingQuantity.Equal(q("100")))
	assert.True(t, b.InitialQuantity.Equal(q("100")))
	assert.Equal(t, f.loose.ID, b.BatchTypeID, "default batch type applied")
	assert.Nil(t, b.CategoryID)
	require.NotNil(t, b.BatchIdentifier)
	assert.Equal(t, "LOT-2024-01", *b.BatchIdentifier)

	typ := ledger.OpReceipt
	ops, err := f.store.ListOperations(f.ctx, ledger.OperationFilter{Type: &typ})
	require.NoError(t, err)
	require.Len(t, ops.Items, 1)
	assert.True(t, strings.HasPrefix(ops.Items[0].Number, "RCP-"))

	op, entries, err := f.store.GetOperation(f.ctx, ops.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.OpReceipt, op.Type)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.DirectionReceipt, entries[0].Direction)
	assert.Equal(t, b.ID, entries[0].BatchID)
	assert.True(t, entries[0].Quantity.Equal(q("100")))
	assert.True(t, entries[0].RemainingAfter.Equal(q("100")))
}

func TestCreateBatch_ExplicitBatchType(t *testing.T) {
	f := newFixture(t)

	input := f.receipt("10")
	input.BatchTypeID = &f.coil.ID
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)
	assert.Equal(t, f.coil.ID, b.BatchTypeID)
}

func TestCreateBatch_NoDefaultTypeConfigured(t *testing.T) {
	f := newFixture(t)
	f.loose.IsDefault = false
	require.NoError(t, f.batchTypes.Update(f.ctx, f.loose))

	_, err := f.store.CreateBatch(f.ctx, f.receipt("10"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Contains(t, err.Error(), "default batch type")
}

func TestCreateBatch_GroupedNeedsInstanceCode(t *testing.T) {
	f := newFixture(t)

	input := f.receipt("2500")
	input.Grouped = true
	_, err := f.store.CreateBatch(f.ctx, input)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeGroupedIdentifierRequired))

	input.InstanceCode = "C-2205"
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)
	require.NotNil(t, b.InstanceCode)
	assert.Equal(t, "C-2205", *b.InstanceCode)

	_, err = f.store.CreateBatch(f.ctx, input)
	require.Error(t, err, "instance codes are globally unique")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeGroupedIdentifierRequired, appErr.Code)
	assert.Equal(t, "C-2205", appErr.Details["instanceCode"])
}

func TestCreateBatch_VirtualProductRejected(t *testing.T) {
	f := newFixture(t)

	input := f.receipt("10")
	input.ProductID = f.virtual.ID
	_, err := f.store.CreateBatch(f.ctx, input)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Contains(t, err.Error(), "virtual")
}

func TestCreateBatch_BranchMustHoldStock(t *testing.T) {
	f := newFixture(t)
	closed := branch.NewBranch("BR-0003", "Closed outlet")
	closed.IsActive = false
	require.NoError(t, f.branches.Create(f.ctx, closed))

	input := f.receipt("10")
	input.BranchID = closed.ID
	_, err := f.store.CreateBatch(f.ctx, input)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreateBatch_CategoryFallsBackToProductDefault(t *testing.T) {
	f := newFixture(t)
	cat := f.aluminiumCategory(t)

	coils := product.NewProduct("PRD-0003", "Aluminium coil raw", "kg")
	coils.DefaultCategoryID = &cat.ID
	require.NoError(t, f.products.Create(f.ctx, coils))

	input := f.receipt("500")
	input.ProductID = coils.ID
	_, err := f.store.CreateBatch(f.ctx, input)
	require.Error(t, err, "default category schema applies when input names none")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidAttribute))

	input.AttributeData = validAluminiumAttrs()
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)
	require.NotNil(t, b.CategoryID)
	assert.Equal(t, cat.ID, *b.CategoryID)
}

func TestCreateBatch_ExplicitCategoryOverridesDefault(t *testing.T) {
	f := newFixture(t)
	alu := f.aluminiumCategory(t)
	general := category.NewCategory("CT-0002", "General hardware")
	f.schemas.Add(general)

	p := product.NewProduct("PRD-0004", "Aluminium coil raw", "kg")
	p.DefaultCategoryID = &alu.ID
	require.NoError(t, f.products.Create(f.ctx, p))

	input := f.receipt("500")
	input.ProductID = p.ID
	input.CategoryID = &general.ID
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err, "the general archetype accepts any attributes")
	require.NotNil(t, b.CategoryID)
	assert.Equal(t, general.ID, *b.CategoryID)
}

func TestCreateBatch_MergesAttributeDefaults(t *testing.T) {
	f := newFixture(t)

	p := product.NewProduct("PRD-0005", "Ridge tile", "pcs")
	p.AttributeDefaults = entity.Attributes{"supplier": "ACME", "grade": "A"}
	require.NoError(t, f.products.Create(f.ctx, p))

	input := f.receipt("40")
	input.ProductID = p.ID
	input.AttributeData = entity.Attributes{"grade": "B"}
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)

	assert.Equal(t, "ACME", b.AttributeData.GetString("supplier"))
	assert.Equal(t, "B", b.AttributeData.GetString("grade"), "submitted values win over defaults")
}

func TestCreateBatch_QuantityMustBePositive(t *testing.T) {
	f := newFixture(t)

	for _, qty := range []string{"0", "-5"} {
		_, err := f.store.CreateBatch(f.ctx, f.receipt(qty))
		require.Error(t, err, "quantity %s", qty)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	}
}

func TestImportBatches_CreatesSetUnderOneOperation(t *testing.T) {
	f := newFixture(t)

	grouped := f.receipt("2500")
	grouped.Grouped = true
	grouped.InstanceCode = "C-2206"
	batches, err := f.store.ImportBatches(f.ctx, []ledger.CreateBatchInput{f.receipt("100"), grouped})
	require.NoError(t, err)
	require.Len(t, batches, 2)

	typ := ledger.OpReceipt
	ops, err := f.store.ListOperations(f.ctx, ledger.OperationFilter{Type: &typ})
	require.NoError(t, err)
	require.Len(t, ops.Items, 1, "one operation covers the whole import")
	assert.EqualValues(t, 2, ops.Items[0].Meta.GetInt("import_count"))

	_, entries, err := f.store.GetOperation(f.ctx, ops.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestImportBatches_OneBadRowRejectsAll(t *testing.T) {
	f := newFixture(t)

	bad := f.receipt("10")
	bad.ProductID = f.virtual.ID
	_, err := f.store.ImportBatches(f.ctx, []ledger.CreateBatchInput{f.receipt("100"), bad, f.receipt("50")})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Details["row"])

	listed, err := f.store.ListBatches(f.ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, listed.Items, "failed import writes nothing")
}

func TestImportBatches_DuplicateCodesInsideSet(t *testing.T) {
	f := newFixture(t)

	a := f.receipt("2500")
	a.Grouped = true
	a.InstanceCode = "C-2210"
	b := f.receipt("1800")
	b.Grouped = true
	b.InstanceCode = "C-2210"
	_, err := f.store.ImportBatches(f.ctx, []ledger.CreateBatchInput{a, b})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeGroupedIdentifierRequired, appErr.Code)
	assert.Equal(t, 1, appErr.Details["row"])
	assert.Equal(t, 0, appErr.Details["firstRow"])
}

func TestImportBatches_EmptySet(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.ImportBatches(f.ctx, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestUpdateAttributes_ReplacesAndPersists(t *testing.T) {
	f := newFixture(t)
	input := f.receipt("100")
	input.AttributeData = entity.Attributes{"supplier": "ACME", "lot": "L1"}
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)

	updated, err := f.store.UpdateAttributes(f.ctx, b.ID, entity.Attributes{"supplier": "Recoil"})
	require.NoError(t, err)
	assert.Equal(t, "Recoil", updated.AttributeData.GetString("supplier"))
	assert.False(t, updated.AttributeData.Has("lot"), "replacement, not merge")

	fresh, err := f.store.GetBatch(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Recoil", fresh.AttributeData.GetString("supplier"))
}

func TestUpdateAttributes_ValidatesAgainstSchema(t *testing.T) {
	f := newFixture(t)
	cat := f.aluminiumCategory(t)

	input := f.receipt("100")
	input.CategoryID = &cat.ID
	input.AttributeData = validAluminiumAttrs()
	b, err := f.store.CreateBatch(f.ctx, input)
	require.NoError(t, err)

	_, err = f.store.UpdateAttributes(f.ctx, b.ID, entity.Attributes{"weight_kg": 120.0})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidAttribute))

	fresh, err := f.store.GetBatch(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "C-101", fresh.AttributeData.GetString("coil_number"), "rejected update leaves attributes intact")
}

func TestUpdateAttributes_ScrappedIsTerminal(t *testing.T) {
	f := newFixture(t)
	b, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)

	held, err := f.repo.GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	held.Status = ledger.StatusScrapped
	held.RemainingQuantity = types.ZeroQuantity()
	require.NoError(t, f.repo.UpdateBatch(f.ctx, held))

	_, err = f.store.UpdateAttributes(f.ctx, b.ID, entity.Attributes{"note": "late edit"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
}

func TestDeleteBatch_UntouchedReceiptOnly(t *testing.T) {
	f := newFixture(t)
	b, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteBatch(f.ctx, b.ID))
	_, err = f.store.GetBatch(f.ctx, b.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteBatch_TouchedBatchKeepsHistory(t *testing.T) {
	f := newFixture(t)
	b, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)

	held, err := f.repo.GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	held.ApplyDeduction(q("30"))
	require.NoError(t, f.repo.UpdateBatch(f.ctx, held))

	err = f.store.DeleteBatch(f.ctx, b.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
}

func TestDeleteBatch_ExtraJournalRowsBlock(t *testing.T) {
	f := newFixture(t)
	b, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)

	op := ledger.NewOperation(ledger.OpAdjustment, "ADJ-2026-000001", "tester")
	require.NoError(t, f.repo.CreateOperation(f.ctx, op))
	extra := ledger.NewEntry(op.ID, b.ID, ledger.DirectionReceipt, q("0"), b.RemainingQuantity)
	require.NoError(t, f.repo.CreateEntries(f.ctx, []ledger.Entry{extra}))

	err = f.store.DeleteBatch(f.ctx, b.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnsupportedOperation))
}

func TestDeleteBatch_NonReceiptOriginBlocked(t *testing.T) {
	f := newFixture(t)

	// A split output carries full remaining, but its creating operation
	// is the split, and that history must survive.
	b := ledger.NewBatch(f.raw.ID, f.main.ID, f.loose.ID, q("40"))
	code := "PNL-900"
	b.Grouped = true
	b.InstanceCode = &code
	require.NoError(t, f.repo.CreateBatch(f.ctx, b))
	op := ledger.NewOperation(ledger.OpSplit, "SPL-2026-000001", "tester")
	require.NoError(t, f.repo.CreateOperation(f.ctx, op))
	entry := ledger.NewEntry(op.ID, b.ID, ledger.DirectionReceipt, q("40"), q("40"))
	require.NoError(t, f.repo.CreateEntries(f.ctx, []ledger.Entry{entry}))

	err := f.store.DeleteBatch(f.ctx, b.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnsupportedOperation, appErr.Code)
	assert.Equal(t, string(ledger.OpSplit), appErr.Details["createdBy"])
}

func TestAvailability_SumsInStockRemaining(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)
	second, err := f.store.CreateBatch(f.ctx, f.receipt("50"))
	require.NoError(t, err)
	southInput := f.receipt("30")
	southInput.BranchID = f.south.ID
	_, err = f.store.CreateBatch(f.ctx, southInput)
	require.NoError(t, err)

	total, err := f.store.Availability(f.ctx, f.raw.ID, nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(q("180")))

	atMain, err := f.store.Availability(f.ctx, f.raw.ID, &f.main.ID)
	require.NoError(t, err)
	assert.True(t, atMain.Equal(q("150")))

	held, err := f.repo.GetByID(f.ctx, second.ID)
	require.NoError(t, err)
	held.ApplyDeduction(held.RemainingQuantity)
	require.NoError(t, f.repo.UpdateBatch(f.ctx, held))

	total, err = f.store.Availability(f.ctx, f.raw.ID, nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(q("130")), "depleted batches do not count")
}

func TestBatchHistory_RequiresExistingBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.BatchHistory(f.ctx, f.raw.ID)
	assert.True(t, apperror.IsNotFound(err))

	b, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)
	history, err := f.store.BatchHistory(f.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.DirectionReceipt, history[0].Direction)
}

func TestListBatches_Filters(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateBatch(f.ctx, f.receipt("100"))
	require.NoError(t, err)
	grouped := f.receipt("2500")
	grouped.Grouped = true
	grouped.InstanceCode = "C-7401"
	_, err = f.store.CreateBatch(f.ctx, grouped)
	require.NoError(t, err)

	isGrouped := true
	res, err := f.store.ListBatches(f.ctx, ledger.Filter{Grouped: &isGrouped})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].Grouped)

	res, err = f.store.ListBatches(f.ctx, ledger.Filter{Search: "7401"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	res, err = f.store.ListBatches(f.ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalCount)
}
