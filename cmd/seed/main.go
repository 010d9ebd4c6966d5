// Package main provides a CLI tool for seeding the database with demo
// master data and opening stock. Everything goes through the regular
// services so attribute validation, numbering and journaling run exactly
// as they do for API traffic.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"batchline/internal/core/apperror"
	appctx "batchline/internal/core/context"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/catalogs/category"
	"batchline/internal/domain/catalogs/product"
	"batchline/internal/domain/ledger"
	"batchline/internal/domain/recipe"
	"batchline/internal/infrastructure/cache"
	"batchline/internal/infrastructure/config"
	"batchline/internal/infrastructure/storage/postgres"
	"batchline/internal/infrastructure/storage/postgres/catalog_repo"
	"batchline/internal/infrastructure/storage/postgres/ledger_repo"
	"batchline/pkg/logger"
	"batchline/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithOperator(ctx, &appctx.OperatorContext{
		Subject: "seed",
		Name:    "seed",
		Source:  appctx.OperatorSourceSystem,
	})

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	numbers := numerator.New(pool)

	branchRepo := catalog_repo.NewBranchRepo(txManager)
	categoryRepo := catalog_repo.NewCategoryRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	batchTypeRepo := catalog_repo.NewBatchTypeRepo(txManager)
	recipeRepo := catalog_repo.NewRecipeRepo(txManager)
	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)

	validator := attrschema.NewValidator(attrschema.ValidatorConfig{
		GaugeLookup: func(ctx context.Context, schema attrschema.Schema) (bool, error) {
			return !cfg.GaugeDisabled(schema.Code), nil
		},
	})

	branches := branch.NewService(branchRepo, txManager, numbers)
	categories := category.NewService(categoryRepo, txManager, numbers, validator)
	products := product.NewService(productRepo, txManager, numbers)
	batchTypes := batchtype.NewService(batchTypeRepo, txManager, numbers)
	recipes := recipe.NewService(recipeRepo, productRepo, txManager, numbers)

	// Read-through lookups work without the listener; a one-shot tool
	// has no cache to keep fresh.
	schemas := cache.NewCategoryCache(pool.Unwrap())

	store := ledger.NewStore(ledger.StoreConfig{
		Repo:       ledgerRepo,
		TxManager:  txManager,
		Validator:  validator,
		Schemas:    schemas,
		Products:   productRepo,
		Branches:   branchRepo,
		BatchTypes: batchTypeRepo,
		Numerator:  numbers,
	})

	branchIDs, err := seedBranches(ctx, branches, log)
	if err != nil {
		log.Fatalw("failed to seed branches", "error", err)
	}

	categoryIDs, err := seedCategories(ctx, categories, log)
	if err != nil {
		log.Fatalw("failed to seed categories", "error", err)
	}

	typeIDs, err := seedBatchTypes(ctx, batchTypes, log)
	if err != nil {
		log.Fatalw("failed to seed batch types", "error", err)
	}

	productIDs, err := seedProducts(ctx, products, categoryIDs, log)
	if err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}

	if err := seedRecipes(ctx, recipes, productIDs, log); err != nil {
		log.Fatalw("failed to seed recipes", "error", err)
	}

	if err := seedOpeningStock(ctx, store, branchIDs, typeIDs, productIDs, log); err != nil {
		log.Fatalw("failed to seed opening stock", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedBranches(ctx context.Context, svc *branch.Service, log *logger.Logger) (map[string]id.ID, error) {
	ids := make(map[string]id.ID)

	for _, def := range []struct {
		code, name string
	}{
		{"HQ", "Headquarters"},
		{"WESTGATE", "Westgate"},
	} {
		existing, err := svc.GetByCode(ctx, def.code)
		if err == nil {
			ids[def.code] = existing.ID
			continue
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}

		b := branch.NewBranch(def.code, def.name)
		if err := svc.Create(ctx, b); err != nil {
			return nil, err
		}
		log.Infow("created branch", "code", def.code, "name", def.name)
		ids[def.code] = b.ID
	}

	return ids, nil
}

func seedCategories(ctx context.Context, svc *category.Service, log *logger.Logger) (map[string]id.ID, error) {
	ids := make(map[string]id.ID)

	for _, def := range []struct {
		code, name string
		rules      category.RuleList
	}{
		// The archetype is resolved from the name at create time.
		{"ALUM-COIL", "Aluminium Coils", category.RuleList{`attrs.weight_kg <= 5000.0`}},
		{"CER-TILE", "Ceramic Tiles", nil},
		{"ACC", "Accessories", nil},
	} {
		existing, err := svc.GetByCode(ctx, def.code)
		if err == nil {
			ids[def.code] = existing.ID
			continue
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}

		c := category.NewCategory(def.code, def.name)
		c.ExtraRules = def.rules
		if err := svc.Create(ctx, c); err != nil {
			return nil, err
		}
		log.Infow("created category", "code", def.code, "archetype", c.Archetype)
		ids[def.code] = c.ID
	}

	return ids, nil
}

func seedBatchTypes(ctx context.Context, svc *batchtype.Service, log *logger.Logger) (map[string]id.ID, error) {
	ids := make(map[string]id.ID)

	for _, def := range []struct {
		code, name string
		canSplit   bool
		isDefault  bool
	}{
		{"COIL", "Coil", true, false},
		{"LOOSE", "Loose", false, true},
		{"PALLET", "Pallet", false, false},
		{"CARTON", "Carton", false, false},
	} {
		existing, err := svc.GetByCode(ctx, def.code)
		if err == nil {
			ids[def.code] = existing.ID
			continue
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}

		bt := batchtype.NewBatchType(def.code, def.name, def.canSplit)
		bt.IsDefault = def.isDefault
		if err := svc.Create(ctx, bt); err != nil {
			return nil, err
		}
		log.Infow("created batch type", "code", def.code, "canSplit", def.canSplit)
		ids[def.code] = bt.ID
	}

	return ids, nil
}

func seedProducts(ctx context.Context, svc *product.Service, categoryIDs map[string]id.ID, log *logger.Logger) (map[string]id.ID, error) {
	ids := make(map[string]id.ID)

	for _, def := range []struct {
		code, name, unit string
		categoryCode     string
		virtual          bool
		defaults         entity.Attributes
	}{
		{code: "ALU-COIL-045", name: "Aluminium Coil 0.45mm", unit: "kg", categoryCode: "ALUM-COIL",
			defaults: entity.Attributes{"embossment": "stucco"}},
		{code: "TILE-3030", name: "Ceramic Tile 30x30", unit: "sqm", categoryCode: "CER-TILE"},
		{code: "SCR-48", name: "Roofing Screw 4.8x35", unit: "pcs", categoryCode: "ACC"},
		{code: "SHEET-CLS", name: "Roofing Sheet Classic", unit: "sqm", virtual: true},
	} {
		existing, err := svc.GetByCode(ctx, def.code)
		if err == nil {
			ids[def.code] = existing.ID
			continue
		}
		if !apperror.IsNotFound(err) {
			return nil, err
		}

		p := product.NewProduct(def.code, def.name, def.unit)
		p.IsVirtual = def.virtual
		p.AttributeDefaults = def.defaults
		if def.categoryCode != "" {
			catID := categoryIDs[def.categoryCode]
			p.DefaultCategoryID = &catID
		}
		if err := svc.Create(ctx, p); err != nil {
			return nil, err
		}
		log.Infow("created product", "code", def.code, "virtual", def.virtual)
		ids[def.code] = p.ID
	}

	return ids, nil
}

func seedRecipes(ctx context.Context, svc *recipe.Service, productIDs map[string]id.ID, log *logger.Logger) error {
	const code = "SHEET-CLS-045"

	_, err := svc.GetByCode(ctx, code)
	if err == nil {
		return nil
	}
	if !apperror.IsNotFound(err) {
		return err
	}

	// 2 kg of coil per square metre of finished sheet.
	r := recipe.NewRecipe(code, "Classic sheet from 0.45 coil",
		productIDs["SHEET-CLS"], productIDs["ALU-COIL-045"],
		decimal.RequireFromString("2.0"))
	if err := svc.Create(ctx, r); err != nil {
		return err
	}
	log.Infow("created recipe", "code", code)

	return nil
}

func seedOpeningStock(ctx context.Context, store *ledger.Store, branchIDs, typeIDs, productIDs map[string]id.ID, log *logger.Logger) error {
	res, err := store.ListBatches(ctx, ledger.Filter{Limit: 1})
	if err != nil {
		return err
	}
	if res.TotalCount > 0 {
		log.Info("ledger already holds batches, skipping opening stock")
		return nil
	}

	for _, def := range []struct {
		productCode, branchCode, typeCode string
		grouped                           bool
		instance, identifier              string
		quantity                          string
		attrs                             entity.Attributes
	}{
		// embossment comes from the product defaults on the first coil
		// and is overridden on the second.
		{productCode: "ALU-COIL-045", branchCode: "HQ", typeCode: "COIL", grouped: true,
			instance: "C-1001", quantity: "1250.5",
			attrs: entity.Attributes{"weight_kg": 1250.5, "gauge_mm": 0.45, "color_code": "RAL9002", "coil_number": "C-1001"}},
		{productCode: "ALU-COIL-045", branchCode: "HQ", typeCode: "COIL", grouped: true,
			instance: "C-1002", quantity: "980",
			attrs: entity.Attributes{"weight_kg": 980, "gauge_mm": 0.45, "embossment": "plain", "color_code": "RAL7016", "coil_number": "C-1002"}},
		{productCode: "TILE-3030", branchCode: "HQ", typeCode: "PALLET", grouped: true,
			instance: "PAL-2107", quantity: "108",
			attrs: entity.Attributes{"design_pattern": "Carrara", "pcs_per_pallet": 1200, "sqm_coverage": 108, "pallet_number": "PAL-2107"}},
		// No batch type: falls back to the default (Loose).
		{productCode: "SCR-48", branchCode: "WESTGATE", grouped: false,
			identifier: "LOT-0425", quantity: "5000",
			attrs: entity.Attributes{"packet_size": 250}},
		{productCode: "SCR-48", branchCode: "HQ", typeCode: "CARTON", grouped: true,
			instance: "CTN-88", quantity: "2400",
			attrs: entity.Attributes{"pcs_count": 2400}},
	} {
		input := ledger.CreateBatchInput{
			ProductID:       productIDs[def.productCode],
			BranchID:        branchIDs[def.branchCode],
			Grouped:         def.grouped,
			InstanceCode:    def.instance,
			BatchIdentifier: def.identifier,
			InitialQuantity: decimal.RequireFromString(def.quantity),
			AttributeData:   def.attrs,
		}
		if def.typeCode != "" {
			typeID := typeIDs[def.typeCode]
			input.BatchTypeID = &typeID
		}

		batch, err := store.CreateBatch(ctx, input)
		if err != nil {
			return fmt.Errorf("create batch %s/%s: %w", def.productCode, def.instance, err)
		}
		log.Infow("created batch",
			"product", def.productCode,
			"branch", def.branchCode,
			"instance", def.instance,
			"quantity", def.quantity,
			"id", batch.ID,
		)
	}

	return nil
}
