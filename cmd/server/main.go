// Package main is the entry point for the batchline API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batchline/internal/domain/allocation"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/audit"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/ledger"
	"batchline/internal/domain/mutation"
	"batchline/internal/domain/recipe"
	"batchline/internal/infrastructure/cache"
	"batchline/internal/infrastructure/config"
	v1 "batchline/internal/infrastructure/http/v1"
	"batchline/internal/infrastructure/http/v1/middleware"
	"batchline/internal/infrastructure/storage/postgres"
	"batchline/internal/infrastructure/storage/postgres/catalog_repo"
	"batchline/internal/infrastructure/storage/postgres/ledger_repo"
	"batchline/pkg/logger"
	"batchline/pkg/numerator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting batchline server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:               cfg.DB.DSN,
		MaxConns:          cfg.DB.MaxConns,
		MinConns:          cfg.DB.MinConns,
		MaxConnLifetime:   cfg.DB.MaxConnLifetime,
		MaxConnIdleTime:   cfg.DB.MaxConnIdleTime,
		HealthCheckPeriod: cfg.DB.HealthCheckPeriod,
	})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	numbers := numerator.New(pool)

	// --- Repositories ---
	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)
	branchRepo := catalog_repo.NewBranchRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	batchTypeRepo := catalog_repo.NewBatchTypeRepo(txManager)
	recipeRepo := catalog_repo.NewRecipeRepo(txManager)

	// --- Category schema cache ---
	schemaCache := cache.NewCategoryCache(pool.Unwrap())
	if err := schemaCache.Start(ctx); err != nil {
		log.Fatalw("failed to start category cache", "error", err)
	}
	defer schemaCache.Stop()

	// --- Domain services ---
	validator := attrschema.NewValidator(attrschema.ValidatorConfig{
		GaugeLookup: func(ctx context.Context, schema attrschema.Schema) (bool, error) {
			return !cfg.GaugeDisabled(schema.Code), nil
		},
	})

	var auditRec audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		rec, err := postgres.NewAuditRecorder(txManager)
		if err != nil {
			log.Fatalw("failed to initialize audit recorder", "error", err)
		}
		auditRec = rec
	}

	store := ledger.NewStore(ledger.StoreConfig{
		Repo:       ledgerRepo,
		TxManager:  txManager,
		Validator:  validator,
		Schemas:    schemaCache,
		Products:   productRepo,
		Branches:   branchRepo,
		BatchTypes: batchTypeRepo,
		Numerator:  numbers,
		Audit:      auditRec,
	})

	mutations := mutation.NewService(mutation.Config{
		Repo:       ledgerRepo,
		TxManager:  txManager,
		Branches:   branchRepo,
		BatchTypes: batchTypeRepo,
		Validator:  validator,
		Schemas:    schemaCache,
		Numerator:  numbers,
		Audit:      auditRec,
	})

	batchTypes := batchtype.NewService(batchTypeRepo, txManager, numbers)
	recipes := recipe.NewService(recipeRepo, productRepo, txManager, numbers)
	engine := allocation.NewEngine(ledgerRepo, recipes, cfg.SelectionPolicy())

	// --- Idempotency ---
	idempotencyStore := postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL)
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go cleanupIdempotencyKeys(cleanupCtx, idempotencyStore)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Production:       cfg.IsProduction(),
		Logger:           log,
		Pool:             pool,
		SchemaCache:      schemaCache,
		Authenticator:    middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.APIKeys),
		IdempotencyStore: idempotencyStore,
		Store:            store,
		Mutations:        mutations,
		Engine:           engine,
		Validator:        validator,
		BatchTypes:       batchTypes,
		Recipes:          recipes,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// cleanupIdempotencyKeys sweeps expired idempotency keys hourly.
func cleanupIdempotencyKeys(ctx context.Context, store *postgres.IdempotencyStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupExpired(ctx)
			if err != nil {
				logger.Warn(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info(ctx, "idempotency keys cleaned up", "removed", removed)
			}
		}
	}
}
