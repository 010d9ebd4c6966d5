// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/domain/allocation"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/ledger"
	"batchline/internal/domain/mutation"
	"batchline/internal/domain/recipe"
	"batchline/internal/infrastructure/cache"
	"batchline/internal/infrastructure/http/v1/handlers"
	"batchline/internal/infrastructure/http/v1/middleware"
	"batchline/internal/infrastructure/storage/postgres"
	"batchline/pkg/logger"
)

// RouterConfig holds the wired services the API serves.
type RouterConfig struct {
	// Production switches Gin to release mode
	Production bool

	// Logger for request logging
	Logger *logger.Logger

	// Pool backs the readiness probe
	Pool *postgres.Pool

	// SchemaCache backs attribute validation and health reporting
	SchemaCache *cache.CategoryCache

	// Authenticator resolves JWT and API key credentials
	Authenticator *middleware.Authenticator

	// IdempotencyStore guards mutation replays; nil disables the guard
	IdempotencyStore *postgres.IdempotencyStore

	Store      *ledger.Store
	Mutations  *mutation.Service
	Engine     *allocation.Engine
	Validator  *attrschema.Validator
	BatchTypes *batchtype.Service
	Recipes    *recipe.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.SchemaCache)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// API v1: authenticated, mutations guarded by idempotency keys
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Authenticator))
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	registerAttributeRoutes(api, handlers.NewAttributesHandler(base, cfg.SchemaCache, cfg.Validator))
	registerBatchRoutes(api,
		handlers.NewBatchHandler(base, cfg.Store),
		handlers.NewMutationHandler(base, cfg.Mutations))
	registerAllocationRoutes(api, handlers.NewAllocationHandler(base, cfg.Engine, cfg.Mutations))
	registerJournalRoutes(api, handlers.NewOperationsHandler(base, cfg.Store))
	registerBatchTypeRoutes(api, handlers.NewBatchTypeHandler(base, cfg.BatchTypes))
	registerRecipeRoutes(api, handlers.NewRecipeHandler(base, cfg.Recipes))

	return router
}
