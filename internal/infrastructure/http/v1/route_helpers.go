// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/infrastructure/http/v1/handlers"
)

// registerAttributeRoutes wires attribute validation previews.
func registerAttributeRoutes(rg *gin.RouterGroup, h *handlers.AttributesHandler) {
	rg.POST("/attributes/validate", h.Validate)
}

// registerBatchRoutes wires the batch ledger endpoints. Mutations live
// under the batch they act on.
func registerBatchRoutes(rg *gin.RouterGroup, batches *handlers.BatchHandler, mutations *handlers.MutationHandler) {
	group := rg.Group("/batches")
	{
		group.POST("", batches.Create)
		group.POST("/import", batches.Import)
		group.GET("", batches.List)
		group.GET("/:id", batches.Get)
		group.PATCH("/:id/attributes", batches.UpdateAttributes)
		group.DELETE("/:id", batches.Delete)

		group.POST("/:id/adjust", mutations.Adjust)
		group.POST("/:id/transfer", mutations.Transfer)
		group.POST("/:id/split", mutations.Split)
		group.POST("/:id/scrap", mutations.Scrap)
	}

	rg.GET("/products/:id/availability", batches.Availability)
}

// registerAllocationRoutes wires the propose/commit pair.
func registerAllocationRoutes(rg *gin.RouterGroup, h *handlers.AllocationHandler) {
	group := rg.Group("/allocations")
	{
		group.POST("/propose", h.Propose)
		group.POST("/commit", h.Commit)
	}
}

// registerJournalRoutes wires the operation journal reads.
func registerJournalRoutes(rg *gin.RouterGroup, h *handlers.OperationsHandler) {
	group := rg.Group("/operations")
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
	}
}

// registerBatchTypeRoutes wires the batch type catalog.
func registerBatchTypeRoutes(rg *gin.RouterGroup, h *handlers.BatchTypeHandler) {
	group := rg.Group("/batch-types")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.POST("/:id/default", h.SetDefault)
	}
}

// registerRecipeRoutes wires the recipe registry.
func registerRecipeRoutes(rg *gin.RouterGroup, h *handlers.RecipeHandler) {
	group := rg.Group("/recipes")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("/:id/deactivate", h.Deactivate)
	}
}
