package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"batchline/internal/infrastructure/cache"
	"batchline/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pool  *postgres.Pool
	cache *cache.CategoryCache
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *postgres.Pool, categoryCache *cache.CategoryCache) *HealthHandler {
	return &HealthHandler{pool: pool, cache: categoryCache}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	// Check database connection
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	// A cache that lost its listener still serves read-through lookups,
	// so it degrades readiness output without failing the probe.
	schemaCache := "listening"
	if !h.cache.GetStats().Listening {
		schemaCache = "not listening"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database":     "healthy",
			"schema_cache": schemaCache,
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.pool.Stat()
	cacheStats := h.cache.GetStats()

	c.JSON(http.StatusOK, gin.H{
		"app":     "batchline",
		"version": "0.1.0",
		"database": map[string]any{
			"total_conns":    stat.TotalConns(),
			"acquired_conns": stat.AcquiredConns(),
			"idle_conns":     stat.IdleConns(),
			"max_conns":      stat.MaxConns(),
		},
		"schema_cache": map[string]any{
			"categories": cacheStats.Categories,
			"listening":  cacheStats.Listening,
		},
	})
}
