// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tannery/internal/infrastructure/cache"
	"tannery/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pool  *postgres.Pool
	units *cache.ProductUnitsCache
}

// NewHealthHandler creates a new health handler.
// units may be nil when the cache is disabled.
func NewHealthHandler(pool *postgres.Pool, units *cache.ProductUnitsCache) *HealthHandler {
	return &HealthHandler{pool: pool, units: units}
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
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stats := postgres.GetPoolStats(h.pool.Pool)

	info := gin.H{
		"app":     "tannery",
		"version": "0.1.0",
		"database": map[string]any{
			"total_conns":    stats.TotalConns,
			"acquired_conns": stats.AcquiredConns,
			"idle_conns":     stats.IdleConns,
			"max_conns":      stats.MaxConns,
			"acquire_count":  stats.AcquireCount,
		},
	}
	if h.units != nil {
		info["units_cache"] = map[string]any{
			"products_cached": h.units.GetStats().ProductsCached,
		}
	}

	c.JSON(http.StatusOK, info)
}
