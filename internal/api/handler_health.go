package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Health checks the database and reports basic counters.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	unhealthy := func(err error) {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": h.timestamp(),
			"error":     err.Error(),
		})
	}

	if err := h.store.Ping(ctx); err != nil {
		unhealthy(err)
		return
	}
	stats, err := h.store.Stats(ctx, h.now().UTC().Add(-24*time.Hour))
	if err != nil {
		unhealthy(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.timestamp(),
		"database":  "connected",
		"stats":     stats,
	})
}
