package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"device-push-backend/config"
	"device-push-backend/internal/mw"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 10 << 20

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestID(), mw.Logger(logger), mw.Recovery(logger), mw.BodyLimit(maxBodyBytes))

	// Caching is off unless a TTL is configured. Writes flush it.
	caching := func(c *gin.Context) { c.Next() }
	invalidate := caching
	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		cacheStore := cache.New(ttl, 2*ttl)
		caching = mw.Cache(cacheStore, ttl)
		invalidate = mw.Invalidate(cacheStore)
	}

	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst), invalidate)
	{
		api.GET("/health", h.Health)

		api.GET("/devices", caching, h.ListDevices)
		api.POST("/devices/register", h.RegisterDevice)
		api.GET("/devices/:deviceId", h.GetDevice)
		api.DELETE("/devices/:deviceId", h.UnregisterDevice)

		api.POST("/notifications/send", h.SendNotification)
		api.POST("/notifications/test", h.SendTestNotification)
		api.GET("/notifications/history", caching, h.GetHistory)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}
