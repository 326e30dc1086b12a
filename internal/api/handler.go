package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-push-backend/internal/apperr"
	"device-push-backend/internal/notification"
	"device-push-backend/internal/registry"
	"device-push-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	registry   *registry.Registry
	dispatcher *notification.Dispatcher
	store      store.Store
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(reg *registry.Registry, d *notification.Dispatcher, s store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		registry:   reg,
		dispatcher: d,
		store:      s,
		logger:     logger,
		now:        time.Now,
	}
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// writeError renders err as {error, timestamp, path} with the status that
// matches its kind.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Msg
		switch appErr.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindNotFound, apperr.KindNoActiveDevices:
			status = http.StatusNotFound
		case apperr.KindDelivery:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.Error(err)
	}

	c.JSON(status, gin.H{
		"error":     msg,
		"timestamp": h.timestamp(),
		"path":      c.Request.URL.Path,
	})
}
