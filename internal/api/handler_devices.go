package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-push-backend/internal/apperr"
	"device-push-backend/internal/registry"
)

// RegisterDevice creates the device or refreshes its token and name.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registry.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	deviceID, err := h.registry.Upsert(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Device registered successfully",
		"deviceId": deviceID,
	})
}

// GetDevice reports whether the device is registered and active.
func (h *Handler) GetDevice(c *gin.Context) {
	reg, err := h.registry.CheckRegistration(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// UnregisterDevice marks the device inactive. The record is kept.
func (h *Handler) UnregisterDevice(c *gin.Context) {
	if err := h.registry.Deactivate(c.Request.Context(), c.Param("deviceId")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Device unregistered successfully",
	})
}

// ListDevices returns every device, newest first, without push tokens.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}
