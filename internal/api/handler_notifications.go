package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-push-backend/internal/apperr"
	"device-push-backend/internal/notification"
)

type sendRequest struct {
	DeviceIDs []string       `json:"deviceIds"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data"`
}

type testRequest struct {
	DeviceID string `json:"deviceId"`
}

// SendNotification fans a message out to the requested devices.
func (h *Handler) SendNotification(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	res, err := h.dispatcher.Send(c.Request.Context(), notification.SendInput{
		DeviceIDs: req.DeviceIDs,
		Title:     req.Title,
		Body:      req.Body,
		Data:      req.Data,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSendResult(c, res)
}

// SendTestNotification pushes a canned message to one device.
func (h *Handler) SendTestNotification(c *gin.Context) {
	var req testRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.Validation("Invalid request body"))
		return
	}

	res, err := h.dispatcher.Test(c.Request.Context(), req.DeviceID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeSendResult(c, res)
}

// GetHistory returns the latest delivery records.
func (h *Handler) GetHistory(c *gin.Context) {
	entries, err := h.dispatcher.History(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) writeSendResult(c *gin.Context, res *notification.SendResult) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"results":     res.Results,
		"totalSent":   res.TotalSent,
		"totalFailed": res.TotalFailed,
	})
}
