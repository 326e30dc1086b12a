package store

import (
	"time"

	"gorm.io/datatypes"

	"device-push-backend/internal/model"
)

// HistoryLimit caps the number of delivery records returned by History.
const HistoryLimit = 100

// HistoryEntry is a delivery record joined with the name and platform of its device.
type HistoryEntry struct {
	ID         uint                 `json:"id"`
	DeviceID   string               `json:"deviceId"`
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	Data       datatypes.JSONMap    `json:"data"`
	Status     model.DeliveryStatus `json:"status"`
	Error      string               `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
	DeviceName string               `json:"deviceName"`
	Platform   model.Platform       `json:"platform"`
}

// Stats summarizes the registry for health reporting.
type Stats struct {
	ActiveDevices        int64 `json:"activeDevices"`
	NotificationsLast24h int64 `json:"notificationsLast24h"`
}
