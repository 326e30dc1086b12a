package model

import (
	"time"

	"gorm.io/datatypes"
)

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// Notification records one delivery attempt of a message to one device.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	DeviceID  string            `gorm:"size:255;not null;index" json:"deviceId"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Body      string            `gorm:"type:text;not null" json:"body"`
	Data      datatypes.JSONMap `json:"data"`
	Status    DeliveryStatus    `gorm:"size:50;not null;default:sent" json:"status"`
	Error     string            `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"createdAt"`

	// Associations
	Device Device `gorm:"foreignKey:DeviceID;references:DeviceID;constraint:OnDelete:RESTRICT" json:"-"`
}
