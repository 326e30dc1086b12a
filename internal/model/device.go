package model

import "time"

// Platform is the mobile operating system a device registered from.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Device is a registered push target. Rows are never removed; unregistering
// only clears IsActive so delivery records keep a valid reference.
type Device struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	DeviceID   string    `gorm:"uniqueIndex;size:255;not null" json:"deviceId"`
	PushToken  string    `gorm:"type:text;not null" json:"-"`
	Platform   Platform  `gorm:"size:50;not null" json:"platform"`
	DeviceName string    `gorm:"size:255;not null" json:"deviceName"`
	IsActive   bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`
}
