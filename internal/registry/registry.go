// Package registry owns device identity records: idempotent registration,
// lookup, logical unregistration and listing.
package registry

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"device-push-backend/internal/apperr"
	"device-push-backend/internal/model"
	"device-push-backend/internal/store"
)

// RegisterInput carries the fields a client registers with.
type RegisterInput struct {
	DeviceID   string         `json:"deviceId"`
	PushToken  string         `json:"pushToken"`
	Platform   model.Platform `json:"platform"`
	DeviceName string         `json:"deviceName"`
}

// Registration is the answer to a registration check.
type Registration struct {
	IsRegistered bool `json:"isRegistered"`
	IsActive     bool `json:"isActive"`
}

// Registry exposes the device registry operations.
type Registry struct {
	store  store.Store
	logger *zap.Logger
}

// New creates a registry backed by s.
func New(s store.Store, logger *zap.Logger) *Registry {
	return &Registry{store: s, logger: logger}
}

// Upsert registers a device or refreshes an existing registration. Repeating the
// call with the same or a changed token always leaves exactly one active record.
func (r *Registry) Upsert(ctx context.Context, in RegisterInput) (string, error) {
	if err := validate(in); err != nil {
		return "", err
	}

	device := &model.Device{
		DeviceID:   in.DeviceID,
		PushToken:  in.PushToken,
		Platform:   in.Platform,
		DeviceName: in.DeviceName,
	}
	if err := r.store.UpsertDevice(ctx, device); err != nil {
		return "", apperr.Storage("failed to register device", err)
	}

	r.logger.Info("device registered",
		zap.String("device_id", in.DeviceID),
		zap.String("platform", string(in.Platform)),
	)
	return in.DeviceID, nil
}

// CheckRegistration reports whether a record exists and whether it is active.
// An unknown device is a negative answer, not an error.
func (r *Registry) CheckRegistration(ctx context.Context, deviceID string) (Registration, error) {
	if strings.TrimSpace(deviceID) == "" {
		return Registration{}, apperr.Validation("Device ID is required")
	}

	device, err := r.store.FindDevice(ctx, deviceID)
	if errors.Is(err, store.ErrDeviceNotFound) {
		return Registration{}, nil
	}
	if err != nil {
		return Registration{}, apperr.Storage("failed to check device registration", err)
	}
	return Registration{IsRegistered: true, IsActive: device.IsActive}, nil
}

// Deactivate marks the device inactive. Unknown devices are ignored.
func (r *Registry) Deactivate(ctx context.Context, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return apperr.Validation("Device ID is required")
	}
	if err := r.store.DeactivateDevice(ctx, deviceID); err != nil {
		return apperr.Storage("failed to unregister device", err)
	}
	r.logger.Info("device unregistered", zap.String("device_id", deviceID))
	return nil
}

// List returns all devices, most recently created first.
func (r *Registry) List(ctx context.Context) ([]model.Device, error) {
	devices, err := r.store.ListDevices(ctx)
	if err != nil {
		return nil, apperr.Storage("failed to retrieve devices", err)
	}
	if devices == nil {
		devices = []model.Device{}
	}
	return devices, nil
}

func validate(in RegisterInput) error {
	switch {
	case strings.TrimSpace(in.DeviceID) == "":
		return apperr.Validation("Device ID is required")
	case strings.TrimSpace(in.PushToken) == "":
		return apperr.Validation("Push token is required")
	case !in.Platform.Valid():
		return apperr.Validation("Platform must be ios or android")
	case strings.TrimSpace(in.DeviceName) == "":
		return apperr.Validation("Device name is required")
	}
	return nil
}
