// Package client is the device side of the relay: it owns the device's local
// identity and settings and talks to the backend over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"device-push-backend/internal/inbox"
	"device-push-backend/internal/kv"
	"device-push-backend/internal/model"
)

// Local storage keys.
const (
	KeyDeviceID      = "@device_id"
	KeyPushToken     = "@push_token"
	KeyNotifications = inbox.Key
	KeySettings      = "@notification_settings"
)

// Settings are the user's notification preferences.
type Settings struct {
	Enabled bool `json:"enabled"`
}

// Identity manages the locally persisted device id, push token and settings.
type Identity struct {
	kv       kv.Store
	platform model.Platform
	osLabel  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewIdentity creates an identity for a device of the given platform. osLabel
// is the operating system name embedded in generated device ids.
func NewIdentity(store kv.Store, platform model.Platform, osLabel string, logger *zap.Logger) *Identity {
	return &Identity{
		kv:       store,
		platform: platform,
		osLabel:  osLabel,
		logger:   logger,
		now:      time.Now,
	}
}

// DeviceID returns the persisted device id, generating and saving one on first
// use. If local storage fails, a fresh id is returned without being saved.
func (i *Identity) DeviceID(ctx context.Context) string {
	raw, err := i.kv.Get(ctx, KeyDeviceID)
	if err == nil && len(raw) > 0 {
		return string(raw)
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		i.logger.Error("failed to get device id", zap.Error(err))
		return fmt.Sprintf("%s-%d", i.platform, i.now().UnixMilli())
	}

	id := fmt.Sprintf("%s-%s-%d", i.platform, i.osLabel, i.now().UnixMilli())
	if err := i.kv.Set(ctx, KeyDeviceID, []byte(id)); err != nil {
		i.logger.Error("failed to save device id", zap.Error(err))
		return fmt.Sprintf("%s-%d", i.platform, i.now().UnixMilli())
	}
	return id
}

// Platform returns the platform this identity was created for.
func (i *Identity) Platform() model.Platform { return i.platform }

// SetPushToken stores the token issued by the platform push service.
func (i *Identity) SetPushToken(ctx context.Context, token string) error {
	return i.kv.Set(ctx, KeyPushToken, []byte(token))
}

// PushToken returns the stored token, or "" when none is stored.
func (i *Identity) PushToken(ctx context.Context) (string, error) {
	raw, err := i.kv.Get(ctx, KeyPushToken)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Settings returns the stored preferences. Notifications are enabled unless
// they were explicitly disabled.
func (i *Identity) Settings(ctx context.Context) (Settings, error) {
	raw, err := i.kv.Get(ctx, KeySettings)
	if errors.Is(err, kv.ErrNotFound) {
		return Settings{Enabled: true}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// SaveSettings persists the preferences.
func (i *Identity) SaveSettings(ctx context.Context, s Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return i.kv.Set(ctx, KeySettings, raw)
}

// DisableNotifications forgets the push token and records the opt-out.
func (i *Identity) DisableNotifications(ctx context.Context) error {
	if err := i.kv.Remove(ctx, KeyPushToken); err != nil {
		return fmt.Errorf("failed to disable notifications: %w", err)
	}
	if err := i.SaveSettings(ctx, Settings{Enabled: false}); err != nil {
		return fmt.Errorf("failed to disable notifications: %w", err)
	}
	return nil
}

// ClearDeviceData removes the device id, push token and settings. The
// notification inbox is kept.
func (i *Identity) ClearDeviceData(ctx context.Context) error {
	if err := i.kv.MultiRemove(ctx, KeyDeviceID, KeyPushToken, KeySettings); err != nil {
		return fmt.Errorf("failed to clear device data: %w", err)
	}
	return nil
}

// ClearAllNotifications removes only the notification inbox.
func (i *Identity) ClearAllNotifications(ctx context.Context) error {
	if err := i.kv.Remove(ctx, KeyNotifications); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}
