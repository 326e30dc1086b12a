package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"device-push-backend/internal/model"
)

// ErrDeviceNotFound is returned by FindDevice when no row has the given device id.
var ErrDeviceNotFound = errors.New("device not found")

// Store defines the interface for all database operations.
type Store interface {
	UpsertDevice(ctx context.Context, device *model.Device) error
	FindDevice(ctx context.Context, deviceID string) (*model.Device, error)
	DeactivateDevice(ctx context.Context, deviceID string) error
	ListDevices(ctx context.Context) ([]model.Device, error)
	ActiveDevices(ctx context.Context, deviceIDs []string) ([]model.Device, error)
	CreateDeliveries(ctx context.Context, records []model.Notification) error
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
	Stats(ctx context.Context, since time.Time) (Stats, error)
	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// UpsertDevice inserts the device or, when the device id already exists, replaces
// its token and name and reactivates it. The platform of an existing row is kept.
func (s *gormStore) UpsertDevice(ctx context.Context, device *model.Device) error {
	now := s.now()
	device.IsActive = true
	device.CreatedAt = now
	device.UpdatedAt = now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"push_token", "device_name", "is_active", "updated_at"}),
	}).Create(device).Error
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.DeviceID, err)
	}
	return nil
}

// FindDevice looks a device up by its client-chosen id.
func (s *gormStore) FindDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	var device model.Device
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device %s: %w", deviceID, err)
	}
	return &device, nil
}

// DeactivateDevice clears the active flag. Unknown ids update nothing.
func (s *gormStore) DeactivateDevice(ctx context.Context, deviceID string) error {
	err := s.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]any{"is_active": false, "updated_at": s.now()}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate device %s: %w", deviceID, err)
	}
	return nil
}

// ListDevices returns every device, most recently created first.
func (s *gormStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// ActiveDevices resolves the given ids to active devices, in ListDevices order.
// Unknown and inactive ids are left out.
func (s *gormStore) ActiveDevices(ctx context.Context, deviceIDs []string) ([]model.Device, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}

	var devices []model.Device
	err := s.db.WithContext(ctx).
		Where("device_id IN ? AND is_active = ?", deviceIDs, true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active devices: %w", err)
	}
	return devices, nil
}

// CreateDeliveries writes the delivery records of one send in a single batch.
func (s *gormStore) CreateDeliveries(ctx context.Context, records []model.Notification) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to record %d deliveries: %w", len(records), err)
	}
	return nil
}

// History returns the latest delivery records joined with their device.
func (s *gormStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	var entries []HistoryEntry
	err := s.db.WithContext(ctx).
		Table("notifications AS n").
		Select("n.id, n.device_id, n.title, n.body, n.data, n.status, n.error, n.created_at, d.device_name, d.platform").
		Joins("JOIN devices d ON n.device_id = d.device_id").
		Order("n.created_at DESC").
		Order("n.id DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification history: %w", err)
	}
	return entries, nil
}

// Stats counts active devices and delivery records created after since.
func (s *gormStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	var stats Stats
	if err := s.db.WithContext(ctx).Model(&model.Device{}).Where("is_active = ?", true).Count(&stats.ActiveDevices).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count active devices: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).Where("created_at > ?", since).Count(&stats.NotificationsLast24h).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count notifications: %w", err)
	}
	return stats, nil
}

// Ping checks the database connection.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
