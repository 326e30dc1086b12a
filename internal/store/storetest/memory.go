// Package storetest provides an in-memory store.Store for tests of the
// packages built on top of the store.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"device-push-backend/internal/model"
	"device-push-backend/internal/store"
)

// Memory is a store.Store kept in memory. The *Err fields make the matching
// operation fail.
type Memory struct {
	mu         sync.Mutex
	nextID     uint
	devices    map[string]*model.Device
	deliveries []model.Notification
	clock      time.Time

	UpsertErr     error
	FindErr       error
	ListErr       error
	ResolveErr    error
	DeliveriesErr error
	PingErr       error
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		devices: make(map[string]*model.Device),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var _ store.Store = (*Memory)(nil)

// tick returns a strictly increasing timestamp so creation order is observable.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) UpsertDevice(_ context.Context, device *model.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	now := m.tick()
	device.IsActive = true
	if existing, ok := m.devices[device.DeviceID]; ok {
		existing.PushToken = device.PushToken
		existing.DeviceName = device.DeviceName
		existing.IsActive = true
		existing.UpdatedAt = now
		return nil
	}

	m.nextID++
	stored := *device
	stored.ID = m.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.devices[device.DeviceID] = &stored
	return nil
}

func (m *Memory) FindDevice(_ context.Context, deviceID string) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	d, ok := m.devices[deviceID]
	if !ok {
		return nil, store.ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) DeactivateDevice(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[deviceID]; ok {
		d.IsActive = false
		d.UpdatedAt = m.tick()
	}
	return nil
}

func (m *Memory) ListDevices(_ context.Context) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.sorted(func(model.Device) bool { return true }), nil
}

func (m *Memory) ActiveDevices(_ context.Context, deviceIDs []string) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	wanted := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		wanted[id] = true
	}
	return m.sorted(func(d model.Device) bool { return d.IsActive && wanted[d.DeviceID] }), nil
}

func (m *Memory) CreateDeliveries(_ context.Context, records []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeliveriesErr != nil {
		return m.DeliveriesErr
	}
	for _, r := range records {
		m.nextID++
		r.ID = m.nextID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = m.tick()
		}
		m.deliveries = append(m.deliveries, r)
	}
	return nil
}

func (m *Memory) History(_ context.Context, limit int) ([]store.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > store.HistoryLimit {
		limit = store.HistoryLimit
	}

	var entries []store.HistoryEntry
	for i := len(m.deliveries) - 1; i >= 0 && len(entries) < limit; i-- {
		n := m.deliveries[i]
		d, ok := m.devices[n.DeviceID]
		if !ok {
			continue
		}
		entries = append(entries, store.HistoryEntry{
			ID:         n.ID,
			DeviceID:   n.DeviceID,
			Title:      n.Title,
			Body:       n.Body,
			Data:       n.Data,
			Status:     n.Status,
			Error:      n.Error,
			CreatedAt:  n.CreatedAt,
			DeviceName: d.DeviceName,
			Platform:   d.Platform,
		})
	}
	return entries, nil
}

func (m *Memory) Stats(_ context.Context, since time.Time) (store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats store.Stats
	for _, d := range m.devices {
		if d.IsActive {
			stats.ActiveDevices++
		}
	}
	for _, n := range m.deliveries {
		if n.CreatedAt.After(since) {
			stats.NotificationsLast24h++
		}
	}
	return stats, nil
}

func (m *Memory) Ping(context.Context) error { return m.PingErr }

// Deliveries returns a copy of every delivery record written so far.
func (m *Memory) Deliveries() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// DeviceCount returns the number of stored device rows.
func (m *Memory) DeviceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}

func (m *Memory) sorted(keep func(model.Device) bool) []model.Device {
	devices := make([]model.Device, 0, len(m.devices))
	for _, d := range m.devices {
		if keep(*d) {
			devices = append(devices, *d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].CreatedAt.After(devices[j].CreatedAt)
		}
		return devices[i].ID > devices[j].ID
	})
	return devices
}
