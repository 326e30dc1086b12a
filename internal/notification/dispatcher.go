// Package notification fans one message out to many registered devices and
// records the outcome of every attempt.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"device-push-backend/internal/apperr"
	"device-push-backend/internal/gateway"
	"device-push-backend/internal/model"
	"device-push-backend/internal/store"
)

// SendInput is one message and the devices it targets.
type SendInput struct {
	DeviceIDs []string
	Title     string
	Body      string
	Data      map[string]any
}

// DeviceResult is the outcome for one attempted device.
type DeviceResult struct {
	DeviceID string               `json:"deviceId"`
	Status   model.DeliveryStatus `json:"status"`
	Error    string               `json:"error,omitempty"`
}

// SendResult aggregates the outcome of a send.
type SendResult struct {
	Results     []DeviceResult `json:"results"`
	TotalSent   int            `json:"totalSent"`
	TotalFailed int            `json:"totalFailed"`
}

// Dispatcher resolves target devices, delivers to each through the gateway on a
// bounded pool of workers and persists one delivery record per attempt.
type Dispatcher struct {
	store   store.Store
	gateway gateway.Gateway
	size    int
	logger  *zap.Logger
	now     func() time.Time
}

// NewDispatcher creates a dispatcher running at most size deliveries at once.
func NewDispatcher(s store.Store, gw gateway.Gateway, size int, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		store:   s,
		gateway: gw,
		size:    size,
		logger:  logger,
		now:     time.Now,
	}
}

// Send delivers the message to every active device among in.DeviceIDs.
// Unknown and inactive ids are skipped without being reported. When nothing is
// left to deliver to, including an empty id list, it returns
// apperr.ErrNoActiveDevices and writes nothing.
// A failure for one device never stops the others.
func (d *Dispatcher) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	if err := validateSend(in); err != nil {
		return nil, err
	}

	devices, err := d.store.ActiveDevices(ctx, in.DeviceIDs)
	if err != nil {
		return nil, apperr.Storage("failed to resolve devices", err)
	}
	if len(devices) == 0 {
		return nil, apperr.ErrNoActiveDevices
	}

	now := d.now()
	payload := enrich(in.Data, now)

	results := make([]DeviceResult, len(devices))
	d.fanOut(ctx, len(devices), func(ctx context.Context, i int) {
		results[i] = d.deliver(ctx, devices[i], in.Title, in.Body, payload)
	})

	records := make([]model.Notification, len(results))
	out := &SendResult{Results: results}
	for i, r := range results {
		records[i] = model.Notification{
			DeviceID:  r.DeviceID,
			Title:     in.Title,
			Body:      in.Body,
			Data:      in.Data,
			Status:    r.Status,
			Error:     r.Error,
			CreatedAt: now.UTC(),
		}
		if r.Status == model.StatusSent {
			out.TotalSent++
		} else {
			out.TotalFailed++
		}
	}

	// Attempts already happened; record them even if the caller went away.
	if err := d.store.CreateDeliveries(context.WithoutCancel(ctx), records); err != nil {
		return nil, apperr.Storage("failed to record deliveries", err)
	}

	d.logger.Info("notification dispatched",
		zap.Int("targets", len(devices)),
		zap.Int("sent", out.TotalSent),
		zap.Int("failed", out.TotalFailed),
	)
	return out, nil
}

// Test sends a canned notification to a single device through Send.
func (d *Dispatcher) Test(ctx context.Context, deviceID string) (*SendResult, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, apperr.Validation("Device ID is required")
	}
	return d.Send(ctx, SendInput{
		DeviceIDs: []string{deviceID},
		Title:     "Test Notification",
		Body:      fmt.Sprintf("Test notification sent at %s", d.now().Format("15:04:05")),
		Data:      map[string]any{"type": "test"},
	})
}

// History returns the latest delivery records with their device name and platform.
func (d *Dispatcher) History(ctx context.Context) ([]store.HistoryEntry, error) {
	entries, err := d.store.History(ctx, store.HistoryLimit)
	if err != nil {
		return nil, apperr.Storage("failed to retrieve notification history", err)
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}
	return entries, nil
}

// fanOut runs job for every index in [0, n) on up to d.size goroutines and
// waits for all of them.
func (d *Dispatcher) fanOut(ctx context.Context, n int, job func(ctx context.Context, i int)) {
	size := d.size
	if size > n {
		size = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < size; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				job(ctx, i)
			}
		}()
	}
	wg.Wait()
}

// deliver attempts one device and converts any failure, including a panic in
// the gateway, into a failed result.
func (d *Dispatcher) deliver(ctx context.Context, device model.Device, title, body string, data map[string]any) (result DeviceResult) {
	result = DeviceResult{DeviceID: device.DeviceID, Status: model.StatusSent}

	defer func() {
		if r := recover(); r != nil {
			result.Status = model.StatusFailed
			result.Error = fmt.Sprintf("gateway panic: %v", r)
			d.logger.Error("push gateway panicked", zap.String("device_id", device.DeviceID), zap.Any("panic", r))
		}
	}()

	err := d.gateway.Deliver(ctx, gateway.Message{
		Token:    device.PushToken,
		Platform: device.Platform,
		Title:    title,
		Body:     body,
		Data:     data,
	})
	if err != nil {
		result.Status = model.StatusFailed
		result.Error = err.Error()
		d.logger.Warn("failed to send notification",
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
	}
	return result
}

func validateSend(in SendInput) error {
	switch {
	case in.DeviceIDs == nil:
		return apperr.Validation("Device IDs must be an array")
	case strings.TrimSpace(in.Title) == "":
		return apperr.Validation("Title is required")
	case strings.TrimSpace(in.Body) == "":
		return apperr.Validation("Body is required")
	}
	return nil
}

// enrich copies the caller's data and stamps it with the server time.
func enrich(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["timestamp"] = now.UTC().Format(time.RFC3339)
	return out
}
