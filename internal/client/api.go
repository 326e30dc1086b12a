package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"device-push-backend/internal/model"
	"device-push-backend/internal/notification"
	"device-push-backend/internal/registry"
	"device-push-backend/internal/store"
)

// Options configure an APIClient.
type Options struct {
	BaseURL   string
	HTTPProxy string
	Timeout   time.Duration
}

// APIClient calls the backend's JSON API.
type APIClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// SendRequest is the body of a send call.
type SendRequest struct {
	DeviceIDs []string       `json:"deviceIds"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
}

// SendResponse is the backend's answer to a send or test call.
type SendResponse struct {
	Success bool `json:"success"`
	notification.SendResult
}

// DeviceView is a device as listed by the backend.
type DeviceView struct {
	DeviceID   string         `json:"deviceId"`
	Platform   model.Platform `json:"platform"`
	DeviceName string         `json:"deviceName"`
	IsActive   bool           `json:"isActive"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// NewAPIClient creates a client for the backend at opts.BaseURL.
func NewAPIClient(opts Options, logger *zap.Logger) *APIClient {
	var transport http.RoundTripper = &http.Transport{}
	if opts.HTTPProxy != "" {
		proxyURL, err := url.Parse(opts.HTTPProxy)
		if err != nil {
			logger.Warn("invalid proxy URL, not using a proxy", zap.String("proxy", opts.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &APIClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Transport: transport, Timeout: timeout},
		logger:  logger,
	}
}

// HealthCheck reports whether the backend answers its health endpoint.
func (c *APIClient) HealthCheck(ctx context.Context) bool {
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil); err != nil {
		c.logger.Warn("health check failed", zap.Error(err))
		return false
	}
	return true
}

// RegisterDevice registers or refreshes this device.
func (c *APIClient) RegisterDevice(ctx context.Context, in registry.RegisterInput) error {
	return c.do(ctx, http.MethodPost, "/api/devices/register", in, nil)
}

// CheckRegistration returns the device's registration state.
func (c *APIClient) CheckRegistration(ctx context.Context, deviceID string) (registry.Registration, error) {
	var reg registry.Registration
	err := c.do(ctx, http.MethodGet, "/api/devices/"+url.PathEscape(deviceID), nil, &reg)
	return reg, err
}

// UnregisterDevice deactivates the device on the backend.
func (c *APIClient) UnregisterDevice(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/devices/"+url.PathEscape(deviceID), nil, nil)
}

// SendTestNotification asks the backend to push a test message to the device.
func (c *APIClient) SendTestNotification(ctx context.Context, deviceID string) (*SendResponse, error) {
	var resp SendResponse
	if err := c.do(ctx, http.MethodPost, "/api/notifications/test", map[string]string{"deviceId": deviceID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDevices returns every registered device.
func (c *APIClient) ListDevices(ctx context.Context) ([]DeviceView, error) {
	var devices []DeviceView
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// SendNotification pushes a message to the given devices.
func (c *APIClient) SendNotification(ctx context.Context, req SendRequest) (*SendResponse, error) {
	var resp SendResponse
	if err := c.do(ctx, http.MethodPost, "/api/notifications/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the latest delivery records.
func (c *APIClient) History(ctx context.Context) ([]store.HistoryEntry, error) {
	var entries []store.HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/notifications/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	return nil
}
