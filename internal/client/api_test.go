package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-push-backend/internal/model"
	"device-push-backend/internal/registry"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAPIClient(Options{BaseURL: srv.URL + "/"}, zap.NewNop())
}

func TestAPIClient_RegisterDevice(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/devices/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"Device registered successfully","deviceId":"d1"}`))
	})

	err := c.RegisterDevice(context.Background(), registry.RegisterInput{
		DeviceID: "d1", PushToken: "tok", Platform: model.PlatformAndroid, DeviceName: "Pixel",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"deviceId": "d1", "pushToken": "tok", "platform": "android", "deviceName": "Pixel"}, got)
}

func TestAPIClient_CheckRegistration(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices/d1", r.URL.Path)
		w.Write([]byte(`{"isRegistered":true,"isActive":false}`))
	})

	reg, err := c.CheckRegistration(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, registry.Registration{IsRegistered: true, IsActive: false}, reg)
}

func TestAPIClient_SendNotification(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/send", r.URL.Path)
		var body SendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", "b"}, body.DeviceIDs)
		w.Write([]byte(`{"success":true,"results":[{"deviceId":"a","status":"sent"},{"deviceId":"b","status":"failed","error":"boom"}],"totalSent":1,"totalFailed":1}`))
	})

	resp, err := c.SendNotification(context.Background(), SendRequest{DeviceIDs: []string{"a", "b"}, Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.TotalSent)
	assert.Equal(t, 1, resp.TotalFailed)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, model.StatusFailed, resp.Results[1].Status)
	assert.Equal(t, "boom", resp.Results[1].Error)
}

func TestAPIClient_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"No active devices found","path":"/api/notifications/test"}`))
	})

	_, err := c.SendTestNotification(context.Background(), "gone")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "No active devices found", se.Message)
}

func TestAPIClient_HealthCheck(t *testing.T) {
	up := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	})
	assert.True(t, up.HealthCheck(context.Background()))

	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.False(t, down.HealthCheck(context.Background()))
}

func TestAPIClient_ListDevicesAndUnregister(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/devices":
			w.Write([]byte(`[{"deviceId":"d1","platform":"ios","deviceName":"iPhone","isActive":true}]`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/devices/d1":
			w.Write([]byte(`{"success":true,"message":"Device unregistered successfully"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	devices, err := c.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "d1", devices[0].DeviceID)
	assert.Equal(t, model.PlatformIOS, devices[0].Platform)

	require.NoError(t, c.UnregisterDevice(context.Background(), "d1"))
}
