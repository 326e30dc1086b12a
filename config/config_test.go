package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "file::memory:"
  driver: sqlite
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 5, cfg.Server.RateLimitBurst)
	assert.Equal(t, 4, cfg.WorkerPool.Size)
	assert.Equal(t, "log", cfg.Push.IOSGateway)
	assert.Equal(t, "log", cfg.Push.AndroidGateway)
	assert.Equal(t, 10*time.Second, cfg.Push.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  cache_ttl_seconds: 30
database:
  dsn: "postgres://localhost/push"
push:
  ios_gateway: apns
  android_gateway: sns
  timeout_seconds: 3
  sns:
    region: eu-west-1
    android_platform_arn: "arn:aws:sns:eu-west-1:1:app/GCM/demo"
  apns:
    topic: com.example.app
worker_pool:
  size: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.CacheTTLSeconds)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "apns", cfg.Push.IOSGateway)
	assert.Equal(t, "sns", cfg.Push.AndroidGateway)
	assert.Equal(t, 3*time.Second, cfg.Push.Timeout)
	assert.Equal(t, "eu-west-1", cfg.Push.SNS.Region)
	assert.Equal(t, "com.example.app", cfg.Push.APNs.Topic)
	assert.Equal(t, 16, cfg.WorkerPool.Size)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing dsn", body: "server:\n  port: 1\n"},
		{name: "unknown driver", body: "database:\n  dsn: x\n  driver: mysql\n"},
		{name: "unknown ios gateway", body: "database:\n  dsn: x\npush:\n  ios_gateway: fcm\n"},
		{name: "apns for android", body: "database:\n  dsn: x\npush:\n  android_gateway: apns\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
