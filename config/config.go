package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig bounds how many deliveries of one send run at the same time.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig selects and configures the gateway used for each platform.
type PushConfig struct {
	IOSGateway     string        `yaml:"ios_gateway"`     // "apns", "sns" or "log"
	AndroidGateway string        `yaml:"android_gateway"` // "sns" or "log"
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	SNS            SNSConfig     `yaml:"sns"`
	APNs           APNsConfig    `yaml:"apns"`
}

// SNSConfig holds the AWS SNS platform application settings.
type SNSConfig struct {
	Region             string `yaml:"region"`
	AndroidPlatformARN string `yaml:"android_platform_arn"`
	IOSPlatformARN     string `yaml:"ios_platform_arn"`
	Sandbox            bool   `yaml:"sandbox"`
	EndpointCacheTTL   int    `yaml:"endpoint_cache_ttl_seconds"`
}

// APNsConfig holds the token based credentials for Apple Push Notification service.
type APNsConfig struct {
	AuthKeyPath string `yaml:"auth_key_path"`
	KeyID       string `yaml:"key_id"`
	TeamID      string `yaml:"team_id"`
	Topic       string `yaml:"topic"`
	Production  bool   `yaml:"production"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 3001
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}

	if c.Push.IOSGateway == "" {
		c.Push.IOSGateway = "log"
	}
	if c.Push.AndroidGateway == "" {
		c.Push.AndroidGateway = "log"
	}
	if c.Push.TimeoutSeconds <= 0 {
		c.Push.TimeoutSeconds = 10
	}
	c.Push.Timeout = time.Duration(c.Push.TimeoutSeconds) * time.Second
	if c.Push.SNS.Region == "" {
		c.Push.SNS.Region = "us-east-1"
	}
	if c.Push.SNS.EndpointCacheTTL <= 0 {
		c.Push.SNS.EndpointCacheTTL = 3600
	}

	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 4
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the settings that have no sensible default.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must be set")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	switch c.Push.IOSGateway {
	case "apns", "sns", "log":
	default:
		return fmt.Errorf("push.ios_gateway %q is not supported", c.Push.IOSGateway)
	}
	switch c.Push.AndroidGateway {
	case "sns", "log":
	default:
		return fmt.Errorf("push.android_gateway %q is not supported", c.Push.AndroidGateway)
	}
	return nil
}
