package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BackendConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIToken string        `yaml:"api_token"`
	Timeout  time.Duration `yaml:"timeout"` // per-request HTTP timeout
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // bearer key for /api/v1
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	Domain string        `yaml:"domain"`
	Secure bool          `yaml:"secure"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // analysis snapshot TTL
}

type TrackerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type VerifyConfig struct {
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxRetries    int           `yaml:"max_retries"`
	SafetyTimeout time.Duration `yaml:"safety_timeout"`
	RateLimit     int           `yaml:"rate_limit"` // verify requests per window per client
	RateWindow    time.Duration `yaml:"rate_window"`
}

type MonitorConfig struct {
	ScanInterval   time.Duration `yaml:"scan_interval"`
	Batch          int           `yaml:"batch"`
	Workers        int           `yaml:"workers"`
	DefaultCadence time.Duration `yaml:"default_cadence"`
}

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Verify   VerifyConfig   `yaml:"verify"`
	Monitor  MonitorConfig  `yaml:"monitor"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Tracker.PollInterval <= 0 {
		cfg.Tracker.PollInterval = 5 * time.Second
	}
	if cfg.Verify.RetryDelay <= 0 {
		cfg.Verify.RetryDelay = 2 * time.Second
	}
	if cfg.Verify.MaxRetries <= 0 {
		cfg.Verify.MaxRetries = 5
	}
	if cfg.Verify.SafetyTimeout <= 0 {
		cfg.Verify.SafetyTimeout = 15 * time.Second
	}
	if cfg.Verify.RateLimit <= 0 {
		cfg.Verify.RateLimit = 10
	}
	if cfg.Verify.RateWindow <= 0 {
		cfg.Verify.RateWindow = time.Minute
	}
	if cfg.Monitor.ScanInterval <= 0 {
		cfg.Monitor.ScanInterval = time.Minute
	}
	if cfg.Monitor.Batch <= 0 {
		cfg.Monitor.Batch = 50
	}
	if cfg.Monitor.Workers <= 0 {
		cfg.Monitor.Workers = 4
	}
	if cfg.Monitor.DefaultCadence <= 0 {
		cfg.Monitor.DefaultCadence = 24 * time.Hour
	}

	// Minimal validation
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is required")
	}
	if cfg.Backend.APIToken == "" {
		return nil, errors.New("backend.api_token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
