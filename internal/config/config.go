// Package config loads and validates the erp-portal configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Identity  IdentityConfig  `yaml:"identity"`
	Auth      AuthConfig      `yaml:"auth"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Storage   StorageConfig   `yaml:"storage"`
	TLS       TLSConfig       `yaml:"tls"`
	Log       LogConfig       `yaml:"log"`
}

// ListenConfig defines where the dashboard shell listens
type ListenConfig struct {
	HTTP string `yaml:"http"` // HTTP server address (e.g., "127.0.0.1:8080")
}

// IdentityConfig points at the remote identity/config service
type IdentityConfig struct {
	BaseURL        string `yaml:"base_url"`        // e.g. "https://erp.example.com"
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-request timeout
}

// AuthConfig defines login behavior
type AuthConfig struct {
	DemoEnabled bool `yaml:"demo_enabled"` // accept the demo@demo.net/demo sentinel pair
}

// WorkspaceConfig defines per-browser workspace handling in the web shell
type WorkspaceConfig struct {
	IdleTimeout int    `yaml:"idle_timeout"` // seconds before an idle workspace is dropped from memory
	CookieName  string `yaml:"cookie_name"`
}

// StorageConfig selects the durable storage backend
type StorageConfig struct {
	Driver string      `yaml:"driver"` // file, redis
	Path   string      `yaml:"path"`   // file driver: JSON document path
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis storage driver
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// TLSConfig defines TLS settings for the HTTP server
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LogConfig defines logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration from defaults and environment overrides
// only. It is used when no config file exists and none was requested.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			HTTP: "127.0.0.1:8080",
		},
		Identity: IdentityConfig{
			BaseURL:        "http://127.0.0.1:8000",
			TimeoutSeconds: 10,
		},
		Auth: AuthConfig{
			DemoEnabled: true,
		},
		Workspace: WorkspaceConfig{
			IdleTimeout: 1800, // 30 minutes
			CookieName:  "erp_workspace",
		},
		Storage: StorageConfig{
			Driver: "file",
			Path:   defaultStoragePath(),
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "erp-portal",
			},
		},
		TLS: TLSConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".erp-portal", "storage.json")
	}
	return filepath.Join(dir, "erp-portal", "storage.json")
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ERP_PORTAL_IDENTITY_BASE_URL"); v != "" {
		c.Identity.BaseURL = v
	}
	if v := os.Getenv("ERP_PORTAL_AUTH_DEMO_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.DemoEnabled = b
		}
	}

	if v := os.Getenv("ERP_PORTAL_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("ERP_PORTAL_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ERP_PORTAL_REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("ERP_PORTAL_REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}

	if v := os.Getenv("ERP_PORTAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ERP_PORTAL_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	if v := os.Getenv("ERP_PORTAL_LISTEN_HTTP"); v != "" {
		c.Listen.HTTP = v
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Identity.BaseURL == "" {
		return fmt.Errorf("identity.base_url is required")
	}
	if !strings.HasPrefix(c.Identity.BaseURL, "http://") && !strings.HasPrefix(c.Identity.BaseURL, "https://") {
		return fmt.Errorf("identity.base_url must be a valid HTTP(S) URL")
	}
	if c.Identity.TimeoutSeconds <= 0 {
		return fmt.Errorf("identity.timeout_seconds must be positive")
	}
	if c.Identity.TimeoutSeconds > 120 {
		return fmt.Errorf("identity.timeout_seconds should not exceed 120 seconds")
	}

	if c.Workspace.IdleTimeout <= 0 {
		return fmt.Errorf("workspace.idle_timeout must be positive")
	}
	if c.Workspace.CookieName == "" {
		return fmt.Errorf("workspace.cookie_name is required")
	}

	switch c.Storage.Driver {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file driver")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis driver")
		}
		if c.Storage.Redis.DB < 0 {
			return fmt.Errorf("storage.redis.db must not be negative")
		}
	default:
		return fmt.Errorf("storage.driver must be one of: file, redis")
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
		if _, err := os.Stat(c.TLS.CertFile); err != nil {
			return fmt.Errorf("tls.cert_file not found: %w", err)
		}
		if _, err := os.Stat(c.TLS.KeyFile); err != nil {
			return fmt.Errorf("tls.key_file not found: %w", err)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: json, text")
	}

	if c.Listen.HTTP == "" {
		return fmt.Errorf("listen.http is required")
	}

	return nil
}

// SetupLogging configures the global slog logger based on the LogConfig.
func SetupLogging(cfg *LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Redact returns a copy of the config with secrets redacted for safe logging
func (c *Config) Redact() *Config {
	redacted := *c
	if redacted.Storage.Redis.Password != "" {
		redacted.Storage.Redis.Password = "[REDACTED]"
	}
	return &redacted
}
