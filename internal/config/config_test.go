package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Listen.HTTP != "127.0.0.1:8080" {
		t.Errorf("expected HTTP listen 127.0.0.1:8080, got %s", cfg.Listen.HTTP)
	}

	if cfg.Identity.TimeoutSeconds != 10 {
		t.Errorf("expected identity timeout 10, got %d", cfg.Identity.TimeoutSeconds)
	}

	if !cfg.Auth.DemoEnabled {
		t.Error("expected demo login to be enabled by default")
	}

	if cfg.Storage.Driver != "file" {
		t.Errorf("expected file storage driver, got %s", cfg.Storage.Driver)
	}

	if cfg.Storage.Path == "" {
		t.Error("expected a default storage path")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		wantErr     bool
		errContains string
	}{
		{
			name: "valid config",
			configYAML: `
listen:
  http: ":8080"
identity:
  base_url: "https://erp.example.com"
  timeout_seconds: 5
auth:
  demo_enabled: false
storage:
  driver: file
  path: "/tmp/erp-portal.json"
log:
  level: "info"
  format: "json"
`,
			wantErr: false,
		},
		{
			name: "redis driver",
			configYAML: `
identity:
  base_url: "https://erp.example.com"
storage:
  driver: redis
  redis:
    addr: "redis:6379"
    db: 2
`,
			wantErr: false,
		},
		{
			name: "non-http identity url",
			configYAML: `
identity:
  base_url: "ftp://erp.example.com"
`,
			wantErr:     true,
			errContains: "must be a valid HTTP(S) URL",
		},
		{
			name: "unknown storage driver",
			configYAML: `
storage:
  driver: "etcd"
`,
			wantErr:     true,
			errContains: "storage.driver must be one of",
		},
		{
			name: "redis without addr",
			configYAML: `
storage:
  driver: redis
  redis:
    addr: ""
`,
			wantErr:     true,
			errContains: "storage.redis.addr is required",
		},
		{
			name: "invalid log level",
			configYAML: `
log:
  level: "verbose"
`,
			wantErr:     true,
			errContains: "log.level must be one of",
		},
		{
			name: "invalid yaml",
			configYAML: `
this is not: valid: yaml:
  bad: [syntax
`,
			wantErr:     true,
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
			if err != nil {
				t.Fatal(err)
			}

			if _, err := tmpfile.Write([]byte(tt.configYAML)); err != nil {
				t.Fatal(err)
			}
			if err := tmpfile.Close(); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(tmpfile.Name())

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing '%s', got nil", tt.errContains)
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %v, want error containing %v", err, tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if cfg == nil {
					t.Error("expected config, got nil")
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/erp-portal.yaml")
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ERP_PORTAL_IDENTITY_BASE_URL", "https://env.example.com")
	t.Setenv("ERP_PORTAL_AUTH_DEMO_ENABLED", "false")
	t.Setenv("ERP_PORTAL_LOG_LEVEL", "debug")
	t.Setenv("ERP_PORTAL_REDIS_PASSWORD", "env-secret")

	configYAML := `
identity:
  base_url: "https://yaml.example.com"
auth:
  demo_enabled: true
log:
  level: "info"
`

	path := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(path, []byte(configYAML), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Identity.BaseURL != "https://env.example.com" {
		t.Errorf("expected base_url from env, got '%s'", cfg.Identity.BaseURL)
	}

	if cfg.Auth.DemoEnabled {
		t.Error("expected demo login disabled by env override")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Log.Level)
	}

	if cfg.Storage.Redis.Password != "env-secret" {
		t.Errorf("expected redis password from env, got '%s'", cfg.Storage.Redis.Password)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ERP_PORTAL_STORAGE_PATH", "/tmp/from-env.json")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Path != "/tmp/from-env.json" {
		t.Errorf("expected storage path from env, got %s", cfg.Storage.Path)
	}

	t.Setenv("ERP_PORTAL_LOG_FORMAT", "xml")
	if _, err := FromEnv(); err == nil {
		t.Error("expected validation error for bad log format")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "identity timeout too high",
			modify: func(c *Config) {
				c.Identity.TimeoutSeconds = 600
			},
			wantErr: true,
			errMsg:  "should not exceed 120",
		},
		{
			name: "identity timeout zero",
			modify: func(c *Config) {
				c.Identity.TimeoutSeconds = 0
			},
			wantErr: true,
			errMsg:  "must be positive",
		},
		{
			name: "idle timeout zero",
			modify: func(c *Config) {
				c.Workspace.IdleTimeout = 0
			},
			wantErr: true,
			errMsg:  "workspace.idle_timeout must be positive",
		},
		{
			name: "file driver without path",
			modify: func(c *Config) {
				c.Storage.Path = ""
			},
			wantErr: true,
			errMsg:  "storage.path is required",
		},
		{
			name: "TLS enabled without cert",
			modify: func(c *Config) {
				c.TLS.Enabled = true
				c.TLS.CertFile = ""
			},
			wantErr: true,
			errMsg:  "are required when TLS is enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Listen: ListenConfig{HTTP: ":8080"},
				Identity: IdentityConfig{
					BaseURL:        "https://erp.example.com",
					TimeoutSeconds: 10,
				},
				Workspace: WorkspaceConfig{
					IdleTimeout: 600,
					CookieName:  "erp_workspace",
				},
				Storage: StorageConfig{
					Driver: "file",
					Path:   "/tmp/storage.json",
				},
				Log: LogConfig{
					Level:  "info",
					Format: "json",
				},
			}

			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing '%s', got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want error containing %v", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestRedact(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			Redis: RedisConfig{Password: "super-secret"},
		},
	}

	redacted := cfg.Redact()

	if redacted.Storage.Redis.Password != "[REDACTED]" {
		t.Errorf("expected [REDACTED], got %s", redacted.Storage.Redis.Password)
	}

	if cfg.Storage.Redis.Password != "super-secret" {
		t.Errorf("original was modified")
	}
}

func TestSetupLogging(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	SetupLogging(&LogConfig{Level: "debug", Format: "json"})
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug logs to be enabled")
	}

	SetupLogging(&LogConfig{Level: "error", Format: "text"})
	if slog.Default().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info logs to be disabled at error level")
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error logs to be enabled")
	}
}
