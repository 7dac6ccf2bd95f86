package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/olle/eipmi/internal/config"
	"github.com/olle/eipmi/internal/ipmi"
)

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "eipmi.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Target.Port != 623 {
		t.Errorf("target.port = %d, want 623", cfg.Target.Port)
	}
	if cfg.Target.Timeout != 2*time.Second {
		t.Errorf("target.timeout = %v, want 2s", cfg.Target.Timeout)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("auth.type = %q, want none", cfg.Auth.Type)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v, want warn/text", cfg.Log)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
target:
  port: 6230
  timeout: 5s
auth:
  type: md5
  password: calvin
log:
  level: debug
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Target.Port != 6230 {
		t.Errorf("target.port = %d, want 6230", cfg.Target.Port)
	}
	if cfg.Target.Timeout != 5*time.Second {
		t.Errorf("target.timeout = %v, want 5s", cfg.Target.Timeout)
	}

	typ, err := cfg.Auth.AuthType()
	if err != nil {
		t.Fatalf("AuthType: %v", err)
	}
	if typ != ipmi.AuthTypeMD5 {
		t.Errorf("auth type = %v, want MD5", typ)
	}

	// File overrides only what it names; format inherits the default.
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v, want debug/text", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  type: password
  password: fromfile
`)

	t.Setenv("EIPMI_AUTH_PASSWORD", "fromenv")
	t.Setenv("EIPMI_TARGET_PORT", "1623")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.Password != "fromenv" {
		t.Errorf("auth.password = %q, want env override", cfg.Auth.Password)
	}
	if cfg.Target.Port != 1623 {
		t.Errorf("target.port = %d, want 1623", cfg.Target.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load with a missing file succeeded")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *config.Config {
		return config.DefaultConfig()
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.Config) {},
			want:   nil,
		},
		{
			name:   "zero port",
			mutate: func(c *config.Config) { c.Target.Port = 0 },
			want:   config.ErrInvalidPort,
		},
		{
			name:   "port out of range",
			mutate: func(c *config.Config) { c.Target.Port = 70000 },
			want:   config.ErrInvalidPort,
		},
		{
			name:   "zero timeout",
			mutate: func(c *config.Config) { c.Target.Timeout = 0 },
			want:   config.ErrInvalidTimeout,
		},
		{
			name:   "unknown auth type",
			mutate: func(c *config.Config) { c.Auth.Type = "sha256" },
			want:   config.ErrInvalidAuthType,
		},
		{
			name:   "auth without password",
			mutate: func(c *config.Config) { c.Auth.Type = "md5" },
			want:   config.ErrMissingPassword,
		},
		{
			name: "password too long",
			mutate: func(c *config.Config) {
				c.Auth.Type = "password"
				c.Auth.Password = "01234567890123456" // 17 bytes
			},
			want: config.ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base()
			tt.mutate(cfg)

			if err := config.Validate(cfg); !errors.Is(err, tt.want) {
				t.Errorf("Validate err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		tt := tt
		if got := config.ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
