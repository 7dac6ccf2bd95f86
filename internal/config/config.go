// Package config manages eipmi tool configuration using koanf/v2.
//
// Supports YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/olle/eipmi/internal/ipmi"
	"github.com/olle/eipmi/internal/rmcp"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete eipmi CLI configuration.
type Config struct {
	Target TargetConfig `koanf:"target"`
	Auth   AuthConfig   `koanf:"auth"`
	Log    LogConfig    `koanf:"log"`
}

// TargetConfig holds the BMC endpoint defaults.
type TargetConfig struct {
	// Port is the RMCP UDP port (well-known: 623).
	Port int `koanf:"port"`

	// Timeout bounds a single request/response exchange.
	Timeout time.Duration `koanf:"timeout"`
}

// AuthConfig holds the session authentication defaults.
type AuthConfig struct {
	// Type is the authentication type: "none", "md2", "md5", "password".
	Type string `koanf:"type"`

	// Password is the session key. Prefer the EIPMI_AUTH_PASSWORD
	// environment variable over placing it in a file.
	Password string `koanf:"password"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// authTypeNames maps configuration strings to wire authentication types.
var authTypeNames = map[string]ipmi.AuthType{
	"none":     ipmi.AuthTypeNone,
	"md2":      ipmi.AuthTypeMD2,
	"md5":      ipmi.AuthTypeMD5,
	"password": ipmi.AuthTypePassword,
}

// AuthType maps the configured auth type string to its wire type.
func (ac AuthConfig) AuthType() (ipmi.AuthType, error) {
	typ, ok := authTypeNames[strings.ToLower(ac.Type)]
	if !ok {
		return 0, fmt.Errorf("auth type %q: %w", ac.Type, ErrInvalidAuthType)
	}

	return typ, nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults: the
// well-known RMCP port, no authentication, and quiet text logging suited
// to an interactive tool.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Port:    rmcp.DefaultPort,
			Timeout: 2 * time.Second,
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for eipmi configuration.
// Variables are named EIPMI_<section>_<key>, e.g., EIPMI_TARGET_PORT.
const envPrefix = "EIPMI_"

// Load reads configuration from a YAML file at path (skipped when path is
// empty), overlays environment variable overrides (EIPMI_ prefix), and
// merges on top of DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	EIPMI_TARGET_PORT    -> target.port
//	EIPMI_TARGET_TIMEOUT -> target.timeout
//	EIPMI_AUTH_TYPE      -> auth.type
//	EIPMI_AUTH_PASSWORD  -> auth.password
//	EIPMI_LOG_LEVEL      -> log.level
//	EIPMI_LOG_FORMAT     -> log.format
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper transforms EIPMI_TARGET_PORT -> target.port.
// Strips the EIPMI_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"target.port":    defaults.Target.Port,
		"target.timeout": defaults.Target.Timeout.String(),
		"auth.type":      defaults.Auth.Type,
		"auth.password":  defaults.Auth.Password,
		"log.level":      defaults.Log.Level,
		"log.format":     defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrInvalidPort indicates the target port is outside 1-65535.
	ErrInvalidPort = errors.New("target.port must be within 1-65535")

	// ErrInvalidTimeout indicates a non-positive exchange timeout.
	ErrInvalidTimeout = errors.New("target.timeout must be > 0")

	// ErrInvalidAuthType indicates an unrecognized auth type string.
	ErrInvalidAuthType = errors.New("auth.type must be none, md2, md5, or password")

	// ErrMissingPassword indicates a non-none auth type without a password.
	ErrMissingPassword = errors.New("auth.password required for the configured auth.type")

	// ErrPasswordTooLong indicates a password beyond the 16-byte wire field.
	ErrPasswordTooLong = errors.New("auth.password exceeds 16 bytes")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Target.Port < 1 || cfg.Target.Port > 65535 {
		return ErrInvalidPort
	}

	if cfg.Target.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	typ, err := cfg.Auth.AuthType()
	if err != nil {
		return err
	}

	if typ != ipmi.AuthTypeNone && cfg.Auth.Password == "" {
		return ErrMissingPassword
	}

	// The wire field is fixed at 16 bytes; a longer password would be
	// silently truncated by the codec, so reject it here instead.
	if len(cfg.Auth.Password) > 16 {
		return ErrPasswordTooLong
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the
// corresponding slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
