// Package config loads padctl's configuration from a YAML file layered
// under environment variable overrides, on top of built-in defaults,
// using koanf/v2.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration.
type Config struct {
	LogLevel     string `koanf:"log_level" json:"log_level"`
	LogFormat    string `koanf:"log_format" json:"log_format"`
	OutputFormat string `koanf:"output_format" json:"output_format"`

	ScanTimeout   time.Duration `koanf:"scan_timeout" json:"scan_timeout"`
	DeviceTimeout time.Duration `koanf:"device_timeout" json:"device_timeout"`

	// ConnectTimeout, WriteTimeout and NotificationTimeout are the
	// controller's bounded-operation defaults; `padctl` flags override
	// them per invocation.
	ConnectTimeout      time.Duration `koanf:"connect_timeout" json:"connect_timeout"`
	WriteTimeout        time.Duration `koanf:"write_timeout" json:"write_timeout"`
	NotificationTimeout time.Duration `koanf:"notification_timeout" json:"notification_timeout"`

	// PollInterval is the legacy-protocol ask-stats cadence.
	PollInterval time.Duration `koanf:"poll_interval" json:"poll_interval"`

	// StorageProvider selects the device-id slot: "memory" (default),
	// "file" or "none". "file" persists to DeviceIDPath.
	StorageProvider string `koanf:"storage_provider" json:"storage_provider"`
	DeviceIDPath    string `koanf:"device_id_path" json:"device_id_path"`
}

// DefaultConfig returns a Config populated with built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		OutputFormat: "table",

		ScanTimeout:   10 * time.Second,
		DeviceTimeout: 30 * time.Second,

		ConnectTimeout:      20 * time.Second,
		WriteTimeout:        10 * time.Second,
		NotificationTimeout: 15 * time.Second,

		PollInterval: 3 * time.Second,

		StorageProvider: "memory",
		DeviceIDPath:    "~/.padctl/device.yaml",
	}
}

// envPrefix is the environment variable prefix for padctl configuration.
// Variables are named PADCTL_<KEY>, e.g. PADCTL_LOG_LEVEL -> log_level.
const envPrefix = "PADCTL_"

// Load reads a YAML config file at path, overlays environment variable
// overrides (PADCTL_ prefix), and merges on top of DefaultConfig().
// A missing file is not an error: Load falls back to defaults and env
// overrides alone.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("config: load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return cfg, nil
}

// envKeyMapper transforms PADCTL_LOG_LEVEL -> log_level.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(s)
}

func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"log_level":            defaults.LogLevel,
		"log_format":           defaults.LogFormat,
		"output_format":        defaults.OutputFormat,
		"scan_timeout":         defaults.ScanTimeout.String(),
		"device_timeout":       defaults.DeviceTimeout.String(),
		"connect_timeout":      defaults.ConnectTimeout.String(),
		"write_timeout":        defaults.WriteTimeout.String(),
		"notification_timeout": defaults.NotificationTimeout.String(),
		"poll_interval":        defaults.PollInterval.String(),
		"storage_provider":     defaults.StorageProvider,
		"device_id_path":       defaults.DeviceIDPath,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	ErrInvalidStorageProvider = errors.New("storage_provider must be memory, file, or none")
	ErrInvalidOutputFormat    = errors.New("output_format must be table or json")
)

var validStorageProviders = map[string]bool{"memory": true, "file": true, "none": true}
var validOutputFormats = map[string]bool{"table": true, "json": true}

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if !validStorageProviders[cfg.StorageProvider] {
		return fmt.Errorf("%w: got %q", ErrInvalidStorageProvider, cfg.StorageProvider)
	}
	if !validOutputFormats[cfg.OutputFormat] {
		return fmt.Errorf("%w: got %q", ErrInvalidOutputFormat, cfg.OutputFormat)
	}
	return nil
}

// ParseLogLevel maps a configured log level string to a slog.Level,
// defaulting to info on anything unrecognized.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a structured logger from c.LogLevel/c.LogFormat, backed
// by a shared slog.LevelVar so callers can adjust verbosity at runtime.
func (c *Config) NewLogger(level *slog.LevelVar) *slog.Logger {
	if level == nil {
		level = new(slog.LevelVar)
	}
	level.Set(ParseLogLevel(c.LogLevel))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch c.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
