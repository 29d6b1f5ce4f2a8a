// Package config loads and validates bridge configuration: the recognized
// limits (MaxTasks, MaxCallbacks, MaxChannels, MaxWorkerPools,
// EnableStatistics, EnableDebugging) plus the logging and introspection
// sub-configs the ambient/domain stack needs.
//
// Sources are layered in a standard precedence order: environment
// variables override the config file, which overrides defaults. Unknown
// JSON keys are rejected with a strict decoder, so unrecognized options
// fail loudly instead of being silently ignored.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vortexlang/cbridge/pkg/common/logging"
)

// LoggingConfig configures the bridge's ambient logger.
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"`
	Output           string `json:"output"`
	Filename         string `json:"filename,omitempty"`
	EnableSanitizing bool   `json:"enable_sanitizing"`
}

// IntrospectionConfig configures the HTTP+WebSocket introspection server
// (pkg/bridge/introspect).
type IntrospectionConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// Config is the bridge's complete configuration: its recognized limits,
// plus the ambient logging and introspection sub-configs.
type Config struct {
	MaxTasks         int64 `json:"max_tasks"`
	MaxCallbacks     int64 `json:"max_callbacks"`
	MaxChannels      int64 `json:"max_channels"`      // advisory
	MaxWorkerPools   int64 `json:"max_worker_pools"`   // advisory
	EnableStatistics bool  `json:"enable_statistics"`
	EnableDebugging  bool  `json:"enable_debugging"`

	Logging       LoggingConfig       `json:"logging"`
	Introspection IntrospectionConfig `json:"introspection"`
}

// Default returns the conservative baseline configuration.
func Default() *Config {
	return &Config{
		MaxTasks:         4096,
		MaxCallbacks:     1024,
		MaxChannels:      1024,
		MaxWorkerPools:   64,
		EnableStatistics: true,
		EnableDebugging:  false,
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			Output:           "console",
			EnableSanitizing: true,
		},
		Introspection: IntrospectionConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8088,
		},
	}
}

// Load reads a JSON config file (if path is non-empty), applies CBRIDGE_*
// environment overrides, validates the result, and returns it. An empty
// path returns Default() with only environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: opening %s: %w", path, err)
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("CBRIDGE_MAX_TASKS"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxTasks = n
		}
	}
	if v, ok := os.LookupEnv("CBRIDGE_MAX_CALLBACKS"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxCallbacks = n
		}
	}
	if v, ok := os.LookupEnv("CBRIDGE_MAX_CHANNELS"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxChannels = n
		}
	}
	if v, ok := os.LookupEnv("CBRIDGE_MAX_WORKER_POOLS"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxWorkerPools = n
		}
	}
	if v, ok := os.LookupEnv("CBRIDGE_ENABLE_STATISTICS"); ok {
		cfg.EnableStatistics = parseBool(v, cfg.EnableStatistics)
	}
	if v, ok := os.LookupEnv("CBRIDGE_ENABLE_DEBUGGING"); ok {
		cfg.EnableDebugging = parseBool(v, cfg.EnableDebugging)
	}
	if v, ok := os.LookupEnv("CBRIDGE_LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("CBRIDGE_LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
	if v, ok := os.LookupEnv("CBRIDGE_LOG_OUTPUT"); ok {
		cfg.Logging.Output = v
	}
	if v, ok := os.LookupEnv("CBRIDGE_LOG_FILE"); ok {
		cfg.Logging.Filename = v
	}
	if v, ok := os.LookupEnv("CBRIDGE_INTROSPECT_ADDR"); ok {
		host, port, err := splitHostPort(v)
		if err == nil {
			cfg.Introspection.Enabled = true
			cfg.Introspection.Host = host
			cfg.Introspection.Port = port
		}
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitHostPort(addr string) (string, int, error) {
	idx := strings.LastIndexByte(addr, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("config: invalid host:port %q", addr)
	}
	port, err := strconv.Atoi(addr[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("config: invalid port in %q: %w", addr, err)
	}
	return addr[:idx], port, nil
}

// Validate checks every field, returning an actionable, specific error
// message for the first one that fails.
func (c *Config) Validate() error {
	if c.MaxTasks <= 0 {
		return fmt.Errorf("config: max_tasks must be positive, got %d", c.MaxTasks)
	}
	if c.MaxCallbacks <= 0 {
		return fmt.Errorf("config: max_callbacks must be positive, got %d", c.MaxCallbacks)
	}
	if c.MaxChannels < 0 {
		return fmt.Errorf("config: max_channels must be >= 0, got %d", c.MaxChannels)
	}
	if c.MaxWorkerPools < 0 {
		return fmt.Errorf("config: max_worker_pools must be >= 0, got %d", c.MaxWorkerPools)
	}
	if _, err := logging.ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: invalid logging.format %q", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "", "console", "file", "both":
	default:
		return fmt.Errorf("config: invalid logging.output %q", c.Logging.Output)
	}
	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.Filename == "" {
		return fmt.Errorf("config: logging.filename required when logging.output is %q", c.Logging.Output)
	}
	if c.Introspection.Enabled && (c.Introspection.Port <= 0 || c.Introspection.Port > 65535) {
		return fmt.Errorf("config: introspection.port must be in (0, 65535], got %d", c.Introspection.Port)
	}
	return nil
}

// SaveToFile writes the configuration as indented JSON, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// NewLogger builds a logging.Logger from the config's Logging section.
func (c *Config) NewLogger() (*logging.Logger, error) {
	log, err := logging.ConfigureFromSettings(c.Logging.Level, c.Logging.Format, c.Logging.Output, c.Logging.Filename)
	if err != nil {
		return nil, err
	}
	log.SetSanitizing(c.Logging.EnableSanitizing)
	return log, nil
}
