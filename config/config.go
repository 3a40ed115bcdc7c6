// Package config provides manifest loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root manifest structure.
type Config struct {
	Root         string            `yaml:"root"`
	Injection    string            `yaml:"injection"`
	IDs          IDConfig          `yaml:"ids"`
	Globals      map[string]string `yaml:"globals"`
	EnvGlobals   EnvGlobalsConfig  `yaml:"env_globals"`
	Dependencies map[string]any    `yaml:"dependencies"`
	Modules      []ModuleConfig    `yaml:"modules"`
	Server       ServerConfig      `yaml:"server"`
	Logging      LoggingConfig     `yaml:"logging"`
	Metrics      MetricsConfig     `yaml:"metrics"`
}

// IDConfig selects the module ID generator.
type IDConfig struct {
	Kind   string `yaml:"kind"` // "uuid" or "sequential"
	Prefix string `yaml:"prefix,omitempty"`
}

// EnvGlobalsConfig exposes process environment variables as ambient
// globals.
type EnvGlobalsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// ModuleConfig declares a module path and the definition run against it.
type ModuleConfig struct {
	Path     string         `yaml:"path"`
	Requires []string       `yaml:"requires,omitempty"` // resolved by name
	Args     []any          `yaml:"args,omitempty"`     // positional injection only
	Props    map[string]any `yaml:"props,omitempty"`
}

// ServerConfig configures the inspector HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads a manifest from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest, expanding ${VAR} references first and applying
// OCKY_* overrides and defaults after.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates a manifest from environment variables alone. It
// declares no modules or dependencies.
//
// Environment variables:
//
//	OCKY_ROOT                - Root module name (default: App)
//	OCKY_INJECTION           - name or positional (default: name)
//	OCKY_IDS                 - uuid or sequential (default: uuid)
//	OCKY_ENV_GLOBALS_ENABLED - Expose the environment as globals (default: false)
//	OCKY_ENV_GLOBALS_PREFIX  - Prefix for environment globals
//	OCKY_SERVER_HOST         - Inspector host (default: 127.0.0.1)
//	OCKY_SERVER_PORT         - Inspector port (default: 7070)
//	OCKY_LOG_LEVEL           - debug, info, warn, error (default: info)
//	OCKY_LOG_FORMAT          - json or console (default: json)
//	OCKY_METRICS_ENABLED     - Enable /metrics (default: false)
//	OCKY_METRICS_PATH        - Metrics path (default: /metrics)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to
// LoadFromEnv otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies OCKY_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OCKY_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("OCKY_INJECTION"); v != "" {
		cfg.Injection = v
	}
	if v := os.Getenv("OCKY_IDS"); v != "" {
		cfg.IDs.Kind = v
	}

	if v := os.Getenv("OCKY_ENV_GLOBALS_ENABLED"); v != "" {
		cfg.EnvGlobals.Enabled = parseBool(v)
	}
	if v := os.Getenv("OCKY_ENV_GLOBALS_PREFIX"); v != "" {
		cfg.EnvGlobals.Prefix = v
	}

	if v := os.Getenv("OCKY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OCKY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OCKY_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("OCKY_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("OCKY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OCKY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("OCKY_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("OCKY_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Root == "" {
		cfg.Root = "App"
	}
	if cfg.Injection == "" {
		cfg.Injection = "name"
	}
	if cfg.IDs.Kind == "" {
		cfg.IDs.Kind = "uuid"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7070
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

var (
	rootName    = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	segmentName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

func validate(cfg *Config) error {
	if !rootName.MatchString(cfg.Root) {
		return fmt.Errorf("root must match %s, got %q", rootName, cfg.Root)
	}

	validModes := map[string]bool{"name": true, "positional": true}
	if !validModes[cfg.Injection] {
		return fmt.Errorf("injection must be 'name' or 'positional', got %q", cfg.Injection)
	}

	validIDs := map[string]bool{"uuid": true, "sequential": true}
	if !validIDs[cfg.IDs.Kind] {
		return fmt.Errorf("ids.kind must be 'uuid' or 'sequential', got %q", cfg.IDs.Kind)
	}

	for name := range cfg.Globals {
		if name == "" {
			return fmt.Errorf("globals: empty name")
		}
	}
	for name := range cfg.Dependencies {
		if name == "" {
			return fmt.Errorf("dependencies: empty name")
		}
	}

	for i, m := range cfg.Modules {
		if m.Path == "" {
			return fmt.Errorf("modules[%d].path is required", i)
		}
		for _, segment := range strings.Split(m.Path, ".") {
			if !segmentName.MatchString(segment) {
				return fmt.Errorf("modules[%d].path %q has an invalid segment %q", i, m.Path, segment)
			}
		}
		if len(m.Args) > 0 && cfg.Injection != "positional" {
			return fmt.Errorf("modules[%d].args requires injection 'positional'", i)
		}
		if len(m.Requires) > 0 && cfg.Injection == "positional" {
			return fmt.Errorf("modules[%d].requires is not supported with injection 'positional'", i)
		}
		for j, name := range m.Requires {
			if !segmentName.MatchString(name) {
				return fmt.Errorf("modules[%d].requires[%d] %q is not a valid parameter name", i, j, name)
			}
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
