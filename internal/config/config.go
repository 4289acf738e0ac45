// Package config provides unified configuration for the drift CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds everything a reconciliation run needs: the remote target, the
// desired schema location, and the planning policy.
type Config struct {
	// Endpoint is the base URL of the backend schema API.
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`

	// AppID identifies the application against the backend.
	AppID string `json:"app_id" yaml:"app_id" toml:"app_id"`

	// MasterKey authorizes schema mutations. Usually supplied via the
	// DRIFT_MASTER_KEY environment variable rather than a file.
	MasterKey string `json:"master_key" yaml:"master_key" toml:"master_key"`

	// SchemaFile is the path to the desired schema (JSON or YAML).
	SchemaFile string `json:"schema_file" yaml:"schema_file" toml:"schema_file"`

	// HTTPTimeout bounds each request to the backend.
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout" toml:"http_timeout"`

	// HookURL is an optional prefix applied to every function and trigger
	// URL before comparison and emission.
	HookURL string `json:"hook_url" yaml:"hook_url" toml:"hook_url"`

	// IgnoreIndexes disables index management entirely.
	IgnoreIndexes bool `json:"ignore_indexes" yaml:"ignore_indexes" toml:"ignore_indexes"`

	// DisallowColumnRedefine aborts when the plan would update or delete
	// an existing column.
	DisallowColumnRedefine bool `json:"disallow_column_redefine" yaml:"disallow_column_redefine" toml:"disallow_column_redefine"`

	// DisallowIndexRedefine aborts when the plan would update or delete
	// an existing index.
	DisallowIndexRedefine bool `json:"disallow_index_redefine" yaml:"disallow_index_redefine" toml:"disallow_index_redefine"`

	// IgnoredPermissionKeys are permission actions excluded from
	// comparison. Empty keeps the planner default.
	IgnoredPermissionKeys []string `json:"ignored_permission_keys" yaml:"ignored_permission_keys" toml:"ignored_permission_keys"`

	// PrivateIndexPrefix marks system-managed index names excluded from
	// deletion planning. Empty keeps the planner default.
	PrivateIndexPrefix string `json:"private_index_prefix" yaml:"private_index_prefix" toml:"private_index_prefix"`

	// ManagePrivateIndexes turns off private-index protection: observed
	// indexes matching the private prefix are planned for deletion like any
	// other index.
	ManagePrivateIndexes bool `json:"manage_private_indexes" yaml:"manage_private_indexes" toml:"manage_private_indexes"`

	// LogLevel is the zerolog level: debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: 30 * time.Second,
		LogLevel:    "info",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.AppID == "" {
		return fmt.Errorf("app_id is required")
	}
	if c.SchemaFile == "" {
		return fmt.Errorf("schema_file is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %v", c.HTTPTimeout)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML, JSON, or TOML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DRIFT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DRIFT_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("DRIFT_APP_ID"); v != "" {
		cfg.AppID = v
	}
	if v := os.Getenv("DRIFT_MASTER_KEY"); v != "" {
		cfg.MasterKey = v
	}
	if v := os.Getenv("DRIFT_SCHEMA_FILE"); v != "" {
		cfg.SchemaFile = v
	}
	if v := os.Getenv("DRIFT_HOOK_URL"); v != "" {
		cfg.HookURL = v
	}
	if v := os.Getenv("DRIFT_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("DRIFT_IGNORE_INDEXES"); v != "" {
		cfg.IgnoreIndexes = v == "true" || v == "1"
	}
	if v := os.Getenv("DRIFT_DISALLOW_COLUMN_REDEFINE"); v != "" {
		cfg.DisallowColumnRedefine = v == "true" || v == "1"
	}
	if v := os.Getenv("DRIFT_DISALLOW_INDEX_REDEFINE"); v != "" {
		cfg.DisallowIndexRedefine = v == "true" || v == "1"
	}
	if v := os.Getenv("DRIFT_PRIVATE_INDEX_PREFIX"); v != "" {
		cfg.PrivateIndexPrefix = v
	}
	if v := os.Getenv("DRIFT_MANAGE_PRIVATE_INDEXES"); v != "" {
		cfg.ManagePrivateIndexes = v == "true" || v == "1"
	}
	if v := os.Getenv("DRIFT_IGNORED_PERMISSION_KEYS"); v != "" {
		parts := strings.Split(v, ",")
		keys := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				keys = append(keys, p)
			}
		}
		cfg.IgnoredPermissionKeys = keys
	}
	if v := os.Getenv("DRIFT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
