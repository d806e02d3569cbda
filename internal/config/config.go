// Package config holds the file locations and tunables for the hub.
// Defaults live here in the composition layer, not in the core packages.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full hub configuration.
type Config struct {
	// Usage logger storage.
	UsageLog string `yaml:"usage_log"`
	UsageDB  string `yaml:"usage_db"`

	// Conductor storage.
	ConductorDB string `yaml:"conductor_db"`
	Registry    string `yaml:"registry"`

	// Explicit session identity; empty defers to environment overrides.
	SessionID   string `yaml:"session_id"`
	SessionName string `yaml:"session_name"`

	// Character budget for assembled prompt context.
	ContextBudget int `yaml:"context_budget"`
}

// Default returns the built-in configuration, matching the historical
// home-directory layout.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		UsageLog:      filepath.Join(home, ".claude_usage_log.jsonl"),
		UsageDB:       filepath.Join(home, ".claude_usage.db"),
		ConductorDB:   filepath.Join(home, ".conductor", "conductor.db"),
		Registry:      filepath.Join(home, ".conductor", "registry.yaml"),
		ContextBudget: 8000,
	}
}

// DefaultPath is the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude-hub", "config.yaml")
}

// Load reads configuration from a YAML file. Empty path falls back to
// DefaultPath. A missing file returns defaults; invalid YAML is an error.
// The file overwrites only the fields it specifies.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = Default().ContextBudget
	}
	return cfg, nil
}
