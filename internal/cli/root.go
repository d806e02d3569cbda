// Package cli wires the hub's commands: usage logging, stats, the
// JSONL-to-SQLite migration, live watching, the MCP server, and the
// conductor's project tracking.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/config"
	"github.com/thamam/claude-hub/internal/project"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "claude-hub",
	Short: "Usage logging and project conductor for AI coding sessions",
	Long: "Records tool, skill, and subagent invocations to a JSONL log or SQLite store,\n" +
		"aggregates usage statistics, and tracks project scope, tasks, and sessions.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.claude-hub/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// openStore opens the conductor database from config.
func openStore() (*project.Store, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	store, err := project.Open(cfg.ConductorDB)
	if err != nil {
		return nil, cfg, err
	}
	return store, cfg, nil
}

// resolveProject finds a project by name, or the most recently updated
// one when name is empty.
func resolveProject(store *project.Store, name string) (*project.Project, error) {
	if name != "" {
		p, err := store.GetProject(name)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("project %q not found", name)
		}
		return p, nil
	}

	projects, err := store.Projects()
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects yet (run 'claude-hub init' first)")
	}
	return &projects[0], nil
}

// parseKeyValues turns repeated key=value flags into a metadata map.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
