package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/progress"
)

var statusProject string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusProject, "project", "", "Project name (default: most recently updated)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project progress, health, and the suggested next action",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := resolveProject(store, statusProject)
	if err != nil {
		return err
	}

	stats, err := store.Stats(p.ID)
	if err != nil {
		return err
	}

	monitor := progress.NewMonitor(store)
	health, err := monitor.GetHealth(p.ID)
	if err != nil {
		return err
	}
	next, err := monitor.SuggestNextAction(p.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", p.Name)
	fmt.Printf("Scope:   %s\n", p.Scope)
	pct := 0
	if stats.Total > 0 {
		pct = stats.Completed * 100 / stats.Total
	}
	fmt.Printf("Progress: %d%% (%d/%d tasks)\n", pct, stats.Completed, stats.Total)
	fmt.Printf("  pending %d, in progress %d, blocked %d\n",
		stats.Pending, stats.InProgress, stats.Blocked)
	fmt.Printf("Health:  %d/100 (%s)\n", health.Score, health.Status)
	for _, issue := range health.Issues {
		fmt.Printf("  - %s\n", issue)
	}

	fmt.Printf("Next:    %s", next.Action)
	if next.Description != "" {
		fmt.Printf(" task %d: %s", next.TaskID, next.Description)
	}
	fmt.Printf("\n  %s\n", next.Reason)
	return nil
}
