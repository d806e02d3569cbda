package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/progress"
)

var reportProject string

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportProject, "project", "", "Project name (default: most recently updated)")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the full productivity report for a project",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := resolveProject(store, reportProject)
	if err != nil {
		return err
	}

	monitor := progress.NewMonitor(store)
	report, err := monitor.BuildReport(p.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", report.Project.Name)
	fmt.Printf("Scope:   %s\n", report.Project.Scope)
	fmt.Printf("Created: %s   Updated: %s\n", report.Project.CreatedAt, report.Project.UpdatedAt)

	fmt.Printf("\nCompletion: %d%% (%d/%d, %d remaining)\n",
		report.CompletionPct, report.Stats.Completed, report.Stats.Total,
		report.Stats.Pending+report.Stats.InProgress)
	fmt.Printf("Health:     %d/100 (%s)\n", report.Health.Score, report.Health.Status)
	for _, issue := range report.Health.Issues {
		fmt.Printf("  - %s\n", issue)
	}

	v := report.Velocity
	fmt.Printf("\nVelocity (last %d days): %d completed, %.2f/day\n",
		v.PeriodDays, v.TasksCompleted, v.TasksPerDay)
	if v.EstimatedDays >= 0 {
		fmt.Printf("Estimated completion: %.1f days (%d tasks remaining)\n",
			v.EstimatedDays, v.RemainingTasks)
	}

	if len(report.StuckIndicators) > 0 {
		fmt.Println("\nStuck indicators:")
		for _, s := range report.StuckIndicators {
			fmt.Printf("  [%s] %s: %s\n", s.Severity, s.Type, s.Suggestion)
		}
	}

	fmt.Printf("\nTime: %.2f hours over %d sessions (avg %.2f)\n",
		report.TotalHours, len(report.Sessions), report.AvgSessionHours)

	recs, err := monitor.Recommendations(p.ID)
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range recs {
			fmt.Printf("  - %s\n", r)
		}
	}
	return nil
}
