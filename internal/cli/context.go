package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/promptctx"
)

var (
	contextProject   string
	contextNoHistory bool
	contextSummary   bool
)

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVar(&contextProject, "project", "", "Project name (default: most recently updated)")
	contextCmd.Flags().BoolVar(&contextNoHistory, "no-history", false, "Skip the task history section")
	contextCmd.Flags().BoolVar(&contextSummary, "summary", false, "Print context metrics instead of the briefing")
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print an optimized project briefing for pasting into a prompt",
	RunE:  runContext,
}

func runContext(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := resolveProject(store, contextProject)
	if err != nil {
		return err
	}

	builder := promptctx.NewBuilder(store, cfg.ContextBudget)

	if contextSummary {
		summary, err := builder.Summarize(p.ID)
		if err != nil {
			return err
		}
		if summary == nil {
			return fmt.Errorf("project %q not found", p.Name)
		}
		fmt.Printf("Project:     %s\n", summary.ProjectName)
		fmt.Printf("Tasks:       %d total (%d completed)\n", summary.Stats.Total, summary.Stats.Completed)
		fmt.Printf("Learnings:   %d\n", summary.LearningCount)
		fmt.Printf("Sessions:    %d active\n", summary.ActiveSessions)
		fmt.Printf("Context:     %d chars (%.0f%% of budget)\n",
			summary.ContextSize, summary.ContextUtilization*100)
		return nil
	}

	include := promptctx.AllSections()
	include.History = !contextNoHistory

	ctx, err := builder.Build(p.ID, include)
	if err != nil {
		return err
	}
	fmt.Println(ctx)
	return nil
}
