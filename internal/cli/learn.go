package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	learnProject string
	learnContext string
	learnSession string
	learnList    bool
	learnLimit   int
)

func init() {
	rootCmd.AddCommand(learnCmd)
	learnCmd.Flags().StringVar(&learnProject, "project", "", "Project name (default: most recently updated)")
	learnCmd.Flags().StringVar(&learnContext, "context", "", "Where or why the pattern applies")
	learnCmd.Flags().StringVar(&learnSession, "session", "", "Working session to attach the learning to")
	learnCmd.Flags().BoolVar(&learnList, "list", false, "List recent learnings instead of adding one")
	learnCmd.Flags().IntVar(&learnLimit, "limit", 10, "How many learnings to list")
}

var learnCmd = &cobra.Command{
	Use:   "learn [pattern]",
	Short: "Capture a pattern or decision for future context",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		p, err := resolveProject(store, learnProject)
		if err != nil {
			return err
		}

		if learnList {
			learnings, err := store.Learnings(p.ID, learnSession, learnLimit)
			if err != nil {
				return err
			}
			if len(learnings) == 0 {
				fmt.Println("no learnings yet")
				return nil
			}
			for _, l := range learnings {
				fmt.Printf("- %s\n", l.Pattern)
				if l.Context != "" {
					fmt.Printf("  %s\n", l.Context)
				}
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a pattern argument is required (or use --list)")
		}
		id, err := store.AddLearning(args[0], learnContext, p.ID, learnSession)
		if err != nil {
			return err
		}
		fmt.Printf("captured learning %d for %q\n", id, p.Name)
		return nil
	},
}
