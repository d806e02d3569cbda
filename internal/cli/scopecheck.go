package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/scope"
)

var scopeCheckProject string

func init() {
	rootCmd.AddCommand(scopeCheckCmd)
	scopeCheckCmd.Flags().StringVar(&scopeCheckProject, "project", "", "Project name (default: most recently updated)")
}

var scopeCheckCmd = &cobra.Command{
	Use:   "scope-check <task description>",
	Short: "Check a proposed task against the project scope without adding it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		p, err := resolveProject(store, scopeCheckProject)
		if err != nil {
			return err
		}

		verdict := scope.Check(p.Scope, args[0])
		if verdict.IsCreep {
			fmt.Printf("OUT OF SCOPE: %s\n", verdict.Reason)
			return nil
		}
		fmt.Printf("in scope: %s\n", verdict.Reason)
		return nil
	},
}
