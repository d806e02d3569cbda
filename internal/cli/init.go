package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initScope string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initScope, "scope", "", "Project scope declaration (required)")
	_ = initCmd.MarkFlagRequired("scope")
}

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a project with a declared scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		id, err := store.CreateProject(args[0], initScope)
		if err != nil {
			return err
		}
		fmt.Printf("created project %q (%s)\n", args[0], id)
		fmt.Printf("scope: %s\n", initScope)
		return nil
	},
}
