package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/template"
)

var (
	promptProject string
	promptVars    []string
)

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptProject, "project", "", "Inject this project's context into the {context} variable")
	promptCmd.Flags().StringArrayVar(&promptVars, "var", nil, "Template variable as key=value (repeatable)")
}

var promptCmd = &cobra.Command{
	Use:   "prompt <template>",
	Short: "Expand a prompt template, optionally with project context",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrompt,
}

func runPrompt(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	raw, err := parseKeyValues(promptVars)
	if err != nil {
		return err
	}
	vars := make(map[string]string, len(raw))
	for k, v := range raw {
		vars[k] = fmt.Sprint(v)
	}

	projectID := ""
	if promptProject != "" {
		p, err := resolveProject(store, promptProject)
		if err != nil {
			return err
		}
		projectID = p.ID
	}

	engine := template.NewEngine(store)
	out, err := engine.ExpandWithContext(args[0], vars, projectID)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
