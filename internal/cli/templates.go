package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/template"
)

var (
	templateContent string
	templateFile    string
)

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCreateCmd.Flags().StringVar(&templateContent, "content", "", "Template body with {variable} placeholders")
	templatesCreateCmd.Flags().StringVar(&templateFile, "file", "", "Load the template body from a file")
	templatesCmd.AddCommand(templatesListCmd, templatesShowCmd, templatesCreateCmd)
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List, show, and create prompt templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List builtin and custom templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		infos, err := template.NewEngine(store).List()
		if err != nil {
			return err
		}
		for _, info := range infos {
			line := fmt.Sprintf("%-12s %-8s", info.Name, info.Type)
			if len(info.Variables) > 0 {
				line += "  vars: " + strings.Join(info.Variables, ", ")
			}
			if info.UsageCount > 0 {
				line += fmt.Sprintf("  (used %d times)", info.UsageCount)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a template's raw content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		content, err := template.NewEngine(store).Get(args[0])
		if err != nil {
			return err
		}
		if content == "" {
			return fmt.Errorf("template %q not found", args[0])
		}
		fmt.Println(content)
		return nil
	},
}

var templatesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a custom template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if templateContent == "" && templateFile == "" {
			return fmt.Errorf("one of --content or --file is required")
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		engine := template.NewEngine(store)
		if templateFile != "" {
			if err := engine.LoadFromFile(args[0], templateFile); err != nil {
				return err
			}
		} else {
			if err := engine.Create(args[0], templateContent, nil); err != nil {
				return err
			}
		}
		fmt.Printf("created template %q\n", args[0])
		return nil
	},
}
