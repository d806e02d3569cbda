package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/registry"
)

var (
	toolsContext  string
	toolsCategory string
)

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringVar(&toolsContext, "context", "", "Score entries against this task description")
	toolsCmd.Flags().StringVar(&toolsCategory, "category", "", "Restrict to one category")
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered MCP servers, skills, and subagents",
	Long: "Reads the tool registry and lists everything, or with --context scores\n" +
		"entries by relevance to a task description.",
	RunE: runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return err
	}

	if toolsContext == "" {
		fmt.Println("MCP servers:")
		for _, m := range reg.AllMCPServers(toolsCategory) {
			printMatch(m, false)
		}
		fmt.Println("\nSkills:")
		for _, m := range reg.AllSkills(toolsCategory) {
			printMatch(m, false)
		}
		fmt.Println("\nSubagents:")
		for _, a := range reg.Subagents() {
			fmt.Printf("  %-20s %s\n", a.Name, a.Description)
		}
		return nil
	}

	servers := reg.RelevantMCPServers(toolsContext, toolsCategory)
	if len(servers) > 0 {
		fmt.Println("Relevant MCP servers:")
		for _, m := range servers {
			printMatch(m, true)
		}
	}
	skills := reg.RelevantSkills(toolsContext, toolsCategory)
	if len(skills) > 0 {
		fmt.Println("\nRelevant skills:")
		for _, m := range skills {
			printMatch(m, true)
		}
	}
	subagents := reg.RelevantSubagents(toolsContext)
	if len(subagents) > 0 {
		fmt.Println("\nRelevant subagents:")
		for _, m := range subagents {
			line := fmt.Sprintf("  %-20s %.2f", m.Name, m.Relevance)
			if len(m.MatchedTriggers) > 0 {
				line += "  matched: " + strings.Join(m.MatchedTriggers, ", ")
			}
			fmt.Println(line)
		}
	}
	if len(servers)+len(skills)+len(subagents) == 0 {
		fmt.Println("nothing relevant found")
	}
	return nil
}

func printMatch(m registry.Match, scored bool) {
	line := fmt.Sprintf("  %-20s", m.Name)
	if m.Category != "" {
		line += fmt.Sprintf(" [%s]", m.Category)
	}
	if scored {
		line += fmt.Sprintf(" %.2f", m.Relevance)
	}
	if m.Description != "" {
		line += "  " + m.Description
	}
	fmt.Println(line)
}
