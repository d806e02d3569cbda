package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/stats"
)

var (
	statsFrom      string
	statsTo        string
	statsTool      string
	statsSession   string
	statsExportCSV string
	statsFromLog   bool
	statsRecent    int
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "Start date (YYYY-MM-DD or today/yesterday/last-week/last-month)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "End date, inclusive (same forms as --from)")
	statsCmd.Flags().StringVar(&statsTool, "tool", "", "Restrict to one tool")
	statsCmd.Flags().StringVar(&statsSession, "session", "", "Restrict to one session id")
	statsCmd.Flags().StringVar(&statsExportCSV, "export-csv", "", "Write the daily time series to a CSV file")
	statsCmd.Flags().BoolVar(&statsFromLog, "log", false, "Read the JSONL log directly instead of SQLite")
	statsCmd.Flags().IntVar(&statsRecent, "recent", 0, "Also show the N most recent entries")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize usage from the SQLite store (or the JSONL log with --log)",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if statsFromLog {
		return runLogStats(cfg.UsageLog)
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	reader, err := stats.OpenReader(cfg.UsageDB)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	if statsExportCSV != "" {
		f, err := os.Create(statsExportCSV)
		if err != nil {
			return fmt.Errorf("create %s: %w", statsExportCSV, err)
		}
		defer func() { _ = f.Close() }()

		n, err := reader.ExportCSV(f, filter)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d rows to %s\n", n, statsExportCSV)
		return nil
	}

	total, err := reader.TotalEntries()
	if err != nil {
		return err
	}
	first, last, err := reader.DateRange()
	if err != nil {
		return err
	}
	fmt.Printf("Total entries: %d\n", total)
	if first != "" {
		fmt.Printf("Date range:    %s .. %s\n", first, last)
	}

	tools, err := reader.ToolStats(filter)
	if err != nil {
		return err
	}
	if len(tools) > 0 {
		fmt.Println("\nTool usage:")
		for _, t := range tools {
			fmt.Printf("  %-24s %6d  (%d sessions)\n", t.Tool, t.Invocations, t.SessionsUsed)
		}
	}

	skills, err := reader.SkillStats(filter)
	if err != nil {
		return err
	}
	if len(skills) > 0 {
		fmt.Println("\nSkills:")
		for _, s := range skills {
			fmt.Printf("  %-24s %6d  (%d sessions)\n", s.Name, s.Invocations, s.SessionsUsed)
		}
	}

	subagents, err := reader.SubagentStats(filter)
	if err != nil {
		return err
	}
	if len(subagents) > 0 {
		fmt.Println("\nSubagents:")
		for _, s := range subagents {
			fmt.Printf("  %-24s %6d  (%d sessions)\n", s.Name, s.Invocations, s.SessionsUsed)
		}
	}

	if statsSession == "" {
		sessions, err := reader.SessionStats(10)
		if err != nil {
			return err
		}
		if len(sessions) > 0 {
			fmt.Println("\nRecent sessions:")
			for _, s := range sessions {
				fmt.Printf("  %-10s %-16s %6d events  %d tools  (last %s)\n",
					s.SessionID, s.SessionName, s.TotalInvocations, s.UniqueTools, s.LastEvent)
			}
		}
	}

	if statsRecent > 0 {
		entries, err := reader.RecentEntries(statsRecent, statsTool)
		if err != nil {
			return err
		}
		fmt.Println("\nRecent entries:")
		for _, e := range entries {
			fmt.Printf("  %s  %-20s session=%s\n", e.Timestamp, e.Tool, e.SessionID)
		}
	}
	return nil
}

func runLogStats(path string) error {
	reader, err := stats.OpenLogReader(path)
	if err != nil {
		return err
	}

	fmt.Printf("Total entries: %d", reader.Total())
	if reader.Skipped() > 0 {
		fmt.Printf("  (%d malformed lines skipped)", reader.Skipped())
	}
	fmt.Println()

	tools := reader.ToolCounts()
	if len(tools) > 0 {
		fmt.Println("\nTool usage:")
		for _, t := range tools {
			fmt.Printf("  %-24s %6d  (%d sessions)\n", t.Tool, t.Invocations, t.SessionsUsed)
		}
	}
	skills := reader.SkillCounts()
	if len(skills) > 0 {
		fmt.Println("\nSkills:")
		for _, s := range skills {
			fmt.Printf("  %-24s %6d  (%d sessions)\n", s.Name, s.Invocations, s.SessionsUsed)
		}
	}
	subagents := reader.SubagentCounts()
	if len(subagents) > 0 {
		fmt.Println("\nSubagents:")
		for _, s := range subagents {
			fmt.Printf("  %-24s %6d  (%d sessions)\n", s.Name, s.Invocations, s.SessionsUsed)
		}
	}
	return nil
}

func buildFilter() (stats.Filter, error) {
	var f stats.Filter
	now := time.Now()

	if statsFrom != "" {
		from, err := stats.ResolveFrom(statsFrom, now)
		if err != nil {
			return f, err
		}
		f.From = from
	}
	if statsTo != "" {
		to, err := stats.ResolveTo(statsTo, now)
		if err != nil {
			return f, err
		}
		f.To = to
	}
	f.Tool = statsTool
	f.Session = statsSession
	return f, nil
}
