package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/progress"
)

var (
	sessionProject string
	sessionMachine string
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.PersistentFlags().StringVar(&sessionProject, "project", "", "Project name (default: most recently updated)")
	sessionStartCmd.Flags().StringVar(&sessionMachine, "machine", "", "Machine identifier (default: hostname)")
	sessionCmd.AddCommand(sessionStartCmd, sessionEndCmd, sessionListCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage working sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a working session against a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		p, err := resolveProject(store, sessionProject)
		if err != nil {
			return err
		}
		id, err := store.StartSession(p.ID, sessionMachine)
		if err != nil {
			return err
		}
		fmt.Printf("started session %s on %q\n", id, p.Name)
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a working session and print its productivity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := store.EndSession(args[0]); err != nil {
			return err
		}

		report, err := progress.NewMonitor(store).AnalyzeSession(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("session %s ended\n", report.SessionID)
		fmt.Printf("  duration: %.2f hours\n", report.DurationHours)
		fmt.Printf("  tasks completed: %d (%.2f/hour)\n", report.TasksCompleted, report.TasksPerHour)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		projectID := ""
		if sessionProject != "" {
			p, err := resolveProject(store, sessionProject)
			if err != nil {
				return err
			}
			projectID = p.ID
		}

		sessions, err := store.ActiveSessions(projectID)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no active sessions")
			return nil
		}
		for _, ws := range sessions {
			fmt.Printf("%s  project=%s machine=%s started=%s tasks=%d\n",
				ws.ID, ws.ProjectID, ws.MachineID, ws.StartedAt, ws.TasksCompleted)
		}
		return nil
	},
}
