package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/project"
	"github.com/thamam/claude-hub/internal/scope"
)

var (
	taskProject string
	taskForce   bool
	taskReason  string
	taskStatus  string
	taskSession string
	taskAll     bool
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.PersistentFlags().StringVar(&taskProject, "project", "", "Project name (default: most recently updated)")
	taskAddCmd.Flags().BoolVar(&taskForce, "force", false, "Add even when flagged as scope creep")
	taskBlockCmd.Flags().StringVar(&taskReason, "reason", "", "Why the task is blocked")
	taskCompleteCmd.Flags().StringVar(&taskSession, "session", "", "Working session to credit")
	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (pending/in_progress/completed/blocked)")
	taskListCmd.Flags().BoolVar(&taskAll, "all", false, "Include scope-creep tasks")
	taskCmd.AddCommand(taskAddCmd, taskStartCmd, taskCompleteCmd, taskBlockCmd, taskListCmd)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage project tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a task, checking it against the project scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		p, err := resolveProject(store, taskProject)
		if err != nil {
			return err
		}

		verdict := scope.Check(p.Scope, args[0])
		if verdict.IsCreep && !taskForce {
			fmt.Printf("scope check failed: %s\n", verdict.Reason)
			fmt.Println("use --force to add anyway (the task will be marked as scope creep)")
			return fmt.Errorf("task rejected by scope check")
		}

		id, err := store.AddTask(p.ID, args[0], verdict.IsCreep)
		if err != nil {
			return err
		}
		if verdict.IsCreep {
			fmt.Printf("added task %d to %q (marked as scope creep: %s)\n", id, p.Name, verdict.Reason)
		} else {
			fmt.Printf("added task %d to %q (%s)\n", id, p.Name, verdict.Reason)
		}
		return nil
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Mark a task in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(args[0], project.StatusInProgress, "")
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		if err := store.SetTaskStatus(id, project.StatusCompleted, ""); err != nil {
			return err
		}
		if taskSession != "" {
			if err := store.IncrementSessionTasks(taskSession); err != nil {
				return err
			}
		}
		fmt.Printf("task %d completed\n", id)
		return nil
	},
}

var taskBlockCmd = &cobra.Command{
	Use:   "block <task-id>",
	Short: "Mark a task blocked with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(args[0], project.StatusBlocked, taskReason)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		p, err := resolveProject(store, taskProject)
		if err != nil {
			return err
		}
		tasks, err := store.Tasks(p.ID, taskStatus, taskAll)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("no tasks")
			return nil
		}

		for _, t := range tasks {
			marker := " "
			switch t.Status {
			case project.StatusCompleted:
				marker = "✓"
			case project.StatusInProgress:
				marker = "⟳"
			case project.StatusBlocked:
				marker = "🚫"
			}
			line := fmt.Sprintf("%s %4d  %-12s %s", marker, t.ID, t.Status, t.Description)
			if t.IsScopeCreep {
				line += "  [scope creep]"
			}
			if t.BlockedReason != "" {
				line += fmt.Sprintf("  (%s)", t.BlockedReason)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func setTaskStatus(arg, status, reason string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", arg)
	}
	if err := store.SetTaskStatus(id, status, reason); err != nil {
		return err
	}
	fmt.Printf("task %d -> %s\n", id, status)
	return nil
}
