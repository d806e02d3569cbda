package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thamam/claude-hub/internal/usagelog"
)

var (
	logMeta    []string
	logSession string
	logName    string
)

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.PersistentFlags().StringArrayVar(&logMeta, "meta", nil, "Extra metadata as key=value (repeatable)")
	logCmd.PersistentFlags().StringVar(&logSession, "session", "", "Explicit session id")
	logCmd.PersistentFlags().StringVar(&logName, "session-name", "", "Explicit session name")
	logCmd.AddCommand(logToolCmd, logSkillCmd, logSubagentCmd)
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record a usage event",
}

var logToolCmd = &cobra.Command{
	Use:   "tool <name>",
	Short: "Record one tool invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLog(func(l *usagelog.Logger, extras map[string]any) error {
			return l.LogToolUsage(args[0], extras)
		})
	},
}

var logSkillCmd = &cobra.Command{
	Use:   "skill <name>",
	Short: "Record one skill invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLog(func(l *usagelog.Logger, extras map[string]any) error {
			return l.LogSkill(args[0], extras)
		})
	},
}

var logSubagentCmd = &cobra.Command{
	Use:   "subagent <name>",
	Short: "Record one subagent invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLog(func(l *usagelog.Logger, extras map[string]any) error {
			return l.LogSubagent(args[0], extras)
		})
	},
}

func runLog(write func(*usagelog.Logger, map[string]any) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	extras, err := parseKeyValues(logMeta)
	if err != nil {
		return err
	}

	warn, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = warn.Sync() }()

	logger, err := usagelog.New(usagelog.Config{
		LogPath:     cfg.UsageLog,
		DBPath:      cfg.UsageDB,
		SessionID:   firstNonEmpty(logSession, cfg.SessionID),
		SessionName: firstNonEmpty(logName, cfg.SessionName),
	}, warn)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if err := write(logger, extras); err != nil {
		return err
	}
	fmt.Printf("logged (%s backend, session %s)\n", logger.Backend(), logger.Session().ID)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
