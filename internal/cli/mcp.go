package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thamam/claude-hub/internal/mcpserver"
	"github.com/thamam/claude-hub/internal/usagelog"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server for agent integration",
	Long: "Runs the hub as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: hub_log_tool, hub_log_skill, hub_log_subagent, hub_usage_stats.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
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
		SessionID:   cfg.SessionID,
		SessionName: cfg.SessionName,
	}, warn)
	if err != nil {
		return err
	}

	srv, err := mcpserver.New(mcpserver.Config{
		Logger:  logger,
		DBPath:  cfg.UsageDB,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "claude-hub MCP server running on stdio")
	return srv.Run(ctx)
}
