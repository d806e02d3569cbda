// Package mcpserver exposes the usage logger over MCP stdio so an
// assistant can record tool invocations and query aggregates directly.
package mcpserver

import (
	"context"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thamam/claude-hub/internal/usagelog"
)

// Config holds MCP server configuration.
type Config struct {
	Logger  *usagelog.Logger
	DBPath  string
	Version string
}

// Server wraps the MCP SDK server around the usage logger.
type Server struct {
	mcpServer *mcpsdk.Server
	logger    *usagelog.Logger
	dbPath    string
	mu        sync.Mutex
}

// New creates the MCP server and registers its tools.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("mcpserver: logger is required")
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		logger: cfg.Logger,
		dbPath: cfg.DBPath,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "claude-hub",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the underlying logger.
func (s *Server) Close() error {
	return s.logger.Close()
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hub_log_tool",
		Description: "Record one tool invocation in the usage log.",
	}, s.handleLogTool)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hub_log_skill",
		Description: "Record one skill invocation in the usage log.",
	}, s.handleLogSkill)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hub_log_subagent",
		Description: "Record one subagent invocation in the usage log.",
	}, s.handleLogSubagent)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hub_usage_stats",
		Description: "Summarize tool usage from the SQLite store: per-tool invocation counts and sessions used.",
	}, s.handleUsageStats)
}
