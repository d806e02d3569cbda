package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thamam/claude-hub/internal/stats"
)

// --- Input/Output types ---

// LogToolInput defines parameters for hub_log_tool.
type LogToolInput struct {
	Tool     string         `json:"tool" jsonschema:"name of the tool that was invoked"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"extra fields to record with the event"`
}

// LogToolOutput confirms the record.
type LogToolOutput struct {
	Logged    bool   `json:"logged"`
	Backend   string `json:"backend"`
	SessionID string `json:"session_id"`
}

// LogSkillInput defines parameters for hub_log_skill.
type LogSkillInput struct {
	Skill    string         `json:"skill" jsonschema:"name of the skill that was invoked"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"extra fields to record with the event"`
}

// LogSubagentInput defines parameters for hub_log_subagent.
type LogSubagentInput struct {
	Subagent string         `json:"subagent" jsonschema:"name of the subagent that was invoked"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"extra fields to record with the event"`
}

// UsageStatsInput defines parameters for hub_usage_stats.
type UsageStatsInput struct {
	Tool    string `json:"tool,omitempty" jsonschema:"restrict to one tool"`
	Session string `json:"session,omitempty" jsonschema:"restrict to one session id"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 20)"`
}

// UsageStatsOutput holds the aggregated rows.
type UsageStatsOutput struct {
	Total int             `json:"total"`
	Tools []UsageStatsRow `json:"tools"`
}

// UsageStatsRow is one per-tool aggregate.
type UsageStatsRow struct {
	Tool         string `json:"tool"`
	Invocations  int    `json:"invocations"`
	SessionsUsed int    `json:"sessions_used"`
}

// --- Handlers ---

func (s *Server) handleLogTool(ctx context.Context, req *mcpsdk.CallToolRequest, input LogToolInput) (*mcpsdk.CallToolResult, LogToolOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.logger.LogToolUsage(input.Tool, input.Metadata); err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, LogToolOutput{}, err
	}
	return nil, LogToolOutput{
		Logged:    true,
		Backend:   s.logger.Backend(),
		SessionID: s.logger.Session().ID,
	}, nil
}

func (s *Server) handleLogSkill(ctx context.Context, req *mcpsdk.CallToolRequest, input LogSkillInput) (*mcpsdk.CallToolResult, LogToolOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.logger.LogSkill(input.Skill, input.Metadata); err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, LogToolOutput{}, err
	}
	return nil, LogToolOutput{
		Logged:    true,
		Backend:   s.logger.Backend(),
		SessionID: s.logger.Session().ID,
	}, nil
}

func (s *Server) handleLogSubagent(ctx context.Context, req *mcpsdk.CallToolRequest, input LogSubagentInput) (*mcpsdk.CallToolResult, LogToolOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.logger.LogSubagent(input.Subagent, input.Metadata); err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, LogToolOutput{}, err
	}
	return nil, LogToolOutput{
		Logged:    true,
		Backend:   s.logger.Backend(),
		SessionID: s.logger.Session().ID,
	}, nil
}

func (s *Server) handleUsageStats(ctx context.Context, req *mcpsdk.CallToolRequest, input UsageStatsInput) (*mcpsdk.CallToolResult, UsageStatsOutput, error) {
	reader, err := stats.OpenReader(s.dbPath)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, UsageStatsOutput{}, err
	}
	defer func() { _ = reader.Close() }()

	total, err := reader.TotalEntries()
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, UsageStatsOutput{}, err
	}

	rows, err := reader.ToolStats(stats.Filter{Tool: input.Tool, Session: input.Session})
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, UsageStatsOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	out := UsageStatsOutput{Total: total}
	for _, r := range rows {
		out.Tools = append(out.Tools, UsageStatsRow{
			Tool:         r.Tool,
			Invocations:  r.Invocations,
			SessionsUsed: r.SessionsUsed,
		})
	}
	return nil, out, nil
}
