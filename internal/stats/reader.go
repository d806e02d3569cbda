// Package stats is the read side of the usage log: aggregation queries
// over persisted state, with date/tool/session filters and CSV export.
// Nothing here writes to the log.
package stats

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thamam/claude-hub/internal/usage"
)

// Filter narrows a stats query. Zero time bounds mean unbounded; From is
// inclusive, To exclusive.
type Filter struct {
	From    time.Time
	To      time.Time
	Tool    string
	Session string
}

// ToolStat is one row of per-tool aggregation.
type ToolStat struct {
	Tool         string
	Invocations  int
	SessionsUsed int
}

// NameStat is one row of per-skill or per-subagent aggregation.
type NameStat struct {
	Name         string
	Invocations  int
	SessionsUsed int
}

// SessionStat summarizes one session.
type SessionStat struct {
	SessionID        string
	SessionName      string
	TotalInvocations int
	UniqueTools      int
	FirstEvent       string
	LastEvent        string
}

// Entry is one raw log row.
type Entry struct {
	ID           int64
	Timestamp    string
	Tool         string
	SessionID    string
	SessionName  string
	SkillName    string
	SubagentName string
	Metadata     string
}

// TimePoint is one (day, tool) bucket of the export time series.
type TimePoint struct {
	Date        string
	Tool        string
	Invocations int
}

// Reader runs aggregation queries against the SQLite store. It opens its
// own connection, independent of any writer.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens the database read side. A missing database file is an
// error — the operator should migrate first.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stats: database not found at %s (run migrate first): %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("stats: open database: %w", err)
	}
	return &Reader{db: db, path: path}, nil
}

// Close releases the read connection.
func (r *Reader) Close() error { return r.db.Close() }

// Path returns the database file location.
func (r *Reader) Path() string { return r.path }

// TotalEntries returns the number of logged records.
func (r *Reader) TotalEntries() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM usage_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("stats: count entries: %w", err)
	}
	return n, nil
}

// DateRange returns the earliest and latest logged timestamps, empty
// strings when the log is empty.
func (r *Reader) DateRange() (first, last string, err error) {
	var min, max sql.NullString
	if err := r.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM usage_log").Scan(&min, &max); err != nil {
		return "", "", fmt.Errorf("stats: date range: %w", err)
	}
	return min.String, max.String, nil
}

// whereClause renders the filter into SQL conditions. Time bounds use the
// fixed timestamp encoding, so lexicographic compare is chronological.
func whereClause(f Filter) (string, []any) {
	clause := " WHERE 1=1"
	var args []any

	if !f.From.IsZero() {
		clause += " AND timestamp >= ?"
		args = append(args, f.From.UTC().Format(usage.TimeLayout))
	}
	if !f.To.IsZero() {
		clause += " AND timestamp < ?"
		args = append(args, f.To.UTC().Format(usage.TimeLayout))
	}
	if f.Tool != "" {
		clause += " AND tool_name = ?"
		args = append(args, f.Tool)
	}
	if f.Session != "" {
		clause += " AND session_id = ?"
		args = append(args, f.Session)
	}
	return clause, args
}

// ToolStats aggregates invocations per tool, most used first.
func (r *Reader) ToolStats(f Filter) ([]ToolStat, error) {
	clause, args := whereClause(f)
	rows, err := r.db.Query(`
		SELECT tool_name, COUNT(*), COUNT(DISTINCT session_id)
		FROM usage_log`+clause+`
		GROUP BY tool_name ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: tool stats: %w", err)
	}
	defer rows.Close()

	var out []ToolStat
	for rows.Next() {
		var s ToolStat
		if err := rows.Scan(&s.Tool, &s.Invocations, &s.SessionsUsed); err != nil {
			return nil, fmt.Errorf("stats: scan tool stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SkillStats aggregates skill invocations, most used first.
func (r *Reader) SkillStats(f Filter) ([]NameStat, error) {
	return r.nameStats("skill_name", f)
}

// SubagentStats aggregates subagent invocations, most used first.
func (r *Reader) SubagentStats(f Filter) ([]NameStat, error) {
	return r.nameStats("subagent_name", f)
}

func (r *Reader) nameStats(column string, f Filter) ([]NameStat, error) {
	clause, args := whereClause(f)
	rows, err := r.db.Query(`
		SELECT `+column+`, COUNT(*), COUNT(DISTINCT session_id)
		FROM usage_log`+clause+`
		AND `+column+` IS NOT NULL AND `+column+` != ''
		GROUP BY `+column+` ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: %s stats: %w", column, err)
	}
	defer rows.Close()

	var out []NameStat
	for rows.Next() {
		var s NameStat
		if err := rows.Scan(&s.Name, &s.Invocations, &s.SessionsUsed); err != nil {
			return nil, fmt.Errorf("stats: scan %s stats: %w", column, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionStats returns the most recently active sessions, newest first,
// via the session_summary view.
func (r *Reader) SessionStats(limit int) ([]SessionStat, error) {
	rows, err := r.db.Query(`
		SELECT session_id, session_name, total_invocations, unique_tools,
		       first_event, last_event
		FROM session_summary
		ORDER BY last_event DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("stats: session stats: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// SessionDetail returns the summary for one session id, or nil when the
// session has no records.
func (r *Reader) SessionDetail(sessionID string) (*SessionStat, error) {
	rows, err := r.db.Query(`
		SELECT session_id, session_name, total_invocations, unique_tools,
		       first_event, last_event
		FROM session_summary WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("stats: session detail: %w", err)
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return &sessions[0], nil
}

func scanSessions(rows *sql.Rows) ([]SessionStat, error) {
	var out []SessionStat
	for rows.Next() {
		var s SessionStat
		var name sql.NullString
		if err := rows.Scan(&s.SessionID, &name, &s.TotalInvocations,
			&s.UniqueTools, &s.FirstEvent, &s.LastEvent); err != nil {
			return nil, fmt.Errorf("stats: scan session: %w", err)
		}
		s.SessionName = name.String
		if s.SessionName == "" {
			s.SessionName = "unknown"
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionToolBreakdown returns per-tool counts within one session.
func (r *Reader) SessionToolBreakdown(sessionID string) ([]ToolStat, error) {
	return r.ToolStats(Filter{Session: sessionID})
}

// RecentEntries returns the latest raw rows, optionally filtered by tool.
func (r *Reader) RecentEntries(limit int, tool string) ([]Entry, error) {
	clause, args := whereClause(Filter{Tool: tool})
	args = append(args, limit)

	rows, err := r.db.Query(`
		SELECT id, timestamp, tool_name, session_id, session_name,
		       skill_name, subagent_name, metadata
		FROM usage_log`+clause+`
		ORDER BY timestamp DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: recent entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sessionName, skill, subagent, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Tool, &e.SessionID,
			&sessionName, &skill, &subagent, &metadata); err != nil {
			return nil, fmt.Errorf("stats: scan entry: %w", err)
		}
		e.SessionName = sessionName.String
		e.SkillName = skill.String
		e.SubagentName = subagent.String
		e.Metadata = metadata.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// TimeSeries buckets invocations per (day, tool), ordered by day then tool.
func (r *Reader) TimeSeries(f Filter) ([]TimePoint, error) {
	clause, args := whereClause(f)
	rows, err := r.db.Query(`
		SELECT date(timestamp), tool_name, COUNT(*)
		FROM usage_log`+clause+`
		GROUP BY date(timestamp), tool_name
		ORDER BY date(timestamp), tool_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("stats: time series: %w", err)
	}
	defer rows.Close()

	var out []TimePoint
	for rows.Next() {
		var p TimePoint
		if err := rows.Scan(&p.Date, &p.Tool, &p.Invocations); err != nil {
			return nil, fmt.Errorf("stats: scan time series: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExportCSV writes the time series as delimited text with a header row.
// Returns the number of data rows written.
func (r *Reader) ExportCSV(w io.Writer, f Filter) (int, error) {
	points, err := r.TimeSeries(f)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "tool_name", "invocations"}); err != nil {
		return 0, fmt.Errorf("stats: write csv header: %w", err)
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Date, p.Tool, strconv.Itoa(p.Invocations)}); err != nil {
			return 0, fmt.Errorf("stats: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("stats: flush csv: %w", err)
	}
	return len(points), nil
}
