// Package usagedb implements the structured SQLite backend for usage
// events: one durable table plus four read-only aggregation views.
package usagedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/thamam/claude-hub/internal/usage"
)

const schema = `
	CREATE TABLE IF NOT EXISTS usage_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp     TEXT,
		tool_name     TEXT NOT NULL,
		session_id    TEXT,
		session_name  TEXT,
		skill_name    TEXT,
		subagent_name TEXT,
		metadata      TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_log(timestamp);
	CREATE INDEX IF NOT EXISTS idx_usage_tool      ON usage_log(tool_name);
	CREATE INDEX IF NOT EXISTS idx_usage_session   ON usage_log(session_id);

	CREATE VIEW IF NOT EXISTS session_summary AS
		SELECT
			session_id,
			session_name,
			COUNT(*)                  AS total_invocations,
			COUNT(DISTINCT tool_name) AS unique_tools,
			MIN(timestamp)            AS first_event,
			MAX(timestamp)            AS last_event
		FROM usage_log
		GROUP BY session_id, session_name;

	CREATE VIEW IF NOT EXISTS tool_popularity AS
		SELECT
			tool_name,
			COUNT(*)                   AS invocations,
			COUNT(DISTINCT session_id) AS sessions_used
		FROM usage_log
		GROUP BY tool_name;

	CREATE VIEW IF NOT EXISTS skill_usage AS
		SELECT
			skill_name,
			COUNT(*)                   AS invocations,
			COUNT(DISTINCT session_id) AS sessions_used
		FROM usage_log
		WHERE skill_name IS NOT NULL AND skill_name != ''
		GROUP BY skill_name;

	CREATE VIEW IF NOT EXISTS subagent_usage AS
		SELECT
			subagent_name,
			COUNT(*)                   AS invocations,
			COUNT(DISTINCT session_id) AS sessions_used
		FROM usage_log
		WHERE subagent_name IS NOT NULL AND subagent_name != ''
		GROUP BY subagent_name;
`

// Store is the SQLite write path for usage events. One connection is
// shared by all threads using one Store; the caller serializes writes.
type Store struct {
	db     *sql.DB
	path   string
	closed bool
}

// Open opens (or creates) the database at path, configures it to wait
// rather than fail when another writer holds the table, and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("usagedb: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usagedb: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("usagedb: pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("usagedb: ensure schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Insert writes one row for the event and commits. Known fields populate
// their columns; remaining extras are serialized into the metadata column
// as a single encoded blob. Calling Insert after Close fails with
// usage.ErrClosed.
func (s *Store) Insert(ev usage.Event) error {
	if s.closed {
		return usage.ErrClosed
	}

	metadata, err := ev.MetadataJSON()
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO usage_log (
			timestamp, tool_name, session_id, session_name,
			skill_name, subagent_name, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp, ev.Tool, ev.SessionID, ev.SessionName,
		nullable(ev.SkillName), nullable(ev.SubagentName), nullable(metadata),
	)
	if err != nil {
		return fmt.Errorf("usagedb: insert event: %w", err)
	}
	return nil
}

// Count returns the number of rows in usage_log.
func (s *Store) Count() (int, error) {
	if s.closed {
		return 0, usage.ErrClosed
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM usage_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("usagedb: count rows: %w", err)
	}
	return n, nil
}

// Close releases the connection. Idempotent: a second call is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
