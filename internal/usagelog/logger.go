// Package usagelog is the logging facade: it picks the persistence
// backend, serializes concurrent writes behind one lock, and owns the
// resource lifecycle.
//
// Close is part of the API contract. Callers that do not use Log within a
// narrow scope must defer Close; there is no implicit finalization.
package usagelog

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/thamam/claude-hub/internal/jsonl"
	"github.com/thamam/claude-hub/internal/usage"
	"github.com/thamam/claude-hub/internal/usagedb"
)

// Backend kinds reported by Logger.Backend.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// backend is the write path the facade dispatches to. Exactly one is
// active per Logger instance.
type backend interface {
	Write(usage.Event) error
	Close() error
}

type jsonlBackend struct{ app *jsonl.Appender }

func (b jsonlBackend) Write(ev usage.Event) error { return b.app.Append(ev) }
func (b jsonlBackend) Close() error               { return b.app.Close() }

type sqliteBackend struct{ store *usagedb.Store }

func (b sqliteBackend) Write(ev usage.Event) error { return b.store.Insert(ev) }
func (b sqliteBackend) Close() error               { return b.store.Close() }

// Config selects the storage locations and optional explicit session
// identity. Defaults come from the composition layer, not from here.
type Config struct {
	LogPath     string
	DBPath      string
	SessionID   string
	SessionName string
}

// Logger is the usage-logging facade. Safe for concurrent use: a single
// lock is held for the full duration of each write, so records become
// durable in lock-acquisition order.
type Logger struct {
	mu      sync.Mutex
	backend backend
	kind    string
	session usage.Session
	warn    *zap.Logger
	closed  bool
}

// New opens the configured backend and resolves the session identity.
// SQLite is used when the database file already exists, JSONL otherwise.
// warn receives degraded-write notices; nil means no side channel.
func New(cfg Config, warn *zap.Logger) (*Logger, error) {
	if warn == nil {
		warn = zap.NewNop()
	}

	l := &Logger{
		session: usage.ResolveSession(cfg.SessionID, cfg.SessionName),
		warn:    warn,
	}

	if _, err := os.Stat(cfg.DBPath); err == nil {
		store, err := usagedb.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("usagelog: open sqlite backend: %w", err)
		}
		l.backend = sqliteBackend{store}
		l.kind = BackendSQLite
		return l, nil
	}

	app, err := jsonl.NewAppender(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("usagelog: open jsonl backend: %w", err)
	}
	l.backend = jsonlBackend{app}
	l.kind = BackendJSONL
	return l, nil
}

// Backend reports which backend is active ("jsonl" or "sqlite").
func (l *Logger) Backend() string { return l.kind }

// Session returns the resolved session identity.
func (l *Logger) Session() usage.Session { return l.session }

// LogToolUsage records one tool invocation. The extras map is never
// mutated. JSONL write failures are downgraded to a warning — logging
// must not break tool execution — while SQLite failures propagate.
func (l *Logger) LogToolUsage(tool string, extras map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return usage.ErrClosed
	}

	ev, err := usage.NewEvent(tool, l.session, extras)
	if err != nil {
		return err
	}

	if err := l.backend.Write(ev); err != nil {
		if l.kind == BackendJSONL {
			l.warn.Warn("usage log write failed",
				zap.String("tool", tool),
				zap.Error(err))
			return nil
		}
		return fmt.Errorf("usagelog: write event: %w", err)
	}
	return nil
}

// LogSkill records a skill invocation.
func (l *Logger) LogSkill(skill string, extras map[string]any) error {
	return l.LogToolUsage("skill", withExtra(extras, usage.FieldSkillName, skill))
}

// LogSubagent records a subagent invocation.
func (l *Logger) LogSubagent(subagent string, extras map[string]any) error {
	return l.LogToolUsage("subagent", withExtra(extras, usage.FieldSubagentName, subagent))
}

// LogWebSearch records a web search. Only the query length is kept.
func (l *Logger) LogWebSearch(query string, extras map[string]any) error {
	return l.LogToolUsage("web_search", withExtra(extras, "query_length", len(query)))
}

// LogBash records a shell command execution. Only the command length is kept.
func (l *Logger) LogBash(command string, extras map[string]any) error {
	return l.LogToolUsage("bash", withExtra(extras, "command_length", len(command)))
}

// LogFileOperation records a file read/write/edit as tool "file_<op>".
func (l *Logger) LogFileOperation(operation, path string, extras map[string]any) error {
	return l.LogToolUsage("file_"+operation, withExtra(extras, "file_path", path))
}

// LogWebFetch records a web fetch.
func (l *Logger) LogWebFetch(url string, extras map[string]any) error {
	return l.LogToolUsage("web_fetch", withExtra(extras, "url", url))
}

// Close releases the backend. Safe to call multiple times: the second
// and later calls detect the closed state and no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.backend.Close()
}

// withExtra returns a copy of extras with one field added, leaving the
// caller's map untouched.
func withExtra(extras map[string]any, key string, value any) map[string]any {
	merged := make(map[string]any, len(extras)+1)
	for k, v := range extras {
		merged[k] = v
	}
	merged[key] = value
	return merged
}
