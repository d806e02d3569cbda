// Package project is the conductor's persistence layer: projects with a
// declared scope, their tasks, working sessions, captured learnings, and
// custom prompt templates.
package project

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Task status values enforced by the schema CHECK constraint.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusBlocked    = "blocked"
)

// timeLayout matches SQLite's CURRENT_TIMESTAMP text form.
const timeLayout = "2006-01-02 15:04:05"

// Project is a tracked unit of work with a declared scope.
type Project struct {
	ID        string
	Name      string
	Scope     string
	CreatedAt string
	UpdatedAt string
}

// Task is one item of project work.
type Task struct {
	ID            int64
	ProjectID     string
	Description   string
	Status        string
	IsScopeCreep  bool
	BlockedReason string
	CreatedAt     string
	CompletedAt   string
}

// WorkSession is one working session against a project.
type WorkSession struct {
	ID             string
	ProjectID      string
	MachineID      string
	StartedAt      string
	EndedAt        string
	TasksCompleted int
}

// Learning is a captured pattern or decision.
type Learning struct {
	ID        int64
	ProjectID string
	SessionID string
	Pattern   string
	Context   string
	CreatedAt string
}

// StoredTemplate is a custom prompt template kept in the store.
type StoredTemplate struct {
	Name       string
	Content    string
	Variables  []string
	UsageCount int
	CreatedAt  string
}

// TaskStats counts tasks by status.
type TaskStats struct {
	Pending    int
	InProgress int
	Completed  int
	Blocked    int
	Total      int
}

const schema = `
	CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		name       TEXT UNIQUE NOT NULL,
		scope      TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id     TEXT NOT NULL,
		description    TEXT NOT NULL,
		status         TEXT CHECK(status IN ('pending', 'in_progress', 'completed', 'blocked')) DEFAULT 'pending',
		is_scope_creep BOOLEAN DEFAULT 0,
		blocked_reason TEXT,
		created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at   TIMESTAMP,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL,
		machine_id      TEXT NOT NULL,
		started_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		ended_at        TIMESTAMP,
		tasks_completed INTEGER DEFAULT 0,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS learnings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT,
		session_id TEXT,
		pattern    TEXT NOT NULL,
		context    TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS templates (
		name        TEXT PRIMARY KEY,
		content     TEXT NOT NULL,
		variables   TEXT,
		usage_count INTEGER DEFAULT 0,
		created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project     ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status      ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_project  ON sessions(project_id);
	CREATE INDEX IF NOT EXISTS idx_learnings_project ON learnings(project_id);
`

// Store is the conductor database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the conductor database and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("project: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("project: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("project: pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("project: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// ─── Projects ────────────────────────────────────────────────────────────

// CreateProject creates a project with a unique name and returns its id.
func (s *Store) CreateProject(name, scope string) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(
		"INSERT INTO projects (id, name, scope) VALUES (?, ?, ?)",
		id, name, scope,
	); err != nil {
		return "", fmt.Errorf("project: create %q: %w", name, err)
	}
	return id, nil
}

// GetProject looks a project up by name. Returns nil when not found.
func (s *Store) GetProject(name string) (*Project, error) {
	return s.scanProject("SELECT id, name, scope, created_at, updated_at FROM projects WHERE name = ?", name)
}

// GetProjectByID looks a project up by id. Returns nil when not found.
func (s *Store) GetProjectByID(id string) (*Project, error) {
	return s.scanProject("SELECT id, name, scope, created_at, updated_at FROM projects WHERE id = ?", id)
}

func (s *Store) scanProject(query string, arg any) (*Project, error) {
	var p Project
	err := s.db.QueryRow(query, arg).Scan(&p.ID, &p.Name, &p.Scope, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: get project: %w", err)
	}
	return &p, nil
}

// Projects returns all projects, most recently updated first.
func (s *Store) Projects() ([]Project, error) {
	rows, err := s.db.Query("SELECT id, name, scope, created_at, updated_at FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("project: list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Scope, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("project: scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateScope replaces a project's scope.
func (s *Store) UpdateScope(projectID, scope string) error {
	if _, err := s.db.Exec(
		"UPDATE projects SET scope = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		scope, projectID,
	); err != nil {
		return fmt.Errorf("project: update scope: %w", err)
	}
	return nil
}

// DeleteProject removes a project and all associated data.
func (s *Store) DeleteProject(projectID string) error {
	if _, err := s.db.Exec("DELETE FROM projects WHERE id = ?", projectID); err != nil {
		return fmt.Errorf("project: delete project: %w", err)
	}
	return nil
}

func (s *Store) touchProject(projectID string) {
	_, _ = s.db.Exec("UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", projectID)
}

// ─── Tasks ───────────────────────────────────────────────────────────────

// AddTask adds a task to a project and returns its id. Tasks flagged as
// scope creep are stored but marked.
func (s *Store) AddTask(projectID, description string, scopeCreep bool) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO tasks (project_id, description, status, is_scope_creep) VALUES (?, ?, ?, ?)",
		projectID, description, StatusPending, scopeCreep,
	)
	if err != nil {
		return 0, fmt.Errorf("project: add task: %w", err)
	}
	s.touchProject(projectID)
	return res.LastInsertId()
}

// Tasks returns a project's tasks in creation order, optionally filtered
// by status. Scope-creep tasks are excluded when includeScopeCreep is false.
func (s *Store) Tasks(projectID, status string, includeScopeCreep bool) ([]Task, error) {
	query := "SELECT id, project_id, description, status, is_scope_creep, blocked_reason, created_at, completed_at FROM tasks WHERE project_id = ?"
	args := []any{projectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if !includeScopeCreep {
		query += " AND is_scope_creep = 0"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("project: list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var blocked, completed sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Description, &t.Status,
			&t.IsScopeCreep, &blocked, &t.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("project: scan task: %w", err)
		}
		t.BlockedReason = blocked.String
		t.CompletedAt = completed.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTask returns one task by id, nil when not found.
func (s *Store) GetTask(taskID int64) (*Task, error) {
	var t Task
	var blocked, completed sql.NullString
	err := s.db.QueryRow(
		"SELECT id, project_id, description, status, is_scope_creep, blocked_reason, created_at, completed_at FROM tasks WHERE id = ?",
		taskID,
	).Scan(&t.ID, &t.ProjectID, &t.Description, &t.Status, &t.IsScopeCreep, &blocked, &t.CreatedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: get task: %w", err)
	}
	t.BlockedReason = blocked.String
	t.CompletedAt = completed.String
	return &t, nil
}

// SetTaskStatus moves a task to the given status. Completion stamps
// completed_at; blocking records the reason.
func (s *Store) SetTaskStatus(taskID int64, status, blockedReason string) error {
	var err error
	switch status {
	case StatusCompleted:
		_, err = s.db.Exec(
			"UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?",
			status, time.Now().UTC().Format(timeLayout), taskID,
		)
	case StatusBlocked:
		_, err = s.db.Exec(
			"UPDATE tasks SET status = ?, blocked_reason = ? WHERE id = ?",
			status, blockedReason, taskID,
		)
	default:
		_, err = s.db.Exec("UPDATE tasks SET status = ? WHERE id = ?", status, taskID)
	}
	if err != nil {
		return fmt.Errorf("project: set task status: %w", err)
	}

	if t, err := s.GetTask(taskID); err == nil && t != nil {
		s.touchProject(t.ProjectID)
	}
	return nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(taskID int64) error {
	if _, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", taskID); err != nil {
		return fmt.Errorf("project: delete task: %w", err)
	}
	return nil
}

// Stats counts a project's tasks by status.
func (s *Store) Stats(projectID string) (TaskStats, error) {
	rows, err := s.db.Query(
		"SELECT status, COUNT(*) FROM tasks WHERE project_id = ? GROUP BY status",
		projectID,
	)
	if err != nil {
		return TaskStats{}, fmt.Errorf("project: task stats: %w", err)
	}
	defer rows.Close()

	var stats TaskStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return TaskStats{}, fmt.Errorf("project: scan task stats: %w", err)
		}
		switch status {
		case StatusPending:
			stats.Pending = n
		case StatusInProgress:
			stats.InProgress = n
		case StatusCompleted:
			stats.Completed = n
		case StatusBlocked:
			stats.Blocked = n
		}
		stats.Total += n
	}
	return stats, rows.Err()
}

// ─── Sessions ────────────────────────────────────────────────────────────

// StartSession opens a working session. Empty machineID defaults to the
// hostname.
func (s *Store) StartSession(projectID, machineID string) (string, error) {
	if machineID == "" {
		machineID, _ = os.Hostname()
	}
	id := uuid.NewString()
	if _, err := s.db.Exec(
		"INSERT INTO sessions (id, project_id, machine_id) VALUES (?, ?, ?)",
		id, projectID, machineID,
	); err != nil {
		return "", fmt.Errorf("project: start session: %w", err)
	}
	return id, nil
}

// EndSession stamps a session's end time.
func (s *Store) EndSession(sessionID string) error {
	if _, err := s.db.Exec(
		"UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE id = ?",
		sessionID,
	); err != nil {
		return fmt.Errorf("project: end session: %w", err)
	}
	return nil
}

// GetSession returns one session by id, nil when not found.
func (s *Store) GetSession(sessionID string) (*WorkSession, error) {
	var ws WorkSession
	var ended sql.NullString
	err := s.db.QueryRow(
		"SELECT id, project_id, machine_id, started_at, ended_at, tasks_completed FROM sessions WHERE id = ?",
		sessionID,
	).Scan(&ws.ID, &ws.ProjectID, &ws.MachineID, &ws.StartedAt, &ended, &ws.TasksCompleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: get session: %w", err)
	}
	ws.EndedAt = ended.String
	return &ws, nil
}

// ActiveSessions returns sessions without an end time, newest first.
// Empty projectID means all projects.
func (s *Store) ActiveSessions(projectID string) ([]WorkSession, error) {
	query := "SELECT id, project_id, machine_id, started_at, ended_at, tasks_completed FROM sessions WHERE ended_at IS NULL"
	var args []any
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("project: active sessions: %w", err)
	}
	defer rows.Close()

	var out []WorkSession
	for rows.Next() {
		var ws WorkSession
		var ended sql.NullString
		if err := rows.Scan(&ws.ID, &ws.ProjectID, &ws.MachineID, &ws.StartedAt, &ended, &ws.TasksCompleted); err != nil {
			return nil, fmt.Errorf("project: scan session: %w", err)
		}
		ws.EndedAt = ended.String
		out = append(out, ws)
	}
	return out, rows.Err()
}

// EndedSessions returns finished sessions for a project, newest first.
func (s *Store) EndedSessions(projectID string) ([]WorkSession, error) {
	rows, err := s.db.Query(
		"SELECT id, project_id, machine_id, started_at, ended_at, tasks_completed FROM sessions WHERE project_id = ? AND ended_at IS NOT NULL ORDER BY started_at DESC",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("project: ended sessions: %w", err)
	}
	defer rows.Close()

	var out []WorkSession
	for rows.Next() {
		var ws WorkSession
		var ended sql.NullString
		if err := rows.Scan(&ws.ID, &ws.ProjectID, &ws.MachineID, &ws.StartedAt, &ended, &ws.TasksCompleted); err != nil {
			return nil, fmt.Errorf("project: scan session: %w", err)
		}
		ws.EndedAt = ended.String
		out = append(out, ws)
	}
	return out, rows.Err()
}

// IncrementSessionTasks bumps a session's completed-task counter.
func (s *Store) IncrementSessionTasks(sessionID string) error {
	if _, err := s.db.Exec(
		"UPDATE sessions SET tasks_completed = tasks_completed + 1 WHERE id = ?",
		sessionID,
	); err != nil {
		return fmt.Errorf("project: increment session tasks: %w", err)
	}
	return nil
}

// ─── Learnings ───────────────────────────────────────────────────────────

// AddLearning captures a pattern, optionally tied to a project/session.
func (s *Store) AddLearning(pattern, context, projectID, sessionID string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO learnings (pattern, context, project_id, session_id) VALUES (?, ?, ?, ?)",
		pattern, context, orNil(projectID), orNil(sessionID),
	)
	if err != nil {
		return 0, fmt.Errorf("project: add learning: %w", err)
	}
	return res.LastInsertId()
}

// Learnings returns captured patterns, newest first.
func (s *Store) Learnings(projectID, sessionID string, limit int) ([]Learning, error) {
	query := "SELECT id, project_id, session_id, pattern, context, created_at FROM learnings WHERE 1=1"
	var args []any
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("project: list learnings: %w", err)
	}
	defer rows.Close()

	var out []Learning
	for rows.Next() {
		var l Learning
		var pid, sid, ctx sql.NullString
		if err := rows.Scan(&l.ID, &pid, &sid, &l.Pattern, &ctx, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("project: scan learning: %w", err)
		}
		l.ProjectID = pid.String
		l.SessionID = sid.String
		l.Context = ctx.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// ─── Templates ───────────────────────────────────────────────────────────

// UpsertTemplate adds or replaces a custom template.
func (s *Store) UpsertTemplate(name, content string, variables []string) error {
	var vars any
	if len(variables) > 0 {
		b, err := json.Marshal(variables)
		if err != nil {
			return fmt.Errorf("project: encode template variables: %w", err)
		}
		vars = string(b)
	}
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO templates (name, content, variables) VALUES (?, ?, ?)",
		name, content, vars,
	); err != nil {
		return fmt.Errorf("project: upsert template: %w", err)
	}
	return nil
}

// GetTemplate returns one custom template by name, nil when not found.
func (s *Store) GetTemplate(name string) (*StoredTemplate, error) {
	var t StoredTemplate
	var vars sql.NullString
	err := s.db.QueryRow(
		"SELECT name, content, variables, usage_count, created_at FROM templates WHERE name = ?",
		name,
	).Scan(&t.Name, &t.Content, &vars, &t.UsageCount, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: get template: %w", err)
	}
	if vars.Valid {
		if err := json.Unmarshal([]byte(vars.String), &t.Variables); err != nil {
			return nil, fmt.Errorf("project: decode template variables: %w", err)
		}
	}
	return &t, nil
}

// Templates returns all custom templates, most used first.
func (s *Store) Templates() ([]StoredTemplate, error) {
	rows, err := s.db.Query("SELECT name, content, variables, usage_count, created_at FROM templates ORDER BY usage_count DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("project: list templates: %w", err)
	}
	defer rows.Close()

	var out []StoredTemplate
	for rows.Next() {
		var t StoredTemplate
		var vars sql.NullString
		if err := rows.Scan(&t.Name, &t.Content, &vars, &t.UsageCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("project: scan template: %w", err)
		}
		if vars.Valid {
			if err := json.Unmarshal([]byte(vars.String), &t.Variables); err != nil {
				return nil, fmt.Errorf("project: decode template variables: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IncrementTemplateUsage bumps a template's usage counter.
func (s *Store) IncrementTemplateUsage(name string) error {
	if _, err := s.db.Exec(
		"UPDATE templates SET usage_count = usage_count + 1 WHERE name = ?",
		name,
	); err != nil {
		return fmt.Errorf("project: increment template usage: %w", err)
	}
	return nil
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
