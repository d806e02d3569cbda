// Package progress is the conductor's analytics side: session
// productivity, stuck-pattern detection, velocity, health scoring, and
// actionable recommendations, all derived from the project store.
package progress

import (
	"fmt"
	"time"

	"github.com/thamam/claude-hub/internal/project"
)

// Severity levels for stuck indicators.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Stuck indicator types.
const (
	StuckLongRunningTask  = "long_running_task"
	StuckManyBlockedTasks = "many_blocked_tasks"
	StuckNoCompletedTasks = "no_completed_tasks"
	StuckScopeCreep       = "scope_creep"
)

// Next-action kinds.
const (
	ActionContinue = "continue"
	ActionUnblock  = "unblock"
	ActionStart    = "start"
	ActionNone     = "none"
)

// Monitor computes analytics over a project store. now is injectable
// for tests.
type Monitor struct {
	store *project.Store
	now   func() time.Time
}

// NewMonitor wraps a store.
func NewMonitor(store *project.Store) *Monitor {
	return &Monitor{store: store, now: time.Now}
}

// SessionReport is the productivity analysis of one session.
type SessionReport struct {
	SessionID      string
	ProjectID      string
	MachineID      string
	StartedAt      string
	EndedAt        string
	DurationHours  float64
	TasksCompleted int
	TasksPerHour   float64
	IsActive       bool
}

// StuckIndicator flags one way a project looks stalled.
type StuckIndicator struct {
	Type        string
	Severity    string
	TaskID      int64
	Description string
	Count       int
	AgeHours    float64
	AgeDays     int
	Percentage  float64
	Suggestion  string
}

// Velocity is the recent completion rate and the projection from it.
type Velocity struct {
	PeriodDays     int
	TasksCompleted int
	TasksPerDay    float64
	RemainingTasks int
	// EstimatedDays is negative when velocity is zero and no estimate
	// can be made.
	EstimatedDays float64
}

// Health is the 0-100 project health score with its contributing issues.
type Health struct {
	Score  int
	Status string
	Issues []string
}

// NextAction is the suggested next concrete step.
type NextAction struct {
	Action      string
	TaskID      int64
	Description string
	Reason      string
}

// ComplianceReport summarizes scope compliance across all tasks.
type ComplianceReport struct {
	TotalTasks           int
	ScopeCreepTasks      int
	ScopeCreepPercentage float64
	CompletedScopeCreep  int
	ComplianceScore      float64
}

// Report is the full productivity report.
type Report struct {
	Project         project.Project
	Stats           project.TaskStats
	CompletionPct   int
	Health          Health
	Velocity        Velocity
	StuckIndicators []StuckIndicator
	Sessions        []SessionReport
	TotalHours      float64
	AvgSessionHours float64
}

// AnalyzeSession computes duration and throughput for one session.
func (m *Monitor) AnalyzeSession(sessionID string) (*SessionReport, error) {
	ws, err := m.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, fmt.Errorf("progress: session %s not found", sessionID)
	}

	started, err := parseTime(ws.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("progress: parse session start: %w", err)
	}

	end := m.now().UTC()
	active := true
	if ws.EndedAt != "" {
		if t, err := parseTime(ws.EndedAt); err == nil {
			end = t
			active = false
		}
	}

	hours := end.Sub(started).Hours()
	perHour := 0.0
	if hours > 0 {
		perHour = float64(ws.TasksCompleted) / hours
	}

	return &SessionReport{
		SessionID:      ws.ID,
		ProjectID:      ws.ProjectID,
		MachineID:      ws.MachineID,
		StartedAt:      ws.StartedAt,
		EndedAt:        ws.EndedAt,
		DurationHours:  round2(hours),
		TasksCompleted: ws.TasksCompleted,
		TasksPerHour:   round2(perHour),
		IsActive:       active,
	}, nil
}

// DetectStuckPatterns flags stalled work: in-progress tasks older than
// a day, more than three blocked tasks, no completions after the first
// day, and any scope-creep backlog.
func (m *Monitor) DetectStuckPatterns(projectID string) ([]StuckIndicator, error) {
	var out []StuckIndicator
	now := m.now().UTC()

	inProgress, err := m.store.Tasks(projectID, project.StatusInProgress, false)
	if err != nil {
		return nil, err
	}
	for _, t := range inProgress {
		created, err := parseTime(t.CreatedAt)
		if err != nil {
			continue
		}
		age := now.Sub(created).Hours()
		if age > 24 {
			out = append(out, StuckIndicator{
				Type:        StuckLongRunningTask,
				Severity:    SeverityHigh,
				TaskID:      t.ID,
				Description: t.Description,
				AgeHours:    round1(age),
				Suggestion:  "Consider breaking this task into smaller pieces or marking as blocked",
			})
		}
	}

	blocked, err := m.store.Tasks(projectID, project.StatusBlocked, false)
	if err != nil {
		return nil, err
	}
	if len(blocked) > 3 {
		out = append(out, StuckIndicator{
			Type:       StuckManyBlockedTasks,
			Severity:   SeverityHigh,
			Count:      len(blocked),
			Suggestion: "Focus on unblocking tasks before adding new work",
		})
	}

	stats, err := m.store.Stats(projectID)
	if err != nil {
		return nil, err
	}
	if stats.Completed == 0 && stats.Total > 0 {
		p, err := m.store.GetProjectByID(projectID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			if created, err := parseTime(p.CreatedAt); err == nil {
				ageDays := int(now.Sub(created).Hours() / 24)
				if ageDays > 1 {
					out = append(out, StuckIndicator{
						Type:       StuckNoCompletedTasks,
						Severity:   SeverityMedium,
						AgeDays:    ageDays,
						Suggestion: "Complete at least one task to build momentum",
					})
				}
			}
		}
	}

	all, err := m.store.Tasks(projectID, "", true)
	if err != nil {
		return nil, err
	}
	creep := 0
	for _, t := range all {
		if t.IsScopeCreep {
			creep++
		}
	}
	if creep > 0 {
		out = append(out, StuckIndicator{
			Type:       StuckScopeCreep,
			Severity:   SeverityMedium,
			Count:      creep,
			Percentage: round1(float64(creep) / float64(len(all)) * 100),
			Suggestion: "Review scope and remove out-of-scope tasks",
		})
	}

	return out, nil
}

// GetVelocity counts completions in the trailing window and projects
// the remaining work at that rate.
func (m *Monitor) GetVelocity(projectID string, days int) (Velocity, error) {
	if days <= 0 {
		days = 7
	}
	completed, err := m.store.Tasks(projectID, project.StatusCompleted, false)
	if err != nil {
		return Velocity{}, err
	}

	cutoff := m.now().UTC().AddDate(0, 0, -days)
	recent := 0
	for _, t := range completed {
		if t.CompletedAt == "" {
			continue
		}
		if done, err := parseTime(t.CompletedAt); err == nil && !done.Before(cutoff) {
			recent++
		}
	}

	stats, err := m.store.Stats(projectID)
	if err != nil {
		return Velocity{}, err
	}
	remaining := stats.Pending + stats.InProgress

	perDay := float64(recent) / float64(days)
	estimated := -1.0
	if perDay > 0 {
		estimated = round1(float64(remaining) / perDay)
	}

	return Velocity{
		PeriodDays:     days,
		TasksCompleted: recent,
		TasksPerDay:    round2(perDay),
		RemainingTasks: remaining,
		EstimatedDays:  estimated,
	}, nil
}

// GetHealth scores the project 0-100: blocked-task ratio, stuck
// indicators, low velocity, and scope creep above twenty percent each
// deduct points.
func (m *Monitor) GetHealth(projectID string) (Health, error) {
	h := Health{Score: 100, Status: "healthy"}

	stats, err := m.store.Stats(projectID)
	if err != nil {
		return h, err
	}
	if stats.Blocked > 0 && stats.Total > 0 {
		ratio := float64(stats.Blocked) / float64(stats.Total)
		h.Score -= int(ratio * 30)
		h.Issues = append(h.Issues, fmt.Sprintf("%d blocked tasks", stats.Blocked))
	}

	stuck, err := m.DetectStuckPatterns(projectID)
	if err != nil {
		return h, err
	}
	if len(stuck) > 0 {
		high := 0
		for _, s := range stuck {
			if s.Severity == SeverityHigh {
				high++
			}
		}
		h.Score -= high*15 + (len(stuck)-high)*5
		h.Issues = append(h.Issues, fmt.Sprintf("%d stuck indicators", len(stuck)))
	}

	velocity, err := m.GetVelocity(projectID, 7)
	if err != nil {
		return h, err
	}
	if velocity.TasksPerDay < 0.5 {
		h.Score -= 10
		h.Issues = append(h.Issues, "Low velocity")
	}

	all, err := m.store.Tasks(projectID, "", true)
	if err != nil {
		return h, err
	}
	creep := 0
	for _, t := range all {
		if t.IsScopeCreep {
			creep++
		}
	}
	if creep > 0 && len(all) > 0 {
		ratio := float64(creep) / float64(len(all))
		if ratio > 0.2 {
			h.Score -= int(ratio * 20)
			h.Issues = append(h.Issues, fmt.Sprintf("%d scope creep tasks", creep))
		}
	}

	if h.Score < 0 {
		h.Score = 0
	}
	if h.Score > 100 {
		h.Score = 100
	}
	switch {
	case h.Score >= 80:
		h.Status = "healthy"
	case h.Score >= 60:
		h.Status = "needs_attention"
	case h.Score >= 40:
		h.Status = "at_risk"
	default:
		h.Status = "critical"
	}
	return h, nil
}

// SuggestNextAction proposes the next step: finish in-progress work
// first, then unblock, then start the next pending task.
func (m *Monitor) SuggestNextAction(projectID string) (NextAction, error) {
	inProgress, err := m.store.Tasks(projectID, project.StatusInProgress, false)
	if err != nil {
		return NextAction{}, err
	}
	if len(inProgress) > 0 {
		t := inProgress[0]
		return NextAction{
			Action:      ActionContinue,
			TaskID:      t.ID,
			Description: t.Description,
			Reason:      "Complete in-progress task before starting new work",
		}, nil
	}

	blocked, err := m.store.Tasks(projectID, project.StatusBlocked, false)
	if err != nil {
		return NextAction{}, err
	}
	if len(blocked) > 0 {
		t := blocked[0]
		reason := t.BlockedReason
		if reason == "" {
			reason = "Unknown"
		}
		return NextAction{
			Action:      ActionUnblock,
			TaskID:      t.ID,
			Description: t.Description,
			Reason:      "Blocked: " + reason,
		}, nil
	}

	pending, err := m.store.Tasks(projectID, project.StatusPending, false)
	if err != nil {
		return NextAction{}, err
	}
	if len(pending) > 0 {
		t := pending[0]
		return NextAction{
			Action:      ActionStart,
			TaskID:      t.ID,
			Description: t.Description,
			Reason:      "Next task in queue",
		}, nil
	}

	return NextAction{Action: ActionNone, Reason: "All tasks completed"}, nil
}

// Compliance summarizes how much of the task list drifted out of scope.
func (m *Monitor) Compliance(projectID string) (ComplianceReport, error) {
	all, err := m.store.Tasks(projectID, "", true)
	if err != nil {
		return ComplianceReport{}, err
	}
	if len(all) == 0 {
		return ComplianceReport{ComplianceScore: 100}, nil
	}

	r := ComplianceReport{TotalTasks: len(all)}
	for _, t := range all {
		if t.IsScopeCreep {
			r.ScopeCreepTasks++
			if t.Status == project.StatusCompleted {
				r.CompletedScopeCreep++
			}
		}
	}
	r.ScopeCreepPercentage = float64(r.ScopeCreepTasks) / float64(len(all)) * 100
	r.ComplianceScore = float64(len(all)-r.ScopeCreepTasks) / float64(len(all)) * 100
	return r, nil
}

// BuildReport assembles the full productivity report for a project.
func (m *Monitor) BuildReport(projectID string) (*Report, error) {
	p, err := m.store.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("progress: project %s not found", projectID)
	}

	stats, err := m.store.Stats(projectID)
	if err != nil {
		return nil, err
	}
	health, err := m.GetHealth(projectID)
	if err != nil {
		return nil, err
	}
	velocity, err := m.GetVelocity(projectID, 7)
	if err != nil {
		return nil, err
	}
	stuck, err := m.DetectStuckPatterns(projectID)
	if err != nil {
		return nil, err
	}
	sessions, err := m.projectSessions(projectID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, s := range sessions {
		total += s.DurationHours
	}
	avg := 0.0
	if len(sessions) > 0 {
		avg = round2(total / float64(len(sessions)))
	}
	pct := 0
	if stats.Total > 0 {
		pct = stats.Completed * 100 / stats.Total
	}

	return &Report{
		Project:         *p,
		Stats:           stats,
		CompletionPct:   pct,
		Health:          health,
		Velocity:        velocity,
		StuckIndicators: stuck,
		Sessions:        sessions,
		TotalHours:      round2(total),
		AvgSessionHours: avg,
	}, nil
}

func (m *Monitor) projectSessions(projectID string) ([]SessionReport, error) {
	active, err := m.store.ActiveSessions(projectID)
	if err != nil {
		return nil, err
	}
	ended, err := m.store.EndedSessions(projectID)
	if err != nil {
		return nil, err
	}

	var out []SessionReport
	for _, ws := range append(active, ended...) {
		r, err := m.AnalyzeSession(ws.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// Recommendations turns the analytics into actionable advice.
func (m *Monitor) Recommendations(projectID string) ([]string, error) {
	var recs []string

	health, err := m.GetHealth(projectID)
	if err != nil {
		return nil, err
	}
	stats, err := m.store.Stats(projectID)
	if err != nil {
		return nil, err
	}
	stuck, err := m.DetectStuckPatterns(projectID)
	if err != nil {
		return nil, err
	}
	velocity, err := m.GetVelocity(projectID, 7)
	if err != nil {
		return nil, err
	}

	if health.Score < 60 {
		recs = append(recs, "Project health is concerning. Address blocking issues immediately.")
	}
	for _, s := range stuck {
		switch s.Type {
		case StuckLongRunningTask:
			recs = append(recs, "Consider breaking down or reassessing: "+clip(s.Description, 50))
		case StuckManyBlockedTasks:
			recs = append(recs, "Focus on unblocking tasks before starting new work")
		}
	}
	if velocity.TasksPerDay < 0.5 {
		recs = append(recs, "Velocity is low. Break tasks into smaller, achievable chunks.")
	}
	if stats.InProgress > 2 {
		recs = append(recs, "Multiple tasks in progress. Focus on completing one before starting another.")
	}
	if stats.Blocked > 0 {
		recs = append(recs, fmt.Sprintf("You have %d blocked tasks. Work on unblocking them.", stats.Blocked))
	}

	compliance, err := m.Compliance(projectID)
	if err != nil {
		return nil, err
	}
	if compliance.ScopeCreepTasks > 0 {
		recs = append(recs, fmt.Sprintf("Review %d scope creep tasks - remove or adjust scope.", compliance.ScopeCreepTasks))
	}

	if health.Score >= 80 && velocity.TasksPerDay >= 1.0 {
		recs = append(recs, "Project is progressing well. Keep up the momentum.")
	}

	if len(recs) == 0 {
		next, err := m.SuggestNextAction(projectID)
		if err != nil {
			return nil, err
		}
		recs = append(recs, fmt.Sprintf("Next: %s - %s", next.Action, clip(next.Description, 50)))
	}
	return recs, nil
}

// parseTime accepts both SQLite's CURRENT_TIMESTAMP form and RFC 3339.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func round1(f float64) float64 { return float64(int(f*10+0.5)) / 10 }
func round2(f float64) float64 { return float64(int(f*100+0.5)) / 100 }
