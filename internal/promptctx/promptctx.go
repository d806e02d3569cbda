// Package promptctx assembles a compact project briefing for pasting
// into an assistant prompt: scope header, task history, and recent
// learnings, pruned to a character budget.
package promptctx

import (
	"fmt"
	"strings"

	"github.com/thamam/claude-hub/internal/project"
)

// DefaultBudget is the character budget when none is configured.
const DefaultBudget = 8000

// Builder renders project state as prompt context.
type Builder struct {
	store  *project.Store
	budget int
}

// NewBuilder wraps a store. Budget values <= 0 fall back to DefaultBudget.
func NewBuilder(store *project.Store, budget int) *Builder {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Builder{store: store, budget: budget}
}

// Sections toggles which parts the briefing includes.
type Sections struct {
	Header    bool
	History   bool
	Decisions bool
}

// AllSections includes everything.
func AllSections() Sections {
	return Sections{Header: true, History: true, Decisions: true}
}

// Build renders the briefing for a project, pruned to the budget.
// Sections are assembled in priority order so pruning drops the least
// important material first.
func (b *Builder) Build(projectID string, include Sections) (string, error) {
	var parts []string

	if include.Header {
		header, err := b.Header(projectID)
		if err != nil {
			return "", err
		}
		if header != "" {
			parts = append(parts, header)
		}
	}
	if include.History {
		history, err := b.History(projectID, 10)
		if err != nil {
			return "", err
		}
		if history != "" {
			parts = append(parts, history)
		}
	}
	if include.Decisions {
		decisions, err := b.Decisions(projectID, 5)
		if err != nil {
			return "", err
		}
		if decisions != "" {
			parts = append(parts, decisions)
		}
	}

	return Optimize(parts, b.budget), nil
}

// Header renders the project name, scope, and progress line. Unknown
// projects render empty.
func (b *Builder) Header(projectID string) (string, error) {
	p, err := b.store.GetProjectByID(projectID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", nil
	}
	stats, err := b.store.Stats(projectID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Project: %s", p.Name)
	fmt.Fprintf(&sb, "\n**Scope:** %s", p.Scope)
	if stats.Total > 0 {
		pct := stats.Completed * 100 / stats.Total
		fmt.Fprintf(&sb, "\n**Progress:** %d%% complete (%d/%d tasks)",
			pct, stats.Completed, stats.Total)
		if stats.Blocked > 0 {
			fmt.Fprintf(&sb, "\n⚠️  %d blocked tasks", stats.Blocked)
		}
	}
	return sb.String(), nil
}

// History renders completed, in-progress, pending, and blocked task
// sections. maxItems bounds the completed list; pending shows at most
// five with a "... and N more" tail.
func (b *Builder) History(projectID string, maxItems int) (string, error) {
	var sb strings.Builder

	completed, err := b.store.Tasks(projectID, project.StatusCompleted, false)
	if err != nil {
		return "", err
	}
	if len(completed) > 0 {
		if len(completed) > maxItems {
			completed = completed[len(completed)-maxItems:]
		}
		sb.WriteString("\n\n## Recently Completed")
		for _, t := range completed {
			fmt.Fprintf(&sb, "\n- ✓ %s", t.Description)
		}
	}

	inProgress, err := b.store.Tasks(projectID, project.StatusInProgress, false)
	if err != nil {
		return "", err
	}
	if len(inProgress) > 0 {
		sb.WriteString("\n\n## In Progress")
		for _, t := range inProgress {
			fmt.Fprintf(&sb, "\n- ⟳ %s", t.Description)
		}
	}

	pending, err := b.store.Tasks(projectID, project.StatusPending, false)
	if err != nil {
		return "", err
	}
	if len(pending) > 0 {
		sb.WriteString("\n\n## Next Tasks")
		show := pending
		if len(show) > 5 {
			show = show[:5]
		}
		for _, t := range show {
			fmt.Fprintf(&sb, "\n- ○ %s", t.Description)
		}
		if len(pending) > 5 {
			fmt.Fprintf(&sb, "\n- ... and %d more", len(pending)-5)
		}
	}

	blocked, err := b.store.Tasks(projectID, project.StatusBlocked, false)
	if err != nil {
		return "", err
	}
	if len(blocked) > 0 {
		sb.WriteString("\n\n## Blocked Tasks")
		for _, t := range blocked {
			if t.BlockedReason != "" {
				fmt.Fprintf(&sb, "\n- 🚫 %s (%s)", t.Description, t.BlockedReason)
			} else {
				fmt.Fprintf(&sb, "\n- 🚫 %s", t.Description)
			}
		}
	}

	return sb.String(), nil
}

// Decisions renders the most recent learnings. Long context lines are
// clipped to a hundred characters.
func (b *Builder) Decisions(projectID string, limit int) (string, error) {
	learnings, err := b.store.Learnings(projectID, "", limit)
	if err != nil {
		return "", err
	}
	if len(learnings) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("\n\n## Recent Learnings & Decisions")
	for _, l := range learnings {
		fmt.Fprintf(&sb, "\n- %s", l.Pattern)
		if l.Context != "" {
			ctx := l.Context
			if len(ctx) > 100 {
				ctx = ctx[:97] + "..."
			}
			fmt.Fprintf(&sb, "\n  Context: %s", ctx)
		}
	}
	return sb.String(), nil
}

// Summary reports context metrics for a project.
type Summary struct {
	ProjectName        string
	Scope              string
	Stats              project.TaskStats
	LearningCount      int
	ActiveSessions     int
	ContextSize        int
	ContextUtilization float64
}

// Summarize reports how full the briefing is relative to the budget.
func (b *Builder) Summarize(projectID string) (*Summary, error) {
	p, err := b.store.GetProjectByID(projectID)
	if err != nil || p == nil {
		return nil, err
	}
	stats, err := b.store.Stats(projectID)
	if err != nil {
		return nil, err
	}
	learnings, err := b.store.Learnings(projectID, "", 100)
	if err != nil {
		return nil, err
	}
	active, err := b.store.ActiveSessions(projectID)
	if err != nil {
		return nil, err
	}
	ctx, err := b.Build(projectID, AllSections())
	if err != nil {
		return nil, err
	}

	return &Summary{
		ProjectName:        p.Name,
		Scope:              p.Scope,
		Stats:              stats,
		LearningCount:      len(learnings),
		ActiveSessions:     len(active),
		ContextSize:        len(ctx),
		ContextUtilization: float64(len(ctx)) / float64(b.budget),
	}, nil
}

// Optimize joins parts in priority order, pruning from the tail to fit
// the budget. A part that does not fit whole is truncated only when at
// least a hundred characters remain, with a marker appended.
func Optimize(parts []string, budget int) string {
	full := strings.Join(parts, "\n")
	if len(full) <= budget {
		return full
	}

	var kept []string
	size := 0
	for _, part := range parts {
		if size+len(part) <= budget {
			kept = append(kept, part)
			size += len(part)
			continue
		}
		remaining := budget - size
		if remaining > 100 {
			kept = append(kept, part[:remaining-50]+"\n\n... (truncated)")
		}
		break
	}
	return strings.Join(kept, "\n")
}
