package stats

import (
	"sort"

	"github.com/thamam/claude-hub/internal/jsonl"
	"github.com/thamam/claude-hub/internal/usage"
)

// LogReader aggregates directly over the JSONL file, for installations
// that have not migrated to SQLite yet.
type LogReader struct {
	events  []usage.Event
	skipped int
}

// OpenLogReader loads the whole log into memory. Malformed lines are
// skipped and counted.
func OpenLogReader(path string) (*LogReader, error) {
	events, skipped, err := jsonl.ReadAll(path)
	if err != nil {
		return nil, err
	}
	return &LogReader{events: events, skipped: skipped}, nil
}

// Total returns the number of well-formed records.
func (r *LogReader) Total() int { return len(r.events) }

// Skipped returns the number of malformed lines encountered.
func (r *LogReader) Skipped() int { return r.skipped }

// ToolCounts returns invocations per tool, most used first.
func (r *LogReader) ToolCounts() []ToolStat {
	counts := make(map[string]int)
	sessions := make(map[string]map[string]bool)
	for _, ev := range r.events {
		counts[ev.Tool]++
		if sessions[ev.Tool] == nil {
			sessions[ev.Tool] = make(map[string]bool)
		}
		sessions[ev.Tool][ev.SessionID] = true
	}
	return sortedToolStats(counts, sessions)
}

// SkillCounts returns invocations per skill, most used first.
func (r *LogReader) SkillCounts() []NameStat {
	return r.nameCounts(func(ev usage.Event) string { return ev.SkillName })
}

// SubagentCounts returns invocations per subagent, most used first.
func (r *LogReader) SubagentCounts() []NameStat {
	return r.nameCounts(func(ev usage.Event) string { return ev.SubagentName })
}

func (r *LogReader) nameCounts(key func(usage.Event) string) []NameStat {
	counts := make(map[string]int)
	sessions := make(map[string]map[string]bool)
	for _, ev := range r.events {
		name := key(ev)
		if name == "" {
			continue
		}
		counts[name]++
		if sessions[name] == nil {
			sessions[name] = make(map[string]bool)
		}
		sessions[name][ev.SessionID] = true
	}

	out := make([]NameStat, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameStat{Name: name, Invocations: n, SessionsUsed: len(sessions[name])})
	}
	sortNameStats(out)
	return out
}

// LastN returns the most recent n records, newest last.
func (r *LogReader) LastN(n int) []usage.Event {
	if n > len(r.events) {
		n = len(r.events)
	}
	return r.events[len(r.events)-n:]
}

// BySession groups records by session id, preserving log order within
// each session.
func (r *LogReader) BySession() map[string][]usage.Event {
	out := make(map[string][]usage.Event)
	for _, ev := range r.events {
		out[ev.SessionID] = append(out[ev.SessionID], ev)
	}
	return out
}

func sortedToolStats(counts map[string]int, sessions map[string]map[string]bool) []ToolStat {
	out := make([]ToolStat, 0, len(counts))
	for tool, n := range counts {
		out = append(out, ToolStat{Tool: tool, Invocations: n, SessionsUsed: len(sessions[tool])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Invocations != out[j].Invocations {
			return out[i].Invocations > out[j].Invocations
		}
		return out[i].Tool < out[j].Tool
	})
	return out
}

func sortNameStats(out []NameStat) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Invocations != out[j].Invocations {
			return out[i].Invocations > out[j].Invocations
		}
		return out[i].Name < out[j].Name
	})
}
