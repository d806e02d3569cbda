// Package usage defines the immutable event record written for every
// logged action, and the session identity the records are grouped under.
package usage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the fixed textual encoding for event timestamps (UTC).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Environment overrides consumed at session resolution time.
const (
	EnvSessionID   = "CLAUDE_SESSION_ID"
	EnvSessionName = "CLAUDE_SESSION_NAME"
)

// Reserved field names. Caller-supplied extras under these keys either
// promote into the record or are writer-owned and ignored; they never
// land in Metadata.
const (
	FieldTimestamp    = "timestamp"
	FieldTool         = "tool"
	FieldToolName     = "tool_name"
	FieldSessionID    = "session_id"
	FieldSessionName  = "session_name"
	FieldSkillName    = "skill_name"
	FieldSubagentName = "subagent_name"
)

// Session identifies the working session that events are grouped under.
type Session struct {
	ID   string
	Name string
}

// ResolveSession applies the fixed precedence for session identity:
// explicit value, then environment override, then generated token for the
// id and "unknown" for the name. The environment is read once, here.
func ResolveSession(explicitID, explicitName string) Session {
	id := explicitID
	if id == "" {
		id = os.Getenv(EnvSessionID)
	}
	if id == "" {
		id = newSessionID()
	}

	name := explicitName
	if name == "" {
		name = os.Getenv(EnvSessionName)
	}
	if name == "" {
		name = "unknown"
	}

	return Session{ID: id, Name: name}
}

// newSessionID returns a short random session token.
func newSessionID() string {
	return uuid.NewString()[:8]
}

// Event is one logged occurrence. Records are immutable once written;
// there is no update or delete path.
type Event struct {
	Timestamp    string
	Tool         string
	SessionID    string
	SessionName  string
	SkillName    string
	SubagentName string
	Metadata     map[string]any
}

// NewEvent builds a record for the given tool with the timestamp assigned
// now. The extras map is copied, never mutated: session_name, skill_name
// and subagent_name promote into their fields, writer-owned keys
// (timestamp, tool, tool_name, session_id) are dropped, and everything
// else is preserved verbatim in Metadata.
func NewEvent(tool string, sess Session, extras map[string]any) (Event, error) {
	if tool == "" {
		return Event{}, fmt.Errorf("%w: empty tool name", ErrInvalidEvent)
	}

	ev := Event{
		Timestamp:   time.Now().UTC().Format(TimeLayout),
		Tool:        tool,
		SessionID:   sess.ID,
		SessionName: sess.Name,
	}

	for k, v := range extras {
		switch k {
		case FieldSessionName:
			if s, ok := v.(string); ok && s != "" {
				ev.SessionName = s
			}
		case FieldSkillName:
			if s, ok := v.(string); ok {
				ev.SkillName = s
			}
		case FieldSubagentName:
			if s, ok := v.(string); ok {
				ev.SubagentName = s
			}
		case FieldTimestamp, FieldTool, FieldToolName, FieldSessionID:
			// Writer-owned; callers cannot supply these.
		default:
			if ev.Metadata == nil {
				ev.Metadata = make(map[string]any, len(extras))
			}
			ev.Metadata[k] = v
		}
	}

	return ev, nil
}

// FromRecord rebuilds an Event from a decoded JSONL object. Unknown keys
// land in Metadata; a missing tool becomes "unknown".
func FromRecord(m map[string]any) Event {
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}

	ev := Event{
		Timestamp:    str(FieldTimestamp),
		Tool:         str(FieldTool),
		SessionID:    str(FieldSessionID),
		SessionName:  str(FieldSessionName),
		SkillName:    str(FieldSkillName),
		SubagentName: str(FieldSubagentName),
	}
	if ev.Tool == "" {
		ev.Tool = "unknown"
	}

	for k, v := range m {
		switch k {
		case FieldTimestamp, FieldTool, FieldSessionID, FieldSessionName,
			FieldSkillName, FieldSubagentName:
		default:
			if ev.Metadata == nil {
				ev.Metadata = make(map[string]any)
			}
			ev.Metadata[k] = v
		}
	}
	return ev
}

// MarshalJSON emits the JSONL wire form: reserved fields first in fixed
// order, optional fields only when set, extras sorted by key. Field order
// is deterministic so identical events produce identical lines.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	fields := []struct {
		key   string
		value any
		omit  bool
	}{
		{FieldTimestamp, e.Timestamp, false},
		{FieldTool, e.Tool, false},
		{FieldSessionID, e.SessionID, false},
		{FieldSessionName, e.SessionName, false},
		{FieldSkillName, e.SkillName, e.SkillName == ""},
		{FieldSubagentName, e.SubagentName, e.SubagentName == ""},
	}
	for _, f := range fields {
		if f.omit {
			continue
		}
		if err := writeField(f.key, f.value); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeField(k, e.Metadata[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MetadataJSON serializes the extras map into the single encoded blob the
// SQLite backend stores. Empty metadata yields the empty string.
func (e Event) MetadataJSON() (string, error) {
	if len(e.Metadata) == 0 {
		return "", nil
	}
	b, err := json.Marshal(e.Metadata)
	if err != nil {
		return "", fmt.Errorf("usage: encode metadata: %w", err)
	}
	return string(b), nil
}
