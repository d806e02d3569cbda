package usage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestResolveSessionExplicitWins(t *testing.T) {
	t.Setenv(EnvSessionID, "env-id")
	t.Setenv(EnvSessionName, "env-name")

	sess := ResolveSession("explicit-id", "explicit-name")
	if sess.ID != "explicit-id" {
		t.Errorf("ID = %q, want explicit-id", sess.ID)
	}
	if sess.Name != "explicit-name" {
		t.Errorf("Name = %q, want explicit-name", sess.Name)
	}
}

func TestResolveSessionEnvFallback(t *testing.T) {
	t.Setenv(EnvSessionID, "env-id")
	t.Setenv(EnvSessionName, "env-name")

	sess := ResolveSession("", "")
	if sess.ID != "env-id" {
		t.Errorf("ID = %q, want env-id", sess.ID)
	}
	if sess.Name != "env-name" {
		t.Errorf("Name = %q, want env-name", sess.Name)
	}
}

func TestResolveSessionGenerated(t *testing.T) {
	t.Setenv(EnvSessionID, "")
	t.Setenv(EnvSessionName, "")

	sess := ResolveSession("", "")
	if len(sess.ID) != 8 {
		t.Errorf("generated ID %q: want 8 characters", sess.ID)
	}
	if sess.Name != "unknown" {
		t.Errorf("Name = %q, want unknown", sess.Name)
	}

	other := ResolveSession("", "")
	if other.ID == sess.ID {
		t.Errorf("two generated session ids collided: %q", sess.ID)
	}
}

func TestNewEventEmptyTool(t *testing.T) {
	_, err := NewEvent("", Session{ID: "s1"}, nil)
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("err = %v, want ErrInvalidEvent", err)
	}
}

func TestNewEventPromotesAndDrops(t *testing.T) {
	extras := map[string]any{
		"skill_name":    "pdf",
		"subagent_name": "debugger",
		"session_name":  "override",
		"timestamp":     "1999-01-01T00:00:00.000Z",
		"tool":          "forged",
		"session_id":    "forged",
		"file_path":     "/tmp/x",
	}

	ev, err := NewEvent("file_read", Session{ID: "s1", Name: "orig"}, extras)
	if err != nil {
		t.Fatal(err)
	}

	if ev.SkillName != "pdf" || ev.SubagentName != "debugger" {
		t.Errorf("promotion failed: skill=%q subagent=%q", ev.SkillName, ev.SubagentName)
	}
	if ev.SessionName != "override" {
		t.Errorf("SessionName = %q, want override", ev.SessionName)
	}
	if ev.SessionID != "s1" {
		t.Errorf("SessionID = %q: caller must not override it", ev.SessionID)
	}
	if strings.HasPrefix(ev.Timestamp, "1999") {
		t.Errorf("caller overrode the timestamp: %q", ev.Timestamp)
	}
	if _, ok := ev.Metadata["tool"]; ok {
		t.Error("writer-owned key leaked into metadata")
	}
	if ev.Metadata["file_path"] != "/tmp/x" {
		t.Errorf("metadata lost file_path: %v", ev.Metadata)
	}

	// The caller's map must be untouched.
	if len(extras) != 7 {
		t.Errorf("extras mutated: %v", extras)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	ev := Event{
		Timestamp: "2026-01-02T03:04:05.000Z",
		Tool:      "bash",
		SessionID: "s1", SessionName: "n1",
		Metadata: map[string]any{"b": 2, "a": 1, "c": 3},
	}

	first, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(ev)
		if err != nil {
			t.Fatal(err)
		}
		if string(again) != string(first) {
			t.Fatalf("marshal not deterministic:\n%s\n%s", first, again)
		}
	}

	want := `{"timestamp":"2026-01-02T03:04:05.000Z","tool":"bash","session_id":"s1","session_name":"n1","a":1,"b":2,"c":3}`
	if string(first) != want {
		t.Errorf("wire form:\n got %s\nwant %s", first, want)
	}
}

func TestMarshalOmitsEmptyOptionalFields(t *testing.T) {
	ev := Event{Timestamp: "t", Tool: "bash", SessionID: "s", SessionName: "n"}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "skill_name") || strings.Contains(string(b), "subagent_name") {
		t.Errorf("empty optional fields present: %s", b)
	}
}

func TestFromRecordRoundTrip(t *testing.T) {
	ev := Event{
		Timestamp: "2026-01-02T03:04:05.000Z",
		Tool:      "skill",
		SessionID: "s1", SessionName: "n1",
		SkillName: "docx",
		Metadata:  map[string]any{"k": "v"},
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	got := FromRecord(m)

	if got.Tool != ev.Tool || got.SessionID != ev.SessionID || got.SkillName != ev.SkillName {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Metadata["k"] != "v" {
		t.Errorf("round trip lost metadata: %v", got.Metadata)
	}
}

func TestFromRecordMissingTool(t *testing.T) {
	got := FromRecord(map[string]any{"timestamp": "t"})
	if got.Tool != "unknown" {
		t.Errorf("Tool = %q, want unknown", got.Tool)
	}
}

func TestMetadataJSON(t *testing.T) {
	ev := Event{Metadata: map[string]any{"n": 1.0}}
	s, err := ev.MetadataJSON()
	if err != nil {
		t.Fatal(err)
	}
	if s != `{"n":1}` {
		t.Errorf("MetadataJSON = %q", s)
	}

	empty := Event{}
	s, err = empty.MetadataJSON()
	if err != nil {
		t.Fatal(err)
	}
	if s != "" {
		t.Errorf("empty metadata encoded as %q, want empty string", s)
	}
}
