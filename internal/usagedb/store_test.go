package usagedb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/thamam/claude-hub/internal/usage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertAndCount(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		ev, err := usage.NewEvent("bash", usage.Session{ID: "s1", Name: "n"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Insert(ev); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}
}

func TestInsertAfterClose(t *testing.T) {
	store := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	ev, _ := usage.NewEvent("bash", usage.Session{ID: "s1"}, nil)
	if err := store.Insert(ev); !errors.Is(err, usage.ErrClosed) {
		t.Errorf("Insert after Close = %v, want ErrClosed", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	store := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestViews(t *testing.T) {
	store := openTestStore(t)

	write := func(tool, session string, extras map[string]any) {
		t.Helper()
		ev, err := usage.NewEvent(tool, usage.Session{ID: session, Name: "n"}, extras)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Insert(ev); err != nil {
			t.Fatal(err)
		}
	}

	write("bash", "s1", nil)
	write("bash", "s2", nil)
	write("skill", "s1", map[string]any{"skill_name": "pdf"})
	write("subagent", "s2", map[string]any{"subagent_name": "debugger"})

	var invocations, sessions int
	err := store.db.QueryRow(
		"SELECT invocations, sessions_used FROM tool_popularity WHERE tool_name = 'bash'",
	).Scan(&invocations, &sessions)
	if err != nil {
		t.Fatal(err)
	}
	if invocations != 2 || sessions != 2 {
		t.Errorf("tool_popularity bash = (%d, %d), want (2, 2)", invocations, sessions)
	}

	var skill string
	err = store.db.QueryRow("SELECT skill_name FROM skill_usage").Scan(&skill)
	if err != nil {
		t.Fatal(err)
	}
	if skill != "pdf" {
		t.Errorf("skill_usage = %q, want pdf", skill)
	}

	var subagent string
	err = store.db.QueryRow("SELECT subagent_name FROM subagent_usage").Scan(&subagent)
	if err != nil {
		t.Fatal(err)
	}
	if subagent != "debugger" {
		t.Errorf("subagent_usage = %q, want debugger", subagent)
	}

	var total, unique int
	err = store.db.QueryRow(
		"SELECT total_invocations, unique_tools FROM session_summary WHERE session_id = 's1'",
	).Scan(&total, &unique)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || unique != 2 {
		t.Errorf("session_summary s1 = (%d, %d), want (2, 2)", total, unique)
	}
}

func TestMetadataStoredAsBlob(t *testing.T) {
	store := openTestStore(t)

	ev, err := usage.NewEvent("web_search", usage.Session{ID: "s1", Name: "n"},
		map[string]any{"query_length": 42})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ev); err != nil {
		t.Fatal(err)
	}

	var metadata string
	if err := store.db.QueryRow("SELECT metadata FROM usage_log").Scan(&metadata); err != nil {
		t.Fatal(err)
	}
	if metadata != `{"query_length":42}` {
		t.Errorf("metadata = %q", metadata)
	}
}

func TestEmptyOptionalColumnsAreNull(t *testing.T) {
	store := openTestStore(t)

	ev, _ := usage.NewEvent("bash", usage.Session{ID: "s1", Name: "n"}, nil)
	if err := store.Insert(ev); err != nil {
		t.Fatal(err)
	}

	var nulls int
	err := store.db.QueryRow(
		"SELECT COUNT(*) FROM usage_log WHERE skill_name IS NULL AND subagent_name IS NULL AND metadata IS NULL",
	).Scan(&nulls)
	if err != nil {
		t.Fatal(err)
	}
	if nulls != 1 {
		t.Error("empty optional fields should be stored as NULL")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")

	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ev, _ := usage.NewEvent("bash", usage.Session{ID: "s1"}, nil)
	if err := first.Insert(ev); err != nil {
		t.Fatal(err)
	}
	first.Close()

	// Reopening must keep data and not fail on existing schema.
	second, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	n, err := second.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
