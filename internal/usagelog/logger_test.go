package usagelog

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/thamam/claude-hub/internal/jsonl"
	"github.com/thamam/claude-hub/internal/usage"
	"github.com/thamam/claude-hub/internal/usagedb"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		LogPath:   filepath.Join(dir, "usage.jsonl"),
		DBPath:    filepath.Join(dir, "usage.db"),
		SessionID: "s1", SessionName: "test",
	}
}

func TestBackendSelection(t *testing.T) {
	cfg := testConfig(t)

	// No database file: JSONL.
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.Backend() != BackendJSONL {
		t.Errorf("Backend = %q, want jsonl", l.Backend())
	}
	l.Close()

	// Create the database: subsequent loggers pick SQLite.
	store, err := usagedb.Open(cfg.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	l, err = New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if l.Backend() != BackendSQLite {
		t.Errorf("Backend = %q, want sqlite", l.Backend())
	}
}

func TestLogToolUsageJSONL(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.LogToolUsage("bash", map[string]any{"command_length": 10}); err != nil {
		t.Fatal(err)
	}
	if err := l.LogSkill("pdf", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.LogSubagent("debugger", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	events, skipped, err := jsonl.ReadAll(cfg.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 || len(events) != 3 {
		t.Fatalf("got %d events (%d skipped), want 3", len(events), skipped)
	}
	if events[1].Tool != "skill" || events[1].SkillName != "pdf" {
		t.Errorf("skill event = %+v", events[1])
	}
	if events[2].Tool != "subagent" || events[2].SubagentName != "debugger" {
		t.Errorf("subagent event = %+v", events[2])
	}
}

func TestConvenienceWrappers(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.LogWebSearch("how to exit vim", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.LogBash("ls -la", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.LogFileOperation("read", "/etc/hosts", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.LogWebFetch("https://example.com", nil); err != nil {
		t.Fatal(err)
	}
	l.Close()

	events, _, err := jsonl.ReadAll(cfg.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}

	if events[0].Metadata["query_length"] != float64(len("how to exit vim")) {
		t.Errorf("web_search metadata = %v", events[0].Metadata)
	}
	if events[2].Tool != "file_read" || events[2].Metadata["file_path"] != "/etc/hosts" {
		t.Errorf("file operation event = %+v", events[2])
	}
	if events[3].Tool != "web_fetch" || events[3].Metadata["url"] != "https://example.com" {
		t.Errorf("web_fetch event = %+v", events[3])
	}
}

func TestExtrasNotMutated(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	extras := map[string]any{"key": "value"}
	if err := l.LogSkill("pdf", extras); err != nil {
		t.Fatal(err)
	}
	if len(extras) != 1 {
		t.Errorf("caller extras mutated: %v", extras)
	}
}

func TestLogAfterClose(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if err := l.LogToolUsage("bash", nil); !errors.Is(err, usage.ErrClosed) {
		t.Errorf("LogToolUsage after Close = %v, want ErrClosed", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestInvalidEventRejected(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.LogToolUsage("", nil); !errors.Is(err, usage.ErrInvalidEvent) {
		t.Errorf("empty tool = %v, want ErrInvalidEvent", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	cfg := testConfig(t)
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				tool := fmt.Sprintf("tool-%d", g)
				if err := l.LogToolUsage(tool, nil); err != nil {
					t.Errorf("LogToolUsage: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	events, skipped, err := jsonl.ReadAll(cfg.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d: concurrent writes produced torn lines", skipped)
	}
	if len(events) != goroutines*perGoroutine {
		t.Errorf("got %d events, want %d", len(events), goroutines*perGoroutine)
	}
}

func TestJSONLWriteFailureWarnsAndSwallows(t *testing.T) {
	cfg := testConfig(t)

	core, observed := observer.New(zap.WarnLevel)
	l, err := New(cfg, zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	if l.Backend() != BackendJSONL {
		t.Fatalf("Backend = %q, want jsonl", l.Backend())
	}

	// Force the underlying appender closed behind the facade's back.
	l.backend.(jsonlBackend).app.Close()

	if err := l.LogToolUsage("bash", nil); err != nil {
		t.Errorf("jsonl write failure should not reach the caller, got %v", err)
	}

	warns := observed.FilterMessage("usage log write failed").All()
	if len(warns) != 1 {
		t.Fatalf("warn entries = %d, want 1 (%+v)", len(warns), observed.All())
	}
	fields := warns[0].ContextMap()
	if fields["tool"] != "bash" {
		t.Errorf("warn fields = %v", fields)
	}
	if _, ok := fields["error"]; !ok {
		t.Errorf("warn missing error field: %v", fields)
	}
	l.Close()
}

func TestSQLiteWriteFailurePropagates(t *testing.T) {
	cfg := testConfig(t)
	store, err := usagedb.Open(cfg.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	l, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.Backend() != BackendSQLite {
		t.Fatalf("Backend = %q, want sqlite", l.Backend())
	}

	// Force the underlying store closed behind the facade's back.
	l.backend.(sqliteBackend).store.Close()

	if err := l.LogToolUsage("bash", nil); err == nil {
		t.Error("expected sqlite write failure to propagate")
	}
	l.Close()
}
