package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thamam/claude-hub/internal/usage"
)

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		t.Fatal(err)
	}
}

func TestDrainDeliversCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")

	var got []usage.Event
	tailer := NewTailer(path, func(ev usage.Event) { got = append(got, ev) })

	appendLine(t, path, `{"timestamp":"t1","tool":"bash","session_id":"s1","session_name":"n"}`+"\n")
	appendLine(t, path, `{"timestamp":"t2","tool":"grep","session_id":"s1","session_name":"n"}`+"\n")
	tailer.drain()

	if len(got) != 2 {
		t.Fatalf("delivered %d events, want 2", len(got))
	}
	if got[0].Tool != "bash" || got[1].Tool != "grep" {
		t.Errorf("events = %+v", got)
	}

	// Nothing new: no redelivery.
	got = nil
	tailer.drain()
	if len(got) != 0 {
		t.Errorf("redelivered %d events", len(got))
	}
}

func TestDrainHoldsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")

	var got []usage.Event
	tailer := NewTailer(path, func(ev usage.Event) { got = append(got, ev) })

	appendLine(t, path, `{"timestamp":"t1","tool":"ba`)
	tailer.drain()
	if len(got) != 0 {
		t.Fatalf("partial line delivered early: %+v", got)
	}

	appendLine(t, path, `sh","session_id":"s1","session_name":"n"}`+"\n")
	tailer.drain()
	if len(got) != 1 || got[0].Tool != "bash" {
		t.Fatalf("stitched event = %+v", got)
	}
}

func TestDrainSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")

	var got []usage.Event
	tailer := NewTailer(path, func(ev usage.Event) { got = append(got, ev) })

	appendLine(t, path, "not json\n")
	appendLine(t, path, `{"timestamp":"t1","tool":"bash","session_id":"s1","session_name":"n"}`+"\n")
	tailer.drain()

	if len(got) != 1 || got[0].Tool != "bash" {
		t.Errorf("events = %+v", got)
	}
}

func TestDrainResetsOnTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")

	var got []usage.Event
	tailer := NewTailer(path, func(ev usage.Event) { got = append(got, ev) })

	appendLine(t, path, `{"timestamp":"t1","tool":"bash","session_id":"s1","session_name":"n"}`+"\n")
	tailer.drain()

	// Rotation: the file is replaced with shorter content.
	if err := os.WriteFile(path, []byte(`{"timestamp":"t2","tool":"grep","session_id":"s1","session_name":"n"}`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	got = nil
	tailer.drain()
	if len(got) != 1 || got[0].Tool != "grep" {
		t.Errorf("events after truncation = %+v", got)
	}
}

func TestTailerDeliversAppendsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	appendLine(t, path, `{"timestamp":"t0","tool":"old","session_id":"s1","session_name":"n"}`+"\n")

	events := make(chan usage.Event, 10)
	tailer := NewTailer(path, func(ev usage.Event) { events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx) }()

	// Give the watch time to establish before appending.
	time.Sleep(300 * time.Millisecond)
	appendLine(t, path, `{"timestamp":"t1","tool":"bash","session_id":"s1","session_name":"n"}`+"\n")

	select {
	case ev := <-events:
		if ev.Tool != "bash" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Timestamp == "t0" {
			t.Error("pre-existing record delivered")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestPollTailer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	appendLine(t, path, `{"timestamp":"t0","tool":"old","session_id":"s1","session_name":"n"}`+"\n")

	events := make(chan usage.Event, 10)
	poller := NewPollTailer(path, func(ev usage.Event) { events <- ev }, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	appendLine(t, path, `{"timestamp":"t1","tool":"bash","session_id":"s1","session_name":"n"}`+"\n")

	select {
	case ev := <-events:
		if ev.Tool != "bash" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}
