// Package watch tails the JSONL usage log and delivers newly appended
// records to a handler, for live dashboards. fsnotify drives the tail;
// a polling variant covers filesystems without change notification.
package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thamam/claude-hub/internal/usage"
)

// debounceDefault coalesces write bursts into one read.
const debounceDefault = 200 * time.Millisecond

// pollDefault is the polling interval when fsnotify is unavailable.
const pollDefault = 2 * time.Second

// Tailer follows the usage log from its current end.
type Tailer struct {
	path     string
	handler  func(usage.Event)
	debounce time.Duration
	offset   int64
	partial  []byte
}

// NewTailer creates a tailer for the log file. The handler runs on the
// tail goroutine; it must not block for long.
func NewTailer(path string, handler func(usage.Event)) *Tailer {
	return &Tailer{path: path, handler: handler, debounce: debounceDefault}
}

// Run follows the log until ctx is cancelled. The watch starts at the
// current end of file, so only records appended after Run begins are
// delivered. The parent directory is watched so log rotation and
// late creation are picked up.
func (t *Tailer) Run(ctx context.Context) error {
	if info, err := os.Stat(t.path); err == nil {
		t.offset = info.Size()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	debounceTimer := time.NewTimer(t.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			t.drain()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(t.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(t.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}

// drain reads from the last offset to the current end of file and
// delivers complete lines. Truncation resets the offset to zero.
func (t *Tailer) drain() {
	f, err := os.Open(t.path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if info.Size() == t.offset {
		return
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// Incomplete trailing line; keep it for the next drain.
			t.partial = append(t.partial, line...)
			t.offset += int64(len(line))
			return
		}
		t.offset += int64(len(line))

		full := line
		if len(t.partial) > 0 {
			full = append(t.partial, line...)
			t.partial = nil
		}
		t.deliver(full)
	}
}

func (t *Tailer) deliver(line []byte) {
	var record map[string]any
	if err := json.Unmarshal(line, &record); err != nil {
		return
	}
	t.handler(usage.FromRecord(record))
}

// PollTailer follows the log by polling, for filesystems where
// fsnotify does not work (NFS and friends).
type PollTailer struct {
	tailer   *Tailer
	interval time.Duration
}

// NewPollTailer creates a polling tailer.
func NewPollTailer(path string, handler func(usage.Event), interval time.Duration) *PollTailer {
	if interval == 0 {
		interval = pollDefault
	}
	return &PollTailer{
		tailer:   &Tailer{path: path, handler: handler, debounce: debounceDefault},
		interval: interval,
	}
}

// Run polls the log until ctx is cancelled. Only records appended after
// Run begins are delivered.
func (p *PollTailer) Run(ctx context.Context) error {
	if info, err := os.Stat(p.tailer.path); err == nil {
		p.tailer.offset = info.Size()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tailer.drain()
		}
	}
}
