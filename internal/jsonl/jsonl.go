// Package jsonl implements the append-only flat-file backend for usage
// events: one self-delimited JSON object per line, UTF-8, never rewritten.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thamam/claude-hub/internal/usage"
)

// Appender writes one serialized event per line to a designated file.
// It holds the file handle open for the lifetime of the appender; the
// caller is responsible for serializing concurrent Append calls.
type Appender struct {
	path string
	file *os.File
}

// NewAppender opens (or creates) the log file for appending, creating
// parent directories as needed.
func NewAppender(path string) (*Appender, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("jsonl: create directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open file: %w", err)
	}

	return &Appender{path: path, file: file}, nil
}

// Path returns the log file location.
func (a *Appender) Path() string { return a.path }

// Append serializes the event as a single line, writes it, and syncs to
// disk before returning. Prior lines are never rewritten or reordered.
func (a *Appender) Append(ev usage.Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("jsonl: marshal event: %w", err)
	}

	if _, err := a.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("jsonl: write event: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("jsonl: sync: %w", err)
	}
	return nil
}

// Close closes the underlying file handle.
func (a *Appender) Close() error {
	return a.file.Close()
}

// ReadAll reads the whole log file into an ordered sequence of events.
// Blank lines are ignored; malformed lines are skipped and counted, not
// fatal. A missing file is an error — callers decide whether that aborts.
func ReadAll(path string) (events []usage.Event, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("jsonl: open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			skipped++
			continue
		}
		events = append(events, usage.FromRecord(m))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("jsonl: scan file: %w", err)
	}
	return events, skipped, nil
}
