// Package migrate moves usage data from the JSONL log into the SQLite
// database, once, with a backup and a row-count verification.
package migrate

import (
	"fmt"
	"os"

	"github.com/thamam/claude-hub/internal/jsonl"
	"github.com/thamam/claude-hub/internal/usagedb"
)

// IntegrityError reports a post-migration row-count mismatch. It is
// reported, not fatal: both the backup and the partially migrated
// destination stay in place for the operator to inspect.
type IntegrityError struct {
	Parsed int
	Rows   int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("migrate: row count mismatch: parsed %d source lines, destination has %d rows", e.Parsed, e.Rows)
}

// Report summarizes one migration run.
type Report struct {
	Parsed     int
	Skipped    int
	Inserted   int
	Rows       int
	BackupPath string
	Integrity  *IntegrityError
}

// Migrator replays JSONL records through the SQLite insert path.
type Migrator struct {
	JSONLPath string
	DBPath    string
}

// Run executes the migration: read all source records (malformed lines
// skipped and counted), back up the source byte-for-byte, ensure the
// destination schema, replay each record preserving its original
// timestamp, then verify counts. A missing source file or an
// un-creatable destination aborts before any write.
func (m *Migrator) Run() (Report, error) {
	var report Report

	if _, err := os.Stat(m.JSONLPath); err != nil {
		return report, fmt.Errorf("migrate: source log: %w", err)
	}

	events, skipped, err := jsonl.ReadAll(m.JSONLPath)
	if err != nil {
		return report, err
	}
	report.Parsed = len(events)
	report.Skipped = skipped

	report.BackupPath = m.JSONLPath + ".backup"
	if err := copyFile(m.JSONLPath, report.BackupPath); err != nil {
		return report, fmt.Errorf("migrate: backup source: %w", err)
	}

	store, err := usagedb.Open(m.DBPath)
	if err != nil {
		return report, err
	}
	defer store.Close()

	for _, ev := range events {
		if err := store.Insert(ev); err != nil {
			// Partial destination stays in place; no automatic rollback.
			return report, err
		}
		report.Inserted++
	}

	report.Rows, err = store.Count()
	if err != nil {
		return report, err
	}
	if report.Rows != report.Parsed {
		report.Integrity = &IntegrityError{Parsed: report.Parsed, Rows: report.Rows}
	}

	return report, nil
}

// copyFile writes an exact copy of src at dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0600)
}
