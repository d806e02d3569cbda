package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thamam/claude-hub/internal/jsonl"
	"github.com/thamam/claude-hub/internal/stats"
	"github.com/thamam/claude-hub/internal/usage"
)

func writeLog(t *testing.T, path string, good int, malformed int) {
	t.Helper()
	app, err := jsonl.NewAppender(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < good; i++ {
		ev, err := usage.NewEvent("bash", usage.Session{ID: "s1", Name: "n"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := app.Append(ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := app.Close(); err != nil {
		t.Fatal(err)
	}

	if malformed > 0 {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < malformed; i++ {
			if _, err := f.WriteString("not json at all\n"); err != nil {
				t.Fatal(err)
			}
		}
		f.Close()
	}
}

func TestRunMigratesAllGoodRecords(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "usage.jsonl")
	dst := filepath.Join(dir, "usage.db")
	writeLog(t, src, 7, 3)

	m := Migrator{JSONLPath: src, DBPath: dst}
	report, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}

	if report.Parsed != 7 || report.Skipped != 3 {
		t.Errorf("Parsed/Skipped = %d/%d, want 7/3", report.Parsed, report.Skipped)
	}
	if report.Inserted != 7 || report.Rows != 7 {
		t.Errorf("Inserted/Rows = %d/%d, want 7/7", report.Inserted, report.Rows)
	}
	if report.Integrity != nil {
		t.Errorf("unexpected integrity error: %v", report.Integrity)
	}
}

func TestRunBackupIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "usage.jsonl")
	writeLog(t, src, 3, 1)

	original, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}

	m := Migrator{JSONLPath: src, DBPath: filepath.Join(dir, "usage.db")}
	report, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}

	backup, err := os.ReadFile(report.BackupPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != string(original) {
		t.Error("backup differs from the source log")
	}
	if report.BackupPath != src+".backup" {
		t.Errorf("BackupPath = %q", report.BackupPath)
	}
}

func TestRunPreservesTimestamps(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "usage.jsonl")
	dst := filepath.Join(dir, "usage.db")

	line := `{"timestamp":"2024-05-01T10:00:00.000Z","tool":"bash","session_id":"s1","session_name":"n"}` + "\n"
	if err := os.WriteFile(src, []byte(line), 0600); err != nil {
		t.Fatal(err)
	}

	m := Migrator{JSONLPath: src, DBPath: dst}
	if _, err := m.Run(); err != nil {
		t.Fatal(err)
	}

	reader, err := stats.OpenReader(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	first, last, err := reader.DateRange()
	if err != nil {
		t.Fatal(err)
	}
	if first != "2024-05-01T10:00:00.000Z" || last != first {
		t.Errorf("timestamps not preserved: %q .. %q", first, last)
	}
}

func TestRunMissingSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	m := Migrator{
		JSONLPath: filepath.Join(dir, "absent.jsonl"),
		DBPath:    filepath.Join(dir, "usage.db"),
	}
	if _, err := m.Run(); err == nil {
		t.Fatal("expected error for missing source log")
	}
	if _, statErr := os.Stat(m.DBPath); statErr == nil {
		t.Error("destination database created despite fatal source error")
	}
}

func TestIntegrityErrorMessage(t *testing.T) {
	e := &IntegrityError{Parsed: 10, Rows: 7}
	want := "migrate: row count mismatch: parsed 10 source lines, destination has 7 rows"
	if e.Error() != want {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestRunIntoExistingDatabaseDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "usage.jsonl")
	dst := filepath.Join(dir, "usage.db")
	writeLog(t, src, 2, 0)

	// First migration populates the database.
	m := Migrator{JSONLPath: src, DBPath: dst}
	if _, err := m.Run(); err != nil {
		t.Fatal(err)
	}

	// A second run doubles the rows; the count check must flag it.
	report, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if report.Integrity == nil {
		t.Fatal("expected integrity mismatch on repeated migration")
	}
	if report.Integrity.Parsed != 2 || report.Integrity.Rows != 4 {
		t.Errorf("Integrity = %+v", report.Integrity)
	}
}
