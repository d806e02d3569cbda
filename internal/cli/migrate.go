package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thamam/claude-hub/internal/migrate"
)

var (
	migrateSource string
	migrateTarget string
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateSource, "source", "", "JSONL log to migrate (default from config)")
	migrateCmd.Flags().StringVar(&migrateTarget, "target", "", "SQLite database to create (default from config)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the JSONL log into the SQLite store",
	Long: "Parses every line of the JSONL log, backs the log up alongside itself,\n" +
		"and inserts the records into the SQLite store with original timestamps preserved.",
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m := migrate.Migrator{
		JSONLPath: firstNonEmpty(migrateSource, cfg.UsageLog),
		DBPath:    firstNonEmpty(migrateTarget, cfg.UsageDB),
	}

	report, err := m.Run()
	if err != nil {
		return err
	}

	fmt.Printf("Parsed:   %d records", report.Parsed)
	if report.Skipped > 0 {
		fmt.Printf("  (%d malformed lines skipped)", report.Skipped)
	}
	fmt.Println()
	fmt.Printf("Inserted: %d\n", report.Inserted)
	fmt.Printf("Backup:   %s\n", report.BackupPath)

	if report.Integrity != nil {
		fmt.Printf("WARNING:  row count mismatch (parsed %d, stored %d)\n",
			report.Integrity.Parsed, report.Integrity.Rows)
		return report.Integrity
	}
	fmt.Printf("Verified: %d rows in %s\n", report.Rows, m.DBPath)
	return nil
}
