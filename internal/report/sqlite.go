// internal/report/sqlite.go
package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/valpere/UIVerifier/pkg/types"
)

// SQLiteWriter persists run results to a local SQLite database.
type SQLiteWriter struct {
	db         *sql.DB
	runsTable  string
	stepsTable string
}

// NewSQLiteWriter creates a SQLite report writer, creating the database
// file and schema as needed
func NewSQLiteWriter(path, table string) (*SQLiteWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}

	runsTable, stepsTable, err := tableNames(table)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	w := &SQLiteWriter{
		db:         db,
		runsTable:  runsTable,
		stepsTable: stepsTable,
	}

	if err := w.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createSchema creates the runs and steps tables if missing
func (w *SQLiteWriter) createSchema() error {
	runs := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS [%s] (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			target_url TEXT,
			status TEXT NOT NULL,
			failure_class TEXT,
			steps_total INTEGER,
			steps_passed INTEGER,
			steps_failed INTEGER,
			steps_skipped INTEGER,
			artifacts TEXT,
			attempt INTEGER,
			error TEXT,
			started_at DATETIME,
			finished_at DATETIME,
			duration_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, w.runsTable)

	steps := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS [%s] (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			name TEXT,
			type TEXT,
			status TEXT,
			detail TEXT,
			error TEXT,
			started_at DATETIME,
			duration_ms INTEGER,
			PRIMARY KEY (run_id, step_index)
		)`, w.stepsTable)

	for _, query := range []string{runs, steps} {
		if _, err := w.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Write inserts one run and its steps in a transaction. Re-running with
// the same run id replaces the stored rows.
func (w *SQLiteWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := fmt.Sprintf(`
		INSERT OR REPLACE INTO [%s] (%s)
		VALUES (%s)`,
		w.runsTable,
		strings.Join(runColumns, ", "),
		placeholders(len(runColumns)),
	)
	if _, err := tx.ExecContext(ctx, runQuery, runValues(result)...); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stepQuery := fmt.Sprintf(`
		INSERT OR REPLACE INTO [%s] (%s)
		VALUES (%s)`,
		w.stepsTable,
		strings.Join(stepColumns, ", "),
		placeholders(len(stepColumns)),
	)

	stmt, err := tx.PrepareContext(ctx, stepQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for _, step := range result.Steps {
		if _, err := stmt.ExecContext(ctx, stepValues(result.ID, step)...); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.Index, err)
		}
	}

	return tx.Commit()
}

// Ping verifies the database is still reachable
func (w *SQLiteWriter) Ping(ctx context.Context) error {
	if w.db == nil {
		return fmt.Errorf("sqlite writer is closed")
	}
	return w.db.PingContext(ctx)
}

// Close closes the database
func (w *SQLiteWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// placeholders builds a "?, ?, ..." list of the given length
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
