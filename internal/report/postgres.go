// internal/report/postgres.go
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/valpere/UIVerifier/pkg/types"
)

// PostgresWriter persists run results to a PostgreSQL database.
type PostgresWriter struct {
	db         *sql.DB
	runsTable  string
	stepsTable string
}

// NewPostgresWriter creates a PostgreSQL report writer and ensures the
// schema exists
func NewPostgresWriter(dsn, table string) (*PostgresWriter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}

	runsTable, stepsTable, err := tableNames(table)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	w := &PostgresWriter{
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
func (w *PostgresWriter) createSchema() error {
	runs := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
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
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			duration_ms BIGINT,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`, w.runsTable)

	steps := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			name TEXT,
			type TEXT,
			status TEXT,
			detail TEXT,
			error TEXT,
			started_at TIMESTAMPTZ,
			duration_ms BIGINT,
			PRIMARY KEY (run_id, step_index)
		)`, w.stepsTable)

	for _, query := range []string{runs, steps} {
		if _, err := w.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Write inserts one run and its steps in a transaction. Duplicate run ids
// are ignored so retried deliveries stay idempotent.
func (w *PostgresWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := fmt.Sprintf(`
		INSERT INTO %q (%s)
		VALUES (%s)
		ON CONFLICT (id) DO NOTHING`,
		w.runsTable,
		strings.Join(runColumns, ", "),
		pgPlaceholders(len(runColumns)),
	)
	if _, err := tx.ExecContext(ctx, runQuery, runValues(result)...); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stepQuery := fmt.Sprintf(`
		INSERT INTO %q (%s)
		VALUES (%s)
		ON CONFLICT (run_id, step_index) DO NOTHING`,
		w.stepsTable,
		strings.Join(stepColumns, ", "),
		pgPlaceholders(len(stepColumns)),
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
func (w *PostgresWriter) Ping(ctx context.Context) error {
	if w.db == nil {
		return fmt.Errorf("postgres writer is closed")
	}
	return w.db.PingContext(ctx)
}

// Close closes the database
func (w *PostgresWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// pgPlaceholders builds a "$1, $2, ..." list of the given length
func pgPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
