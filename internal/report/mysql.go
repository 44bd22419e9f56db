// internal/report/mysql.go
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/valpere/UIVerifier/pkg/types"
)

// MySQLWriter persists run results to a MySQL database.
type MySQLWriter struct {
	db         *sql.DB
	runsTable  string
	stepsTable string
}

// NewMySQLWriter creates a MySQL report writer and ensures the schema
// exists. The DSN must name a database, e.g. "user:pass@tcp(host)/verify".
func NewMySQLWriter(dsn, table string) (*MySQLWriter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql connection string is required")
	}

	runsTable, stepsTable, err := tableNames(table)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	w := &MySQLWriter{
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
func (w *MySQLWriter) createSchema() error {
	runs := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+`
			id VARCHAR(64) PRIMARY KEY,
			scenario VARCHAR(255) NOT NULL,
			target_url TEXT,
			status VARCHAR(32) NOT NULL,
			failure_class VARCHAR(32),
			steps_total INT,
			steps_passed INT,
			steps_failed INT,
			steps_skipped INT,
			artifacts TEXT,
			attempt INT,
			error TEXT,
			started_at DATETIME(3),
			finished_at DATETIME(3),
			duration_ms BIGINT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, w.runsTable)

	steps := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+`
			run_id VARCHAR(64) NOT NULL,
			step_index INT NOT NULL,
			name VARCHAR(255),
			type VARCHAR(32),
			status VARCHAR(32),
			detail TEXT,
			error TEXT,
			started_at DATETIME(3),
			duration_ms BIGINT,
			PRIMARY KEY (run_id, step_index)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, w.stepsTable)

	for _, query := range []string{runs, steps} {
		if _, err := w.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Write inserts one run and its steps in a transaction. Duplicate run ids
// are ignored so retried deliveries stay idempotent.
func (w *MySQLWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runQuery := fmt.Sprintf("INSERT IGNORE INTO `%s` (%s) VALUES (%s)",
		w.runsTable,
		strings.Join(runColumns, ", "),
		placeholders(len(runColumns)),
	)
	if _, err := tx.ExecContext(ctx, runQuery, runValues(result)...); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stepQuery := fmt.Sprintf("INSERT IGNORE INTO `%s` (%s) VALUES (%s)",
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
func (w *MySQLWriter) Ping(ctx context.Context) error {
	if w.db == nil {
		return fmt.Errorf("mysql writer is closed")
	}
	return w.db.PingContext(ctx)
}

// Close closes the database
func (w *MySQLWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}
