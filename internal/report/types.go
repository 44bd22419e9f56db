// internal/report/types.go

// Package report delivers verification run results to configured sinks:
// local files (json, yaml, csv, excel), databases (sqlite, postgres,
// mysql, mongodb), and HTTP collectors (webhook).
package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valpere/UIVerifier/pkg/types"
)

// Default storage names used when the scenario does not override them
const (
	DefaultRunsTable  = "verification_runs"
	DefaultStepsTable = "verification_steps"
	DefaultCollection = "runs"
)

// Writer delivers run results to one sink. Writers buffer or stream at
// their discretion; Close flushes and releases resources.
type Writer interface {
	Write(ctx context.Context, result *types.RunResult) error
	Close() error
}

// SQL identifier validation
var (
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// Reserved words across the supported dialects (PostgreSQL, SQLite,
	// MySQL). Table names come from a single scenario knob, so one
	// conservative set guards all three rather than a per-dialect list.
	sqlReservedWords = map[string]bool{
		"ALL": true, "ALTER": true, "ANALYZE": true, "AND": true, "ANY": true,
		"AS": true, "ASC": true, "BETWEEN": true, "BY": true, "CASE": true,
		"CAST": true, "CHECK": true, "COLLATE": true, "COLUMN": true,
		"CONSTRAINT": true, "CREATE": true, "CROSS": true, "CURRENT_DATE": true,
		"CURRENT_TIME": true, "CURRENT_TIMESTAMP": true, "DATABASE": true,
		"DEFAULT": true, "DELETE": true, "DESC": true, "DISTINCT": true,
		"DROP": true, "ELSE": true, "END": true, "EXCEPT": true, "EXISTS": true,
		"FALSE": true, "FOR": true, "FOREIGN": true, "FROM": true, "FULL": true,
		"GROUP": true, "HAVING": true, "IF": true, "IN": true, "INDEX": true,
		"INNER": true, "INSERT": true, "INTERSECT": true, "INTO": true,
		"IS": true, "JOIN": true, "KEY": true, "LEFT": true, "LIKE": true,
		"LIMIT": true, "NATURAL": true, "NOT": true, "NULL": true, "ON": true,
		"OR": true, "ORDER": true, "OUTER": true, "PRIMARY": true,
		"REFERENCES": true, "RIGHT": true, "SELECT": true, "SET": true,
		"TABLE": true, "THEN": true, "TO": true, "TRANSACTION": true,
		"TRUE": true, "UNION": true, "UNIQUE": true, "UPDATE": true,
		"USING": true, "VALUES": true, "WHEN": true, "WHERE": true,
		"WITH": true,
	}
)

// MaxIdentifierLength is the PostgreSQL limit, the tightest of the
// supported dialects
const MaxIdentifierLength = 63

// ValidateIdentifier checks that a user-supplied table name is a safe SQL
// identifier in every supported dialect
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("identifier too long (max %d characters): %s", MaxIdentifierLength, identifier)
	}

	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}

	if sqlReservedWords[strings.ToUpper(identifier)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", identifier)
	}

	return nil
}

// tableNames resolves and validates the runs and steps table names from
// the scenario's table setting
func tableNames(table string) (string, string, error) {
	runsTable, stepsTable := table, table+"_steps"
	if table == "" {
		runsTable, stepsTable = DefaultRunsTable, DefaultStepsTable
	}

	if err := ValidateIdentifier(runsTable); err != nil {
		return "", "", fmt.Errorf("invalid table name: %w", err)
	}
	if err := ValidateIdentifier(stepsTable); err != nil {
		return "", "", fmt.Errorf("invalid steps table name: %w", err)
	}
	return runsTable, stepsTable, nil
}

// runColumns is the column order shared by the SQL sinks for the runs table
var runColumns = []string{
	"id", "scenario", "target_url", "status", "failure_class",
	"steps_total", "steps_passed", "steps_failed", "steps_skipped",
	"artifacts", "attempt", "error", "started_at", "finished_at",
	"duration_ms",
}

// stepColumns is the column order shared by the SQL sinks for the steps table
var stepColumns = []string{
	"run_id", "step_index", "name", "type", "status",
	"detail", "error", "started_at", "duration_ms",
}

// runValues flattens a run into the runColumns order
func runValues(result *types.RunResult) []interface{} {
	passed, failed, skipped := result.StepCount()
	return []interface{}{
		result.ID,
		result.Scenario,
		result.TargetURL,
		string(result.Status),
		string(result.FailureClass),
		len(result.Steps),
		passed,
		failed,
		skipped,
		strings.Join(result.Artifacts, ";"),
		result.Attempt,
		result.Error,
		result.StartedAt.UTC(),
		result.FinishedAt.UTC(),
		result.Duration.Milliseconds(),
	}
}

// stepValues flattens one step into the stepColumns order
func stepValues(runID string, step types.StepResult) []interface{} {
	return []interface{}{
		runID,
		step.Index,
		step.Name,
		string(step.Type),
		string(step.Status),
		step.Detail,
		step.Error,
		step.StartedAt.UTC(),
		step.Duration.Milliseconds(),
	}
}

// csvColumns is the header order for the csv sink, one row per step
var csvColumns = []string{
	"run_id", "scenario", "target_url", "run_status", "run_error",
	"step_index", "step_name", "step_type", "step_status",
	"step_detail", "step_error", "started_at", "duration_ms",
}

func csvHeader() []string {
	return append([]string(nil), csvColumns...)
}

// csvRecords renders one row per step in csvColumns order. A run without
// steps still produces one row so the run is not lost from the file.
func csvRecords(result *types.RunResult) [][]string {
	runFields := []string{
		result.ID,
		result.Scenario,
		result.TargetURL,
		string(result.Status),
		result.Error,
	}

	if len(result.Steps) == 0 {
		row := append(append([]string(nil), runFields...),
			"", "", "", "", "", "",
			result.StartedAt.UTC().Format(time.RFC3339),
			fmt.Sprintf("%d", result.Duration.Milliseconds()))
		return [][]string{row}
	}

	records := make([][]string, 0, len(result.Steps))
	for _, step := range result.Steps {
		row := append(append([]string(nil), runFields...),
			fmt.Sprintf("%d", step.Index),
			step.Name,
			string(step.Type),
			string(step.Status),
			step.Detail,
			step.Error,
			step.StartedAt.UTC().Format(time.RFC3339),
			fmt.Sprintf("%d", step.Duration.Milliseconds()))
		records = append(records, row)
	}
	return records
}
