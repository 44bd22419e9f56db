// internal/report/report_test.go
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/pkg/types"
)

func sampleRun(id string) *types.RunResult {
	started := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return &types.RunResult{
		ID:        id,
		Scenario:  "room-creation-verification",
		TargetURL: "http://localhost:5173",
		Status:    types.RunPassed,
		Steps: []types.StepResult{
			{
				Index:     0,
				Name:      "navigate_1",
				Type:      types.StepNavigate,
				Status:    types.StepPassed,
				StartedAt: started,
				Duration:  1200 * time.Millisecond,
				Detail:    "http://localhost:5173",
			},
			{
				Index:     1,
				Name:      "click_text_2",
				Type:      types.StepClickText,
				Status:    types.StepPassed,
				StartedAt: started.Add(1200 * time.Millisecond),
				Duration:  300 * time.Millisecond,
				Detail:    "Create Room",
			},
		},
		Artifacts:  []string{"jules-scratch/verification/verification.png"},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Duration:   2 * time.Second,
		Attempt:    1,
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		expectError bool
	}{
		{"valid identifier", "verification_runs", false},
		{"valid with numbers", "runs2025", false},
		{"starts with underscore", "_private", false},
		{"mixed case", "VerificationRuns", false},
		{"empty string", "", true},
		{"starts with number", "123runs", true},
		{"contains space", "verification runs", true},
		{"contains hyphen", "verification-runs", true},
		{"contains semicolon", "runs;drop", true},
		{"reserved word", "select", true},
		{"reserved word case", "SELECT", true},
		{"too long", "a" + strings.Repeat("b", 63), true},
		{"max length", "a" + strings.Repeat("b", 62), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.identifier)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTableNames(t *testing.T) {
	tests := []struct {
		name          string
		table         string
		expectedRuns  string
		expectedSteps string
		expectError   bool
	}{
		{"default", "", "verification_runs", "verification_steps", false},
		{"custom", "ci_runs", "ci_runs", "ci_runs_steps", false},
		{"reserved word", "select", "", "", true},
		{"derived name too long", strings.Repeat("a", 60), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, steps, err := tableNames(tt.table)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runs != tt.expectedRuns {
				t.Errorf("expected runs table %q, got %q", tt.expectedRuns, runs)
			}
			if steps != tt.expectedSteps {
				t.Errorf("expected steps table %q, got %q", tt.expectedSteps, steps)
			}
		})
	}
}

func TestJSONWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	w := NewJSONWriter(path)

	ctx := context.Background()
	if err := w.Write(ctx, sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Write(ctx, sampleRun("run_2")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}

	var results []types.RunResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "run_1" || results[1].ID != "run_2" {
		t.Errorf("unexpected run ids: %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Scenario != "room-creation-verification" {
		t.Errorf("expected scenario name to survive, got %q", results[0].Scenario)
	}
	if len(results[0].Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(results[0].Steps))
	}
	if results[0].Steps[1].Detail != "Create Room" {
		t.Errorf("expected step detail to survive, got %q", results[0].Steps[1].Detail)
	}
}

func TestJSONWriterWriteAfterClose(t *testing.T) {
	w := NewJSONWriter(filepath.Join(t.TempDir(), "results.json"))
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if err := w.Write(context.Background(), sampleRun("run_1")); err == nil {
		t.Error("expected error writing to closed writer")
	}
}

func TestYAMLWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	w := NewYAMLWriter(path)

	if err := w.Write(context.Background(), sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}

	var results []types.RunResult
	if err := yaml.Unmarshal(data, &results); err != nil {
		t.Fatalf("report file is not valid YAML: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != types.RunPassed {
		t.Errorf("expected status passed, got %s", results[0].Status)
	}
	if results[0].Duration != 2*time.Second {
		t.Errorf("expected duration to survive, got %v", results[0].Duration)
	}
}

func TestCSVWriterStepRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Write(context.Background(), sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	// Reopening the same file must append rows without a second header
	w, err = NewCSVWriter(path)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	if err := w.Write(context.Background(), sampleRun("run_2")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open report file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("report file is not valid CSV: %v", err)
	}

	// header + 2 steps per run
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if records[0][0] != "run_id" {
		t.Errorf("expected header row, got %v", records[0])
	}
	if records[1][0] != "run_1" || records[3][0] != "run_2" {
		t.Errorf("unexpected run ids in rows: %s, %s", records[1][0], records[3][0])
	}
	if records[2][7] != "click_text" {
		t.Errorf("expected step type in row, got %q", records[2][7])
	}
}

func TestCSVWriterRunWithoutSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := sampleRun("run_1")
	run.Steps = nil
	run.Status = types.RunFailed
	run.Error = "chrome executable not found"

	if err := w.Write(context.Background(), run); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open report file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("report file is not valid CSV: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}
	if records[1][4] != "chrome executable not found" {
		t.Errorf("expected run error in row, got %q", records[1][4])
	}
}

func TestCSVWriterRequiresPath(t *testing.T) {
	if _, err := NewCSVWriter(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestExcelWriterWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")

	w, err := NewExcelWriter(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Write(context.Background(), sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer file.Close()

	runs, err := file.GetRows(runsSheet)
	if err != nil {
		t.Fatalf("failed to read runs sheet: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected header plus one run row, got %d rows", len(runs))
	}
	if runs[0][0] != "id" {
		t.Errorf("expected header row, got %v", runs[0])
	}
	if runs[1][0] != "run_1" || runs[1][1] != "room-creation-verification" {
		t.Errorf("unexpected run row: %v", runs[1])
	}

	steps, err := file.GetRows(stepsSheet)
	if err != nil {
		t.Fatalf("failed to read steps sheet: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected header plus two step rows, got %d rows", len(steps))
	}
	if steps[2][2] != "click_text_2" {
		t.Errorf("unexpected step name: %q", steps[2][2])
	}
}

func TestExcelWriterRequiresPath(t *testing.T) {
	if _, err := NewExcelWriter(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	w, err := NewSQLiteWriter(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Write(ctx, sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	// Writing the same run again must replace, not duplicate
	if err := w.Write(ctx, sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected rewrite error: %v", err)
	}

	var runCount int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM verification_runs").Scan(&runCount); err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	if runCount != 1 {
		t.Errorf("expected 1 run row, got %d", runCount)
	}

	var stepCount int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM verification_steps").Scan(&stepCount); err != nil {
		t.Fatalf("failed to count steps: %v", err)
	}
	if stepCount != 2 {
		t.Errorf("expected 2 step rows, got %d", stepCount)
	}

	var status string
	if err := w.db.QueryRow("SELECT status FROM verification_runs WHERE id = ?", "run_1").Scan(&status); err != nil {
		t.Fatalf("failed to read run status: %v", err)
	}
	if status != "passed" {
		t.Errorf("expected status passed, got %q", status)
	}
}

func TestSQLiteWriterCustomTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	w, err := NewSQLiteWriter(path, "ci_runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	if err := w.Write(context.Background(), sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM ci_runs_steps").Scan(&count); err != nil {
		t.Fatalf("failed to count steps: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 step rows, got %d", count)
	}
}

func TestSQLiteWriterInvalidTable(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{"reserved word", "select"},
		{"injection attempt", "runs; DROP TABLE runs"},
		{"starts with number", "1runs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLiteWriter(filepath.Join(t.TempDir(), "results.db"), tt.table)
			if err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestMongoWriterValidation(t *testing.T) {
	if _, err := NewMongoWriter("", "verify", "", 0); err == nil {
		t.Error("expected error for empty URI")
	}
	if _, err := NewMongoWriter("mongodb://localhost:27017", "", "", 0); err == nil {
		t.Error("expected error for empty database")
	}
}

func TestWebhookWriter(t *testing.T) {
	var gotPath, gotAuth, gotTeam string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotTeam = r.Header.Get("X-Team")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"accepted": true, "id": "col-1"}`)
	}))
	defer server.Close()

	w, err := NewWebhookWriter(server.URL+"/api/results", map[string]string{"X-Team": "qa"}, "secret", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	if err := w.Write(context.Background(), sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	if gotPath != "/api/results" {
		t.Errorf("expected POST to /api/results, got %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotTeam != "qa" {
		t.Errorf("expected custom header, got %q", gotTeam)
	}
}

func TestWebhookWriterRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"accepted": false, "message": "schema mismatch"}`)
	}))
	defer server.Close()

	w, err := NewWebhookWriter(server.URL, nil, "", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	err = w.Write(context.Background(), sampleRun("run_1"))
	if err == nil {
		t.Fatal("expected error for rejected result")
	}
	if !strings.Contains(err.Error(), "schema mismatch") {
		t.Errorf("expected rejection message in error, got: %v", err)
	}
}

func TestWebhookWriterRequiresURL(t *testing.T) {
	if _, err := NewWebhookWriter("", nil, "", 0); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewWebhookWriter("collector.example.com/results", nil, "", 0); err == nil {
		t.Error("expected error for relative URL")
	}
}

func TestManagerUnknownFormat(t *testing.T) {
	_, err := NewManager([]scenario.ReportSettings{{Format: "xml"}})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unsupported report format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestManagerFanOut(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "results.json")
	yamlPath := filepath.Join(dir, "results.yaml")

	m, err := NewManager([]scenario.ReportSettings{
		{Format: "json", Path: jsonPath},
		{Format: "yaml", Path: yamlPath},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targets := m.Targets()
	if len(targets) != 2 || targets[0] != "json" || targets[1] != "yaml" {
		t.Errorf("unexpected targets: %v", targets)
	}

	if err := m.Write(context.Background(), sampleRun("run_1")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	for _, path := range []string{jsonPath, yamlPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("expected report file %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("report file %s is empty", path)
		}
	}
}

type stubWriter struct {
	fail   bool
	writes int
	closed bool
}

func (s *stubWriter) Write(ctx context.Context, result *types.RunResult) error {
	s.writes++
	if s.fail {
		return fmt.Errorf("sink unavailable")
	}
	return nil
}

func (s *stubWriter) Close() error {
	s.closed = true
	return nil
}

func TestManagerSinkFailureDoesNotBlockOthers(t *testing.T) {
	failing := &stubWriter{fail: true}
	healthy := &stubWriter{}

	m := &Manager{}
	m.Add("failing", failing)
	m.Add("healthy", healthy)

	err := m.Write(context.Background(), sampleRun("run_1"))
	if err == nil {
		t.Fatal("expected error from failing sink")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure count in error, got: %v", err)
	}
	if healthy.writes != 1 {
		t.Errorf("expected healthy sink to receive the result, got %d writes", healthy.writes)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !failing.closed || !healthy.closed {
		t.Error("expected all sinks to be closed")
	}
}
