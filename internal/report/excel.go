// internal/report/excel.go
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/UIVerifier/pkg/types"
)

const (
	runsSheet  = "Runs"
	stepsSheet = "Steps"
)

// ExcelWriter writes run results to a workbook with a run summary sheet
// and a per-step detail sheet.
type ExcelWriter struct {
	path    string
	file    *excelize.File
	runRow  int
	stepRow int
	mu      sync.Mutex
	closed  bool
}

// NewExcelWriter creates an Excel report writer
func NewExcelWriter(path string) (*ExcelWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("excel reports require an output path")
	}

	file := excelize.NewFile()
	file.SetSheetName(file.GetSheetName(0), runsSheet)
	if _, err := file.NewSheet(stepsSheet); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create steps sheet: %w", err)
	}

	w := &ExcelWriter{
		path:    path,
		file:    file,
		runRow:  2,
		stepRow: 2,
	}

	if err := w.writeHeaders(); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// writeHeaders writes styled header rows to both sheets
func (w *ExcelWriter) writeHeaders() error {
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name    string
		columns []string
	}{
		{runsSheet, runColumns},
		{stepsSheet, stepColumns},
	}

	for _, sheet := range sheets {
		for i, column := range sheet.columns {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return fmt.Errorf("failed to address header cell: %w", err)
			}
			if err := w.file.SetCellValue(sheet.name, cell, column); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}
			if err := w.file.SetCellStyle(sheet.name, cell, cell, style); err != nil {
				return fmt.Errorf("failed to style header: %w", err)
			}
		}
	}

	// Widen the identifier and error columns for readability
	if err := w.file.SetColWidth(runsSheet, "A", "C", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := w.file.SetColWidth(runsSheet, "L", "L", 48); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	return nil
}

// Write appends one run to the workbook
func (w *ExcelWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("excel writer is closed")
	}

	if err := w.writeRow(runsSheet, w.runRow, runValues(result)); err != nil {
		return err
	}
	w.runRow++

	for _, step := range result.Steps {
		if err := w.writeRow(stepsSheet, w.stepRow, stepValues(result.ID, step)); err != nil {
			return err
		}
		w.stepRow++
	}

	return nil
}

// writeRow writes one row of values starting at column A
func (w *ExcelWriter) writeRow(sheet string, row int, values []interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}

		// excelize renders time.Time through Excel date formatting, which
		// hides sub-second precision; store RFC3339 text instead
		if t, ok := value.(time.Time); ok {
			value = t.Format(time.RFC3339)
		}

		if err := w.file.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}

// Close saves the workbook
func (w *ExcelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			w.file.Close()
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := w.file.SaveAs(w.path); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return w.file.Close()
}
