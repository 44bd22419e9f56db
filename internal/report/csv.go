// internal/report/csv.go
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valpere/UIVerifier/pkg/types"
)

// CSVWriter appends one row per step to a CSV file, writing the header
// first on a fresh file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a CSV report writer
func NewCSVWriter(path string) (*CSVWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("csv reports require an output path")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	info, err := os.Stat(path)
	fresh := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}

	w := &CSVWriter{
		file:   file,
		writer: csv.NewWriter(file),
	}

	if fresh {
		if err := w.writer.Write(csvHeader()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
	}

	return w, nil
}

// Write appends one row per step of the run
func (w *CSVWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("csv writer is closed")
	}

	for _, record := range csvRecords(result) {
		if err := w.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the file
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	w.writer.Flush()
	flushErr := w.writer.Error()

	err := w.file.Close()
	w.file = nil

	if flushErr != nil {
		return flushErr
	}
	return err
}
