// internal/report/json.go
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valpere/UIVerifier/pkg/types"
)

// JSONWriter collects run results and writes them as one JSON array when
// closed. An empty path targets stdout.
type JSONWriter struct {
	path    string
	results []*types.RunResult
	mu      sync.Mutex
	closed  bool
}

// NewJSONWriter creates a JSON report writer
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Write buffers one run result
func (w *JSONWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("json writer is closed")
	}

	w.results = append(w.results, result)
	return nil
}

// Close writes the collected results and releases the writer
func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	data, err := json.MarshalIndent(w.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	data = append(data, '\n')

	if w.path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(w.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
