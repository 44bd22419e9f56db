// internal/report/yaml.go
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/valpere/UIVerifier/pkg/types"
)

// YAMLWriter collects run results and writes them as one YAML document
// when closed. An empty path targets stdout.
type YAMLWriter struct {
	path    string
	results []*types.RunResult
	mu      sync.Mutex
	closed  bool
}

// NewYAMLWriter creates a YAML report writer
func NewYAMLWriter(path string) *YAMLWriter {
	return &YAMLWriter{path: path}
}

// Write buffers one run result
func (w *YAMLWriter) Write(ctx context.Context, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("yaml writer is closed")
	}

	w.results = append(w.results, result)
	return nil
}

// Close writes the collected results and releases the writer
func (w *YAMLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	data, err := yaml.Marshal(w.results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

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
