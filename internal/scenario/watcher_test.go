// internal/scenario/watcher_test.go
package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scenario.yaml")

	initial := `name: watched
target_url: http://localhost:5173
steps:
  - type: navigate
`
	if err := os.WriteFile(file, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write scenario file: %v", err)
	}

	w, err := NewWatcher(file)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Close()

	reloaded := make(chan *Scenario, 1)
	w.OnChange(func(sc *Scenario) {
		select {
		case reloaded <- sc:
		default:
		}
	})

	// let the watch goroutine start before the write lands
	time.Sleep(50 * time.Millisecond)

	updated := `name: watched-updated
target_url: http://localhost:5173
steps:
  - type: navigate
  - type: wait_text
    text: "Ready"
`
	if err := os.WriteFile(file, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to update scenario file: %v", err)
	}

	select {
	case sc := <-reloaded:
		if sc.Name != "watched-updated" {
			t.Errorf("expected reloaded scenario name watched-updated, got %q", sc.Name)
		}
		if len(sc.Steps) != 2 {
			t.Errorf("expected 2 steps after reload, got %d", len(sc.Steps))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver the reloaded scenario")
	}
}

func TestWatcherSkipsInvalidUpdate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scenario.yaml")

	initial := `name: watched
target_url: http://localhost:5173
steps:
  - type: navigate
`
	if err := os.WriteFile(file, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write scenario file: %v", err)
	}

	w, err := NewWatcher(file)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Close()

	reloaded := make(chan *Scenario, 2)
	w.OnChange(func(sc *Scenario) {
		reloaded <- sc
	})

	time.Sleep(50 * time.Millisecond)

	// A scenario without steps fails validation and must not reach callbacks.
	invalid := `name: broken
target_url: http://localhost:5173
steps: []
`
	if err := os.WriteFile(file, []byte(invalid), 0644); err != nil {
		t.Fatalf("failed to write invalid update: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	valid := `name: recovered
target_url: http://localhost:5173
steps:
  - type: navigate
`
	if err := os.WriteFile(file, []byte(valid), 0644); err != nil {
		t.Fatalf("failed to write valid update: %v", err)
	}

	select {
	case sc := <-reloaded:
		if sc.Name != "recovered" {
			t.Errorf("expected only the valid update to be delivered, got %q", sc.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver the recovered scenario")
	}
}

func TestWatcherRequiresExistingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing scenario file")
	}
}
