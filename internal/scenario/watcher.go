// internal/scenario/watcher.go
package scenario

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/valpere/UIVerifier/internal/utils"
)

// Watcher watches a scenario file for changes and reloads it
type Watcher struct {
	watcher      *fsnotify.Watcher
	scenarioPath string
	callbacks    []func(*Scenario)
	logger       utils.Logger
	mu           sync.RWMutex
	stopped      bool
}

// NewWatcher creates a new scenario file watcher
func NewWatcher(scenarioPath string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:      watcher,
		scenarioPath: scenarioPath,
		callbacks:    make([]func(*Scenario), 0),
		logger:       utils.NewComponentLogger("scenario.watcher"),
	}

	// Watch the scenario file
	if err := watcher.Add(scenarioPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch scenario file: %w", err)
	}

	// Watch the directory as well (for editors that create temp files)
	dir := filepath.Dir(scenarioPath)
	if err := watcher.Add(dir); err != nil {
		w.logger.Warnf("failed to watch scenario directory: %v", err)
	}

	// Start watching in a goroutine
	go w.watch()

	return w, nil
}

// OnChange registers a callback to be called when the scenario changes
func (w *Watcher) OnChange(callback func(*Scenario)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// watch handles file system events
func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Check if it's our scenario file and if it was modified
			if event.Name == w.scenarioPath && (event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
				w.handleChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("scenario watcher error: %v", err)
		}
	}
}

// handleChange processes scenario file changes
func (w *Watcher) handleChange() {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return
	}
	callbacks := make([]func(*Scenario), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	// Load the updated scenario
	sc, err := LoadFromFile(w.scenarioPath)
	if err != nil {
		w.logger.Errorf("failed to reload scenario: %v", err)
		return
	}

	w.logger.Infof("scenario %s reloaded", sc.Name)

	// Call all registered callbacks
	for _, callback := range callbacks {
		callback(sc)
	}
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	return w.watcher.Close()
}
