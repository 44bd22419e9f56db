// pkg/types/result.go
package types

import (
	"fmt"
	"time"
)

// StepResult captures the outcome of a single executed scenario step
type StepResult struct {
	Index     int           `json:"index" yaml:"index"`
	Name      string        `json:"name" yaml:"name"`
	Type      StepType      `json:"type" yaml:"type"`
	Status    StepStatus    `json:"status" yaml:"status"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Detail    string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunResult captures the outcome of one full verification run
type RunResult struct {
	ID           string        `json:"id" yaml:"id"`
	Scenario     string        `json:"scenario" yaml:"scenario"`
	TargetURL    string        `json:"target_url" yaml:"target_url"`
	Status       RunStatus     `json:"status" yaml:"status"`
	FailureClass FailureClass  `json:"failure_class,omitempty" yaml:"failure_class,omitempty"`
	Steps        []StepResult  `json:"steps" yaml:"steps"`
	Artifacts    []string      `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Attempt      int           `json:"attempt,omitempty" yaml:"attempt,omitempty"`
}

// NewRunID generates a unique run identifier
func NewRunID() string {
	return fmt.Sprintf("run_%d", time.Now().UnixNano())
}

// Passed reports whether the run completed with every step passing
func (r *RunResult) Passed() bool {
	return r.Status == RunPassed
}

// FirstError returns the error of the first failed step, or the run error
func (r *RunResult) FirstError() string {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != "" {
			return step.Error
		}
	}
	return r.Error
}

// StepCount returns how many steps reached each terminal status
func (r *RunResult) StepCount() (passed, failed, skipped int) {
	for _, step := range r.Steps {
		switch step.Status {
		case StepPassed:
			passed++
		case StepFailed:
			failed++
		case StepSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Summary returns a one-line human-readable description of the run
func (r *RunResult) Summary() string {
	passed, failed, skipped := r.StepCount()
	if r.Passed() {
		return fmt.Sprintf("%s: %s (%d steps, %s)",
			r.Scenario, r.Status, passed, r.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: %s at step %d/%d (%d passed, %d failed, %d skipped): %s",
		r.Scenario, r.Status, passed+failed, len(r.Steps),
		passed, failed, skipped, r.FirstError())
}
