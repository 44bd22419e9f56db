// internal/errors/service.go - Error recovery and CLI rendering service
package errors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/UIVerifier/pkg/types"
)

// Service provides retry execution, circuit breaking, and user-facing
// error rendering for verification runs.
type Service struct {
	retryConfig     RetryConfig
	messageHandler  *MessageHandler
	circuitBreakers map[string]*CircuitBreaker
	mu              sync.RWMutex
}

// RetryConfig defines run-level retry behavior. Verification defaults to a
// single attempt; scenarios promoted to CI gates raise MaxRetries.
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker stops repeat-mode runs from hammering a target that keeps
// failing. Keyed by normalized target URL.
type CircuitBreaker struct {
	name            string
	maxFailures     int
	resetTimeout    time.Duration
	state           CircuitBreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	mu              sync.RWMutex
}

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// NewService creates a new error service with fail-fast defaults
func NewService() *Service {
	return &Service{
		retryConfig: RetryConfig{
			MaxRetries:    0,
			BaseDelay:     time.Second * 2,
			BackoffFactor: 2.0,
			MaxDelay:      time.Minute,
		},
		messageHandler:  &MessageHandler{showTechnical: false},
		circuitBreakers: make(map[string]*CircuitBreaker),
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// WithRetryConfig overrides the retry policy
func (s *Service) WithRetryConfig(cfg RetryConfig) *Service {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second * 2
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Minute
	}
	s.retryConfig = cfg
	return s
}

// RetryConfig returns the active retry policy
func (s *Service) RetryConfig() RetryConfig {
	return s.retryConfig
}

// ExecuteWithRetry runs an operation, retrying retryable failures per the
// configured policy. An error from a single attempt propagates unwrapped;
// once retries actually run, the final error carries the attempt count.
func (s *Service) ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		attempts++
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !s.shouldRetry(err, attempt) {
			break
		}

		delay := s.calculateDelay(attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			continue
		}
	}

	if attempts <= 1 {
		return lastErr
	}
	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// getOrCreateCircuitBreaker gets or creates a circuit breaker for a target
func (s *Service) getOrCreateCircuitBreaker(target string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, exists := s.circuitBreakers[target]; exists {
		return cb
	}

	cb := &CircuitBreaker{
		name:         target,
		maxFailures:  5,
		resetTimeout: 60 * time.Second,
		state:        CircuitClosed,
	}

	s.circuitBreakers[target] = cb
	return cb
}

// BreakerFor returns the circuit breaker guarding a target URL
func (s *Service) BreakerFor(target string) *CircuitBreaker {
	return s.getOrCreateCircuitBreaker(target)
}

// ConfigureCircuitBreaker configures the breaker for a specific target
func (s *Service) ConfigureCircuitBreaker(target string, config CircuitBreakerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb := &CircuitBreaker{
		name:         target,
		maxFailures:  config.MaxFailures,
		resetTimeout: config.ResetTimeout,
		state:        CircuitClosed,
	}

	s.circuitBreakers[target] = cb
}

// shouldRetry determines if the error is retryable at this attempt
func (s *Service) shouldRetry(err error, attempt int) bool {
	if attempt >= s.retryConfig.MaxRetries {
		return false
	}
	return IsRetryable(err)
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(s.retryConfig.BaseDelay) * pow(s.retryConfig.BackoffFactor, float64(attempt)))
	if delay > s.retryConfig.MaxDelay {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

// GetUserFriendlyError converts a classified error to a title, message, and
// suggestions suitable for terminal display
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	switch ClassOf(err) {
	case types.FailureLaunch:
		return "Browser Launch Failed",
			"The Chrome/Chromium process could not be started.",
			[]string{
				"Check that Chrome or Chromium is installed and on PATH",
				"Set browser.chrome_path in the scenario to the executable",
				"On minimal containers, install the headless Chromium package",
			}
	case types.FailureNavigation:
		return "Target Unreachable",
			"The page under verification could not be loaded.",
			[]string{
				"Make sure the application is running (default target is http://localhost:5173)",
				"Open the URL in a browser to confirm it responds",
				"Increase browser.timeout if the dev server is slow to start",
			}
	case types.FailureElement:
		return "Element Not Found",
			"The element the scenario interacts with was not found on the page.",
			[]string{
				"Verify the button text or selector matches the rendered UI",
				"The application markup may have changed since the scenario was written",
				"Run with -v to log the page state at failure",
			}
	case types.FailureWait:
		return "Expected Content Never Appeared",
			"The text the scenario waits for did not appear before the timeout.",
			[]string{
				"Confirm the flow works manually in a browser",
				"Increase browser.timeout for slow backends",
				"Check the expected text for typos (matching is whitespace-normalized)",
			}
	case types.FailureAssert:
		return "Assertion Failed",
			"The page content did not match what the scenario asserts.",
			[]string{
				"Inspect the page manually to see what actually rendered",
				"Check the asserted text, selector, or expected element count",
				"Capture a screenshot step before the assertion to see the page state",
			}
	case types.FailureArtifact:
		return "Artifact Write Failed",
			"The screenshot/PDF evidence could not be written to disk.",
			[]string{
				"Create the output directory before running, or set artifacts.create_dirs: true",
				"Check filesystem permissions on the output path",
			}
	case types.FailureConfig:
		return "Configuration Error",
			"The scenario file is invalid.",
			[]string{
				"Run 'uiverifier validate <file>' to see all findings",
				"Check YAML indentation (use spaces, not tabs)",
				"Compare against 'uiverifier template' output",
			}
	case types.FailureReport:
		return "Report Delivery Failed",
			"The run finished but its results could not be delivered to a sink.",
			[]string{
				"Check the sink connection string and credentials",
				"Verify the database or endpoint is reachable",
			}
	default:
		return "Unexpected Error",
			"An unexpected error occurred during the verification run.",
			[]string{
				"Try running the command again",
				"Run with -v for technical details",
			}
	}
}

// GetExitCode returns the exit code for an error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ClassOf(err) {
	case types.FailureConfig:
		return 2
	case types.FailureLaunch:
		return 3
	case types.FailureNavigation:
		return 4
	case types.FailureElement, types.FailureAssert:
		return 5
	case types.FailureWait:
		return 6
	case types.FailureArtifact:
		return 7
	case types.FailureReport:
		return 8
	default:
		return 1
	}
}

// FormatErrorForCLI formats an error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	output := fmt.Sprintf("❌ %s\n%s\n", title, message)

	if s.messageHandler.showTechnical {
		output += fmt.Sprintf("\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		output += "\n💡 Suggestions:\n"
		for _, suggestion := range suggestions {
			output += fmt.Sprintf("  • %s\n", suggestion)
		}
	}

	return output
}

// Helper function for power calculation
func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}

// CircuitBreaker methods

// CanExecute checks if the circuit breaker allows execution
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records successful execution
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records failed execution
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
		cb.nextAttemptTime = time.Now().Add(cb.resetTimeout)
	}
}

// GetState returns the current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return map[string]interface{}{
		"name":              cb.name,
		"state":             cb.state,
		"failures":          cb.failures,
		"max_failures":      cb.maxFailures,
		"last_failure_time": cb.lastFailureTime,
		"next_attempt_time": cb.nextAttemptTime,
		"reset_timeout":     cb.resetTimeout,
	}
}

// GetCircuitBreakerStats returns statistics for all circuit breakers
func (s *Service) GetCircuitBreakerStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	for name, cb := range s.circuitBreakers {
		stats[name] = cb.GetStats()
	}
	return stats
}

// ResetCircuitBreaker manually resets a circuit breaker
func (s *Service) ResetCircuitBreaker(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, exists := s.circuitBreakers[target]
	if !exists {
		return fmt.Errorf("circuit breaker not found for target: %s", target)
	}

	cb.mu.Lock()
	cb.failures = 0
	cb.state = CircuitClosed
	cb.mu.Unlock()

	return nil
}
