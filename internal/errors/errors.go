// internal/errors/errors.go - Typed verification failures
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/UIVerifier/pkg/types"
)

// VerificationError is the error type produced by every runner boundary.
// The class drives retryability, exit codes, and CLI rendering.
type VerificationError struct {
	Class   types.FailureClass
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *VerificationError) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Op
}

// Unwrap exposes the underlying cause
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(class types.FailureClass, op, message string) *VerificationError {
	return &VerificationError{Class: class, Op: op, Message: message}
}

// Wrap classifies an underlying error
func Wrap(class types.FailureClass, op string, err error) *VerificationError {
	return &VerificationError{Class: class, Op: op, Err: err}
}

// Wrapf classifies an underlying error with extra context
func Wrapf(class types.FailureClass, op string, err error, format string, args ...interface{}) *VerificationError {
	return &VerificationError{
		Class:   class,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// NewLaunchError reports a browser that could not be started
func NewLaunchError(err error) *VerificationError {
	return Wrap(types.FailureLaunch, "launch browser", err)
}

// NewNavigationError reports an unreachable or failed page load
func NewNavigationError(url string, err error) *VerificationError {
	return Wrapf(types.FailureNavigation, "navigate", err, "target %s", url)
}

// NewElementError reports a locator that matched nothing
func NewElementError(locator string, err error) *VerificationError {
	return Wrapf(types.FailureElement, "locate element", err, "locator %q", locator)
}

// NewWaitError reports expected content that never appeared
func NewWaitError(text string, err error) *VerificationError {
	return Wrapf(types.FailureWait, "wait for text", err, "expected %q", text)
}

// NewArtifactError reports a failed evidence write
func NewArtifactError(path string, err error) *VerificationError {
	return Wrapf(types.FailureArtifact, "write artifact", err, "path %s", path)
}

// NewConfigError reports an invalid scenario
func NewConfigError(message string, err error) *VerificationError {
	return &VerificationError{Class: types.FailureConfig, Op: "load scenario", Message: message, Err: err}
}

// NewReportError reports a failed result delivery
func NewReportError(sink string, err error) *VerificationError {
	return Wrapf(types.FailureReport, "deliver report", err, "sink %s", sink)
}

// ClassOf extracts the failure class from an error chain. Errors produced
// outside this package are classified heuristically from their text.
func ClassOf(err error) types.FailureClass {
	if err == nil {
		return types.FailureNone
	}

	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Class
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "executable file not found") ||
		strings.Contains(errStr, "chrome") && strings.Contains(errStr, "exec"):
		return types.FailureLaunch
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "net::err"):
		return types.FailureNavigation
	case strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "timeout"):
		return types.FailureWait
	case strings.Contains(errStr, "selector") ||
		strings.Contains(errStr, "could not find node"):
		return types.FailureElement
	case strings.Contains(errStr, "no such file or directory") ||
		strings.Contains(errStr, "permission denied"):
		return types.FailureArtifact
	case strings.Contains(errStr, "yaml") ||
		strings.Contains(errStr, "config"):
		return types.FailureConfig
	default:
		return types.FailureInternal
	}
}

// IsRetryable reports whether retrying the whole run could help
func IsRetryable(err error) bool {
	return ClassOf(err).IsRetryable()
}
