// Package utils provides common validation utilities and helpers
// for the UIVerifier tool.
package utils

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pre-compiled regex patterns for better performance
var (
	// Compound CSS selector: optional element, then any run of class/id/attr/pseudo parts,
	// joined by descendant or combinator separators.
	compoundSelectorPart = `(?:[a-zA-Z][a-zA-Z0-9-]*|\*)?` +
		`(?:\.[a-zA-Z_-][a-zA-Z0-9_-]*)*` +
		`(?:#[a-zA-Z_-][a-zA-Z0-9_-]*)?` +
		`(?:\[[^\]]+\])*` +
		`(?:\:[a-zA-Z-]+(?:\([^)]*\))?)*` +
		`(?:\:\:[a-zA-Z-]+)*`
	cssSelectorPattern = regexp.MustCompile(
		`^` + compoundSelectorPart + `(?:\s*[>+~ ]\s*` + compoundSelectorPart + `)*$`)

	javascriptProtocolPattern = regexp.MustCompile(`(?i)javascript:`)
	normalizeSpacePattern     = regexp.MustCompile(`\s+`)
)

// Validation constants for configurable limits
const (
	// MaxSelectorLength defines the maximum allowed length for CSS selectors
	MaxSelectorLength = 1000

	// MaxStepTextLength defines the maximum allowed length for text locators
	MaxStepTextLength = 500
)

// ValidationError represents a structured validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// ValidationResult represents the result of a validation operation
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, value, message, code string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

// AddWarning adds a non-fatal finding to the result
func (vr *ValidationResult) AddWarning(message string) {
	vr.Warnings = append(vr.Warnings, message)
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// FirstError returns the first validation error if any
func (vr *ValidationResult) FirstError() *ValidationError {
	if len(vr.Errors) > 0 {
		return &vr.Errors[0]
	}
	return nil
}

// ValidateTargetURL checks that a scenario target is an absolute http(s) URL.
func ValidateTargetURL(raw string) *ValidationError {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{
			Field:   "target_url",
			Value:   raw,
			Message: "URL is required",
			Code:    "REQUIRED",
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{
			Field:   "target_url",
			Value:   raw,
			Message: fmt.Sprintf("invalid URL: %v", err),
			Code:    "INVALID_URL",
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{
			Field:   "target_url",
			Value:   raw,
			Message: "URL scheme must be http or https",
			Code:    "INVALID_SCHEME",
		}
	}

	if parsed.Host == "" {
		return &ValidationError{
			Field:   "target_url",
			Value:   raw,
			Message: "URL must include a host",
			Code:    "MISSING_HOST",
		}
	}

	return nil
}

// ValidateSelector checks that a CSS selector is well formed and free of
// script injection vectors before it is handed to the browser.
func ValidateSelector(field, selector string) *ValidationError {
	if strings.TrimSpace(selector) == "" {
		return &ValidationError{
			Field:   field,
			Value:   selector,
			Message: "selector is required",
			Code:    "REQUIRED",
		}
	}

	if len(selector) > MaxSelectorLength {
		return &ValidationError{
			Field:   field,
			Value:   selector,
			Message: fmt.Sprintf("selector exceeds %d characters", MaxSelectorLength),
			Code:    "MAX_LENGTH",
		}
	}

	if javascriptProtocolPattern.MatchString(selector) {
		return &ValidationError{
			Field:   field,
			Value:   selector,
			Message: "selector must not contain javascript: URLs",
			Code:    "UNSAFE_SELECTOR",
		}
	}

	if !cssSelectorPattern.MatchString(selector) {
		return &ValidationError{
			Field:   field,
			Value:   selector,
			Message: "selector is not a valid CSS selector",
			Code:    "INVALID_SELECTOR",
		}
	}

	return nil
}

// ValidateStepText checks a visible-text locator (button captions, expected
// page text) for emptiness, length, and encoding problems.
func ValidateStepText(field, text string) *ValidationError {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{
			Field:   field,
			Value:   text,
			Message: "text is required",
			Code:    "REQUIRED",
		}
	}

	if !utf8.ValidString(text) {
		return &ValidationError{
			Field:   field,
			Value:   text,
			Message: "text is not valid UTF-8",
			Code:    "INVALID_ENCODING",
		}
	}

	if utf8.RuneCountInString(text) > MaxStepTextLength {
		return &ValidationError{
			Field:   field,
			Value:   text,
			Message: fmt.Sprintf("text exceeds %d characters", MaxStepTextLength),
			Code:    "MAX_LENGTH",
		}
	}

	return nil
}

// ValidateArtifactPath checks that an artifact destination looks writable:
// non-empty, no NUL bytes, and a known image/document extension.
func ValidateArtifactPath(field, path string) *ValidationError {
	if strings.TrimSpace(path) == "" {
		return &ValidationError{
			Field:   field,
			Value:   path,
			Message: "artifact path is required",
			Code:    "REQUIRED",
		}
	}

	if strings.ContainsRune(path, 0) {
		return &ValidationError{
			Field:   field,
			Value:   path,
			Message: "artifact path contains a NUL byte",
			Code:    "INVALID_PATH",
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".pdf":
		return nil
	default:
		return &ValidationError{
			Field:   field,
			Value:   path,
			Message: "artifact extension must be .png, .jpg, .jpeg, or .pdf",
			Code:    "INVALID_EXTENSION",
		}
	}
}

// NormalizeSpaces collapses runs of whitespace into single spaces and trims.
func NormalizeSpaces(s string) string {
	return normalizeSpacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}
