// internal/scenario/validation.go - Scenario validation with detailed findings
package scenario

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/types"
)

// Validate checks the scenario and returns a combined error describing
// every problem found
func (s *Scenario) Validate() error {
	result := s.ValidateWithDetails()
	if result.HasErrors() {
		return s.formatValidationError(result)
	}
	return nil
}

// ValidateWithDetails provides detailed validation results
func (s *Scenario) ValidateWithDetails() *utils.ValidationResult {
	result := &utils.ValidationResult{Valid: true}

	s.validateBasicFields(result)
	s.validateTarget(result)
	s.validateSteps(result)
	s.validateBrowser(result)
	s.validateArtifacts(result)
	s.validateReports(result)
	s.validateMonitoring(result)
	s.validateExecution(result)

	result.Valid = !result.HasErrors()
	return result
}

// validateBasicFields checks required top-level fields
func (s *Scenario) validateBasicFields(result *utils.ValidationResult) {
	if s.Name == "" {
		result.AddError("name", "", "scenario name is required", "REQUIRED")
	}

	if s.LogLevel != "" && !types.LogLevel(s.LogLevel).IsValid() {
		result.AddError("log_level", s.LogLevel,
			"log level must be one of debug, info, warn, error", "INVALID_VALUE")
	}
}

// validateTarget checks the target URL
func (s *Scenario) validateTarget(result *utils.ValidationResult) {
	if ve := utils.ValidateTargetURL(s.TargetURL); ve != nil {
		result.AddError("target_url", ve.Value, ve.Message, ve.Code)
		return
	}

	// Plain HTTP is normal against local dev servers but worth flagging
	// for anything remote
	parsed, err := url.Parse(s.TargetURL)
	if err == nil && parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			result.AddWarning("target uses HTTP against a non-local host; verification traffic will be unencrypted")
		}
	}
}

// validateSteps checks each step against the requirements of its type
func (s *Scenario) validateSteps(result *utils.ValidationResult) {
	if len(s.Steps) == 0 {
		result.AddError("steps", "[]", "at least one step must be configured", "REQUIRED")
		return
	}

	for i, step := range s.Steps {
		prefix := fmt.Sprintf("steps[%d]", i)

		if !step.Type.IsValid() {
			result.AddError(prefix+".type", string(step.Type),
				fmt.Sprintf("unknown step type; valid types: %s", joinStepTypes()), "INVALID_TYPE")
			continue
		}

		switch step.Type {
		case types.StepNavigate:
			if step.URL != "" {
				if ve := utils.ValidateTargetURL(step.URL); ve != nil {
					result.AddError(prefix+".url", ve.Value, ve.Message, ve.Code)
				}
			}

		case types.StepClickText, types.StepWaitText:
			if ve := utils.ValidateStepText(prefix+".text", step.Text); ve != nil {
				result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
			}

		case types.StepClick, types.StepWaitElement:
			if ve := utils.ValidateSelector(prefix+".selector", step.Selector); ve != nil {
				result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
			}

		case types.StepAssertText:
			if ve := utils.ValidateStepText(prefix+".text", step.Text); ve != nil {
				result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
			}
			if step.Selector != "" {
				if ve := utils.ValidateSelector(prefix+".selector", step.Selector); ve != nil {
					result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
				}
			}

		case types.StepAssertElement:
			if ve := utils.ValidateSelector(prefix+".selector", step.Selector); ve != nil {
				result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
			}
			if step.Count < 0 {
				result.AddError(prefix+".count", fmt.Sprintf("%d", step.Count),
					"expected match count cannot be negative", "INVALID_VALUE")
			}

		case types.StepScreenshot:
			if ve := utils.ValidateArtifactPath(prefix+".path", step.Path); ve != nil {
				result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
			} else if strings.EqualFold(filepath.Ext(step.Path), ".pdf") {
				result.AddError(prefix+".path", step.Path,
					"screenshot steps write images, not PDFs", "INVALID_EXTENSION")
			}

		case types.StepPDF:
			if ve := utils.ValidateArtifactPath(prefix+".path", step.Path); ve != nil {
				result.AddError(ve.Field, ve.Value, ve.Message, ve.Code)
			} else if !strings.EqualFold(filepath.Ext(step.Path), ".pdf") {
				result.AddError(prefix+".path", step.Path,
					"pdf steps require a .pdf destination", "INVALID_EXTENSION")
			}

		case types.StepEval:
			if strings.TrimSpace(step.Script) == "" {
				result.AddError(prefix+".script", "", "eval steps require a script", "REQUIRED")
			}

		case types.StepSleep:
			if step.Duration <= 0 {
				result.AddError(prefix+".duration", step.Duration.String(),
					"sleep steps require a positive duration", "INVALID_VALUE")
			}
		}
	}
}

// validateBrowser checks browser settings
func (s *Scenario) validateBrowser(result *utils.ValidationResult) {
	if s.Browser == nil {
		return
	}

	if s.Browser.ViewportWidth < 0 || s.Browser.ViewportHeight < 0 {
		result.AddError("browser.viewport",
			fmt.Sprintf("%dx%d", s.Browser.ViewportWidth, s.Browser.ViewportHeight),
			"viewport dimensions cannot be negative", "INVALID_VALUE")
	}

	if s.Browser.Timeout < 0 {
		result.AddError("browser.timeout", s.Browser.Timeout.String(),
			"timeout cannot be negative", "INVALID_VALUE")
	} else if s.Browser.Timeout.ToDuration() > 60*time.Second {
		result.AddWarning("browser timeout above 60 seconds may stall failing runs for a long time")
	}

	if s.Browser.ProxyURL != "" {
		if _, err := url.Parse(s.Browser.ProxyURL); err != nil {
			result.AddError("browser.proxy_url", s.Browser.ProxyURL,
				fmt.Sprintf("invalid proxy URL: %v", err), "INVALID_URL")
		}
	}
}

// validateArtifacts checks artifact settings
func (s *Scenario) validateArtifacts(result *utils.ValidationResult) {
	if s.Artifacts == nil || s.Artifacts.Dir == "" {
		return
	}

	if strings.ContainsRune(s.Artifacts.Dir, 0) {
		result.AddError("artifacts.dir", s.Artifacts.Dir,
			"artifact directory contains a NUL byte", "INVALID_PATH")
	}
}

// validateReports checks each configured sink
func (s *Scenario) validateReports(result *utils.ValidationResult) {
	for i, report := range s.Reports {
		prefix := fmt.Sprintf("reports[%d]", i)
		format := types.ReportFormat(report.Format)

		if !format.IsValid() {
			result.AddError(prefix+".format", report.Format,
				fmt.Sprintf("unknown report format; valid formats: %s", joinReportFormats()), "INVALID_FORMAT")
			continue
		}

		switch format {
		case types.ReportJSON, types.ReportYAML:
			if report.Path == "" {
				result.AddWarning(fmt.Sprintf("%s has no path; results will be written to stdout", prefix))
			}

		case types.ReportCSV, types.ReportExcel, types.ReportSQLite:
			if report.Path == "" {
				result.AddError(prefix+".path", "",
					fmt.Sprintf("%s reports require an output path", format), "REQUIRED")
			}

		case types.ReportPostgres, types.ReportMySQL:
			if report.DSN == "" {
				result.AddError(prefix+".dsn", "",
					fmt.Sprintf("%s reports require a connection string", format), "REQUIRED")
			}

		case types.ReportMongoDB:
			if report.DSN == "" {
				result.AddError(prefix+".dsn", "", "mongodb reports require a connection URI", "REQUIRED")
			}
			if report.Database == "" {
				result.AddError(prefix+".database", "", "mongodb reports require a database name", "REQUIRED")
			}

		case types.ReportWebhook:
			if report.URL == "" {
				result.AddError(prefix+".url", "", "webhook reports require a collector URL", "REQUIRED")
			} else if ve := utils.ValidateTargetURL(report.URL); ve != nil {
				result.AddError(prefix+".url", ve.Value, ve.Message, ve.Code)
			}
		}
	}
}

// validateMonitoring checks the metrics server settings
func (s *Scenario) validateMonitoring(result *utils.ValidationResult) {
	if s.Monitoring == nil || !s.Monitoring.Enabled {
		return
	}

	addr := s.Monitoring.ListenAddress
	if addr == "" {
		result.AddError("monitoring.listen_address", "",
			"monitoring requires a listen address", "REQUIRED")
		return
	}

	if _, _, err := net.SplitHostPort(addr); err != nil {
		result.AddError("monitoring.listen_address", addr,
			fmt.Sprintf("invalid listen address: %v", err), "INVALID_ADDRESS")
	}
}

// validateExecution checks repeat and retry settings
func (s *Scenario) validateExecution(result *utils.ValidationResult) {
	if s.Repeat != nil {
		if s.Repeat.Count < 0 {
			result.AddError("repeat.count", fmt.Sprintf("%d", s.Repeat.Count),
				"repeat count cannot be negative", "INVALID_VALUE")
		}
		if s.Repeat.Interval < 0 {
			result.AddError("repeat.interval", s.Repeat.Interval.String(),
				"repeat interval cannot be negative", "INVALID_VALUE")
		}
	}

	if s.Retry != nil {
		if s.Retry.MaxAttempts < 0 {
			result.AddError("retry.max_attempts", fmt.Sprintf("%d", s.Retry.MaxAttempts),
				"retry attempts cannot be negative", "INVALID_VALUE")
		}
		if s.Retry.BaseDelay < 0 {
			result.AddError("retry.base_delay", s.Retry.BaseDelay.String(),
				"retry delay cannot be negative", "INVALID_VALUE")
		}
		if s.Retry.BackoffFactor != 0 && s.Retry.BackoffFactor < 1 {
			result.AddError("retry.backoff_factor", fmt.Sprintf("%g", s.Retry.BackoffFactor),
				"backoff factor must be at least 1", "INVALID_VALUE")
		}
	}
}

// formatValidationError creates a comprehensive error message
func (s *Scenario) formatValidationError(result *utils.ValidationResult) error {
	var errorMsg strings.Builder

	errorMsg.WriteString("Scenario validation failed:\n")

	for i, err := range result.Errors {
		errorMsg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			errorMsg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			errorMsg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		errorMsg.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		errorMsg.WriteString("\nWarnings:\n")
		for i, warning := range result.Warnings {
			errorMsg.WriteString(fmt.Sprintf("  %d. %s\n", i+1, warning))
		}
	}

	return fmt.Errorf("%s", errorMsg.String())
}

// GetValidationSuggestions provides actionable suggestions for fixing
// validation errors
func (s *Scenario) GetValidationSuggestions(result *utils.ValidationResult) []string {
	suggestions := make([]string, 0)

	hasURLError := false
	hasSelectorError := false
	hasTextError := false
	hasStepError := false

	for _, err := range result.Errors {
		if strings.Contains(err.Field, "url") {
			hasURLError = true
		}
		if strings.Contains(err.Field, "selector") {
			hasSelectorError = true
		}
		if strings.Contains(err.Field, "text") {
			hasTextError = true
		}
		if strings.Contains(err.Field, "steps") {
			hasStepError = true
		}
	}

	if hasURLError {
		suggestions = append(suggestions,
			"Ensure URLs include protocol (http:// or https://)",
			"Verify the application under test is running and reachable")
	}

	if hasSelectorError {
		suggestions = append(suggestions,
			"Test CSS selectors using browser developer tools",
			"Start with simple selectors and make them more specific as needed")
	}

	if hasTextError {
		suggestions = append(suggestions,
			"Copy the exact visible text from the page, including punctuation",
			"Use match.case_insensitive when the page styles text with CSS text-transform")
	}

	if hasStepError && !hasURLError && !hasSelectorError && !hasTextError {
		suggestions = append(suggestions,
			"Check that every step has the fields its type requires",
			"Run 'uiverifier template' to see a complete example scenario")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions,
			"Review the scenario file for syntax errors",
			"Check YAML indentation and formatting",
			"Ensure all required fields are present")
	}

	return suggestions
}

// joinStepTypes lists valid step types for error messages
func joinStepTypes() string {
	valid := types.ValidStepTypes()
	names := make([]string, len(valid))
	for i, st := range valid {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

// joinReportFormats lists valid report formats for error messages
func joinReportFormats() string {
	valid := types.ValidReportFormats()
	names := make([]string, len(valid))
	for i, rf := range valid {
		names[i] = string(rf)
	}
	return strings.Join(names, ", ")
}
