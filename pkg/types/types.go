// pkg/types/types.go
package types

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// RunStatus represents the current state of a verification run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunPassed    RunStatus = "passed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ValidRunStatuses returns all valid run status values
func ValidRunStatuses() []RunStatus {
	return []RunStatus{
		RunPending, RunRunning, RunPassed,
		RunFailed, RunCancelled,
	}
}

// IsValid checks if the status is a valid value
func (s RunStatus) IsValid() bool {
	for _, valid := range ValidRunStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunPassed, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the run status
func (s RunStatus) String() string {
	return string(s)
}

// StepStatus represents the outcome of a single scenario step
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// ValidStepStatuses returns all valid step status values
func ValidStepStatuses() []StepStatus {
	return []StepStatus{StepPassed, StepFailed, StepSkipped}
}

// IsValid checks if the step status is valid
func (s StepStatus) IsValid() bool {
	for _, valid := range ValidStepStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the step status
func (s StepStatus) String() string {
	return string(s)
}

// StepType represents the kind of action a scenario step performs
type StepType string

const (
	StepNavigate      StepType = "navigate"
	StepClickText     StepType = "click_text"
	StepClick         StepType = "click"
	StepWaitText      StepType = "wait_text"
	StepWaitElement   StepType = "wait_element"
	StepAssertText    StepType = "assert_text"
	StepAssertElement StepType = "assert_element"
	StepScreenshot    StepType = "screenshot"
	StepPDF           StepType = "pdf"
	StepEval          StepType = "eval"
	StepSleep         StepType = "sleep"
)

// ValidStepTypes returns all valid step type values
func ValidStepTypes() []StepType {
	return []StepType{
		StepNavigate, StepClickText, StepClick,
		StepWaitText, StepWaitElement,
		StepAssertText, StepAssertElement,
		StepScreenshot, StepPDF, StepEval, StepSleep,
	}
}

// IsValid checks if the step type is valid
func (st StepType) IsValid() bool {
	for _, valid := range ValidStepTypes() {
		if st == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the step type
func (st StepType) String() string {
	return string(st)
}

// RequiresBrowser reports whether executing the step needs a live browser session
func (st StepType) RequiresBrowser() bool {
	return st != StepSleep
}

// FailureClass categorizes why a verification run failed
type FailureClass string

const (
	FailureNone       FailureClass = ""
	FailureConfig     FailureClass = "config"
	FailureLaunch     FailureClass = "launch"
	FailureNavigation FailureClass = "navigation"
	FailureElement    FailureClass = "element_not_found"
	FailureWait       FailureClass = "wait_timeout"
	FailureAssert     FailureClass = "assertion"
	FailureArtifact   FailureClass = "artifact"
	FailureReport     FailureClass = "report"
	FailureInternal   FailureClass = "internal"
)

// ValidFailureClasses returns all valid failure class values
func ValidFailureClasses() []FailureClass {
	return []FailureClass{
		FailureConfig, FailureLaunch, FailureNavigation,
		FailureElement, FailureWait, FailureAssert,
		FailureArtifact, FailureReport, FailureInternal,
	}
}

// IsValid checks if the failure class is valid
func (fc FailureClass) IsValid() bool {
	for _, valid := range ValidFailureClasses() {
		if fc == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the failure class
func (fc FailureClass) String() string {
	return string(fc)
}

// IsRetryable returns true if the failure class typically supports retry
func (fc FailureClass) IsRetryable() bool {
	switch fc {
	case FailureNavigation, FailureWait:
		return true
	default:
		return false
	}
}

// GetDescription returns a human-readable description of the failure class
func (fc FailureClass) GetDescription() string {
	switch fc {
	case FailureConfig:
		return "Scenario configuration is invalid"
	case FailureLaunch:
		return "Browser process could not be started"
	case FailureNavigation:
		return "Target page could not be reached"
	case FailureElement:
		return "Expected element was not found on the page"
	case FailureWait:
		return "Expected content did not appear before the timeout"
	case FailureAssert:
		return "Page content did not match the assertion"
	case FailureArtifact:
		return "Evidence artifact could not be written"
	case FailureReport:
		return "Run results could not be delivered to a report sink"
	case FailureInternal:
		return "Internal error"
	default:
		return "Unknown failure"
	}
}

// ReportFormat represents supported report sink formats
type ReportFormat string

const (
	ReportJSON     ReportFormat = "json"
	ReportYAML     ReportFormat = "yaml"
	ReportCSV      ReportFormat = "csv"
	ReportExcel    ReportFormat = "excel"
	ReportSQLite   ReportFormat = "sqlite"
	ReportPostgres ReportFormat = "postgres"
	ReportMySQL    ReportFormat = "mysql"
	ReportMongoDB  ReportFormat = "mongodb"
	ReportWebhook  ReportFormat = "webhook"
)

// ValidReportFormats returns all valid report format values
func ValidReportFormats() []ReportFormat {
	return []ReportFormat{
		ReportJSON, ReportYAML, ReportCSV, ReportExcel,
		ReportSQLite, ReportPostgres, ReportMySQL,
		ReportMongoDB, ReportWebhook,
	}
}

// IsValid checks if the report format is valid
func (rf ReportFormat) IsValid() bool {
	for _, valid := range ValidReportFormats() {
		if rf == valid {
			return true
		}
	}
	return false
}

// GetFileExtension returns the appropriate file extension for file-backed formats
func (rf ReportFormat) GetFileExtension() string {
	switch rf {
	case ReportJSON:
		return ".json"
	case ReportYAML:
		return ".yaml"
	case ReportCSV:
		return ".csv"
	case ReportExcel:
		return ".xlsx"
	case ReportSQLite:
		return ".db"
	default:
		return ""
	}
}

// String returns the string representation of the report format
func (rf ReportFormat) String() string {
	return string(rf)
}

// LogLevel represents different logging levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ValidLogLevels returns all valid log level values
func ValidLogLevels() []LogLevel {
	return []LogLevel{
		LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError,
	}
}

// IsValid checks if the log level is valid
func (ll LogLevel) IsValid() bool {
	for _, valid := range ValidLogLevels() {
		if ll == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the log level
func (ll LogLevel) String() string {
	return string(ll)
}

// GetNumericLevel returns the numeric level for comparison
func (ll LogLevel) GetNumericLevel() int {
	switch ll {
	case LogLevelDebug:
		return 0
	case LogLevelInfo:
		return 1
	case LogLevelWarn:
		return 2
	case LogLevelError:
		return 3
	default:
		return -1
	}
}

// Duration represents a time duration with JSON marshaling support
type Duration time.Duration

// MarshalJSON implements json.Marshaler interface
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration format: %s", s)
	}

	*d = Duration(duration)
	return nil
}

// MarshalYAML implements yaml.Marshaler interface
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler interface
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration format: %s", s)
	}

	*d = Duration(duration)
	return nil
}

// String returns the string representation of the duration
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ToDuration converts to standard time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// NewDuration creates a Duration from time.Duration
func NewDuration(td time.Duration) Duration {
	return Duration(td)
}

// URL represents a URL with validation and JSON marshaling support
type URL struct {
	*url.URL
}

// MarshalJSON implements json.Marshaler interface
func (u URL) MarshalJSON() ([]byte, error) {
	if u.URL == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(u.URL.String())
}

// UnmarshalJSON implements json.Unmarshaler interface
func (u *URL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		u.URL = nil
		return nil
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL format: %s", s)
	}

	u.URL = parsed
	return nil
}

// String returns the string representation of the URL
func (u URL) String() string {
	if u.URL == nil {
		return ""
	}
	return u.URL.String()
}

// IsValid checks if the URL is valid and has required components
func (u URL) IsValid() bool {
	if u.URL == nil {
		return false
	}
	return u.URL.Scheme != "" && u.URL.Host != ""
}

// NewURL creates a new URL from string
func NewURL(s string) (*URL, error) {
	if s == "" {
		return &URL{}, nil
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %s", s)
	}

	return &URL{URL: parsed}, nil
}

// MustNewURL creates a new URL from string, panicking on error
func MustNewURL(s string) *URL {
	u, err := NewURL(s)
	if err != nil {
		panic(err)
	}
	return u
}
