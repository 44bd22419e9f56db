// internal/scenario/scenario.go
package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/UIVerifier/pkg/types"
)

// DefaultTargetURL is the application the built-in scenario verifies.
const DefaultTargetURL = "http://localhost:5173"

// DefaultArtifactPath is where the built-in scenario writes its screenshot.
const DefaultArtifactPath = "jules-scratch/verification/verification.png"

// LoadFromFile loads a scenario from a YAML file
func LoadFromFile(filename string) (*Scenario, error) {
	if filename == "" {
		return nil, fmt.Errorf("scenario filename cannot be empty")
	}

	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario file not found: %s", filename)
	}

	// Read file content
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads a scenario from YAML bytes
func LoadFromBytes(data []byte) (*Scenario, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("scenario data cannot be empty")
	}

	// Substitute environment variables
	expandedData := os.ExpandEnv(string(data))

	var sc Scenario
	if err := yaml.Unmarshal([]byte(expandedData), &sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML scenario: %v", err)
	}

	// Apply defaults
	sc.ApplyDefaults()

	// Validate scenario
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %v", err)
	}

	return &sc, nil
}

// LoadFromReader loads a scenario from an io.Reader
func LoadFromReader(reader io.Reader) (*Scenario, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves a scenario to a YAML file
func SaveToFile(sc *Scenario, filename string) error {
	if sc == nil {
		return fmt.Errorf("scenario cannot be nil")
	}

	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	// Validate scenario before saving
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("invalid scenario: %v", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario to YAML: %v", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", dir, err)
	}

	// Write to file
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %v", err)
	}

	return nil
}

// SaveToWriter saves a scenario to an io.Writer
func SaveToWriter(sc *Scenario, writer io.Writer) error {
	if sc == nil {
		return fmt.Errorf("scenario cannot be nil")
	}

	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	// Marshal to YAML
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario to YAML: %v", err)
	}

	// Write to writer
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write scenario: %v", err)
	}

	return nil
}

// Merge merges multiple scenarios, with later scenarios overriding earlier
// ones
func Merge(scenarios ...*Scenario) (*Scenario, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("at least one scenario is required")
	}

	// Start with the first scenario
	merged := *scenarios[0]

	// Merge each subsequent scenario
	for i := 1; i < len(scenarios); i++ {
		if scenarios[i] == nil {
			continue
		}

		mergeScenario(&merged, scenarios[i])
	}

	// Apply defaults to merged scenario
	merged.ApplyDefaults()

	// Validate merged scenario
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("merged scenario is invalid: %v", err)
	}

	return &merged, nil
}

// mergeScenario merges source scenario into target
func mergeScenario(target, source *Scenario) {
	if source.Name != "" {
		target.Name = source.Name
	}
	if source.Description != "" {
		target.Description = source.Description
	}
	if source.TargetURL != "" {
		target.TargetURL = source.TargetURL
	}
	if len(source.Steps) > 0 {
		target.Steps = source.Steps
	}
	if source.Match != nil {
		target.Match = source.Match
	}
	if source.Browser != nil {
		target.Browser = source.Browser
	}
	if source.Artifacts != nil {
		target.Artifacts = source.Artifacts
	}
	if len(source.Reports) > 0 {
		target.Reports = source.Reports
	}
	if source.Monitoring != nil {
		target.Monitoring = source.Monitoring
	}
	if source.Repeat != nil {
		target.Repeat = source.Repeat
	}
	if source.Retry != nil {
		target.Retry = source.Retry
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
}

// ApplyDefaults fills omitted settings with their documented defaults.
// Loading applies this automatically; callers constructing scenarios in
// code should apply it before running them.
func (s *Scenario) ApplyDefaults() {
	if s.Browser == nil {
		s.Browser = &BrowserSettings{}
	}
	if s.Browser.Headless == nil {
		headless := true
		s.Browser.Headless = &headless
	}
	if s.Browser.ViewportWidth == 0 {
		s.Browser.ViewportWidth = 1280
	}
	if s.Browser.ViewportHeight == 0 {
		s.Browser.ViewportHeight = 720
	}
	if s.Browser.Timeout == 0 {
		s.Browser.Timeout = types.NewDuration(30 * time.Second)
	}

	if s.Artifacts == nil {
		s.Artifacts = &ArtifactSettings{}
	}
	if s.Artifacts.Overwrite == nil {
		overwrite := true
		s.Artifacts.Overwrite = &overwrite
	}

	if s.Repeat == nil {
		s.Repeat = &RepeatSettings{}
	}
	if s.Repeat.Count == 0 {
		s.Repeat.Count = 1
	}

	if s.Retry == nil {
		s.Retry = &RetrySettings{}
	}
	if s.Retry.MaxAttempts == 0 {
		s.Retry.MaxAttempts = 1
	}
	if s.Retry.BaseDelay == 0 {
		s.Retry.BaseDelay = types.NewDuration(2 * time.Second)
	}
	if s.Retry.BackoffFactor == 0 {
		s.Retry.BackoffFactor = 2.0
	}

	if s.Monitoring == nil {
		s.Monitoring = &MonitoringSettings{}
	}
	if s.Monitoring.Enabled && s.Monitoring.ListenAddress == "" {
		s.Monitoring.ListenAddress = ":9090"
	}

	for i := range s.Reports {
		if s.Reports[i].Timeout == 0 {
			s.Reports[i].Timeout = types.NewDuration(30 * time.Second)
		}
	}

	if s.LogLevel == "" {
		s.LogLevel = "info"
	}

	// Label unnamed steps by type and position
	for i := range s.Steps {
		if s.Steps[i].Name == "" {
			s.Steps[i].Name = fmt.Sprintf("%s_%d", s.Steps[i].Type, i+1)
		}
	}
}

// Default returns the built-in scenario: open the room page, create a
// room, wait for the share confirmation, and capture the evidence
// screenshot.
func Default() *Scenario {
	sc := &Scenario{
		Name:        "room-creation-verification",
		Description: "Verify that creating a room reveals the share confirmation",
		TargetURL:   DefaultTargetURL,
		Steps: []Step{
			{Type: types.StepNavigate},
			{Type: types.StepClickText, Text: "Create Room"},
			{Type: types.StepWaitText, Text: "Share your ID:"},
			{Type: types.StepScreenshot, Path: DefaultArtifactPath},
		},
	}
	sc.ApplyDefaults()
	return sc
}

// GenerateTemplate generates a template scenario for the specified kind
func GenerateTemplate(kind string) *Scenario {
	switch strings.ToLower(kind) {
	case "full":
		return generateFullTemplate()
	case "ci":
		return generateCITemplate()
	case "basic":
		return generateBasicTemplate()
	default:
		return generateBasicTemplate()
	}
}

func generateBasicTemplate() *Scenario {
	sc := &Scenario{
		Name:        "basic-verification",
		Description: "Click a button and wait for confirmation text",
		TargetURL:   "http://localhost:5173",
		Steps: []Step{
			{Type: types.StepNavigate},
			{Type: types.StepClickText, Text: "Create Room"},
			{Type: types.StepWaitText, Text: "Share your ID:"},
			{Type: types.StepScreenshot, Path: "jules-scratch/verification/verification.png"},
		},
	}
	sc.ApplyDefaults()
	return sc
}

func generateFullTemplate() *Scenario {
	sc := &Scenario{
		Name:        "full-verification",
		Description: "Every step type and sink, as a starting point",
		TargetURL:   "https://app.example.com",
		Steps: []Step{
			{Type: types.StepNavigate},
			{Type: types.StepWaitElement, Selector: "#app"},
			{Type: types.StepClickText, Text: "Sign In", Match: &MatchSettings{CaseInsensitive: true}},
			{Type: types.StepClick, Selector: "button.submit"},
			{Type: types.StepWaitText, Text: "Welcome"},
			{Type: types.StepAssertText, Text: "Dashboard", Selector: "h1"},
			{Type: types.StepAssertElement, Selector: ".widget", Count: 3},
			{Type: types.StepEval, Script: "document.title"},
			{Type: types.StepSleep, Duration: types.NewDuration(time.Second)},
			{Type: types.StepScreenshot, Path: "dashboard.png", FullPage: true},
			{Type: types.StepPDF, Path: "dashboard.pdf"},
		},
		Artifacts: &ArtifactSettings{
			Dir:        "artifacts",
			CreateDirs: true,
		},
		Reports: []ReportSettings{
			{Format: "json", Path: "results.json"},
			{Format: "webhook", URL: "https://collector.example.com/api/v1/results"},
		},
	}
	sc.ApplyDefaults()
	return sc
}

func generateCITemplate() *Scenario {
	sc := &Scenario{
		Name:        "ci-verification",
		Description: "Gate-grade settings: retries, metrics, and a sqlite report",
		TargetURL:   "http://localhost:5173",
		Steps: []Step{
			{Type: types.StepNavigate},
			{Type: types.StepClickText, Text: "Create Room"},
			{Type: types.StepWaitText, Text: "Share your ID:"},
			{Type: types.StepScreenshot, Path: "artifacts/verification.png"},
		},
		Artifacts: &ArtifactSettings{
			CreateDirs: true,
		},
		Reports: []ReportSettings{
			{Format: "sqlite", Path: "verification.db"},
		},
		Monitoring: &MonitoringSettings{
			Enabled:       true,
			ListenAddress: ":9090",
		},
		Retry: &RetrySettings{
			MaxAttempts:   3,
			BaseDelay:     types.NewDuration(2 * time.Second),
			BackoffFactor: 2.0,
		},
	}
	sc.ApplyDefaults()
	return sc
}
