// internal/scenario/scenario_test.go
package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/UIVerifier/pkg/types"
)

func TestLoadFromBytes(t *testing.T) {
	scenarioYAML := `
name: "bytes_test"
target_url: "http://localhost:5173"
steps:
  - type: navigate
  - type: click_text
    text: "Create Room"
  - type: wait_text
    text: "Share your ID:"
  - type: screenshot
    path: "jules-scratch/verification/verification.png"
`

	sc, err := LoadFromBytes([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if sc.Name != "bytes_test" {
		t.Errorf("expected name 'bytes_test', got %q", sc.Name)
	}

	if sc.TargetURL != "http://localhost:5173" {
		t.Errorf("expected target_url 'http://localhost:5173', got %q", sc.TargetURL)
	}

	if len(sc.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(sc.Steps))
	}

	if sc.Steps[1].Type != types.StepClickText || sc.Steps[1].Text != "Create Room" {
		t.Errorf("unexpected second step: %+v", sc.Steps[1])
	}

	// Defaults should have been applied during loading
	if sc.Browser == nil || sc.Browser.Headless == nil || !*sc.Browser.Headless {
		t.Error("expected headless default to be true")
	}

	if sc.Browser.ViewportWidth != 1280 || sc.Browser.ViewportHeight != 720 {
		t.Errorf("expected 1280x720 viewport default, got %dx%d",
			sc.Browser.ViewportWidth, sc.Browser.ViewportHeight)
	}

	if sc.Steps[0].Name != "navigate_1" {
		t.Errorf("expected generated step name 'navigate_1', got %q", sc.Steps[0].Name)
	}
}

func TestLoadFromBytesErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{
			name:     "empty data",
			content:  "",
			errorMsg: "cannot be empty",
		},
		{
			name:     "malformed yaml",
			content:  "name: [unclosed",
			errorMsg: "failed to parse YAML",
		},
		{
			name: "missing name",
			content: `
target_url: "http://localhost:5173"
steps:
  - type: navigate
`,
			errorMsg: "name is required",
		},
		{
			name: "missing steps",
			content: `
name: "no_steps"
target_url: "http://localhost:5173"
`,
			errorMsg: "at least one step",
		},
		{
			name: "missing target url",
			content: `
name: "no_target"
steps:
  - type: navigate
`,
			errorMsg: "URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error to contain %q, got: %v", tt.errorMsg, err)
			}
		})
	}
}

func TestLoadFromBytesEnvExpansion(t *testing.T) {
	t.Setenv("VERIFY_TARGET", "http://localhost:5173")

	scenarioYAML := `
name: "env_test"
target_url: "${VERIFY_TARGET}"
steps:
  - type: navigate
`

	sc, err := LoadFromBytes([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if sc.TargetURL != "http://localhost:5173" {
		t.Errorf("expected expanded target_url, got %q", sc.TargetURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	scenarioYAML := `
name: "file_test"
target_url: "http://localhost:5173"
steps:
  - type: click_text
    text: "Create Room"
`

	tmpFile, err := os.CreateTemp("", "test_scenario_*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(scenarioYAML); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	sc, err := LoadFromFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if sc.Name != "file_test" {
		t.Errorf("expected name 'file_test', got %q", sc.Name)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/scenario.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got: %v", err)
	}

	if _, err := LoadFromFile(""); err == nil {
		t.Fatal("expected error for empty filename")
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "scenario_save_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	original := Default()
	path := filepath.Join(tempDir, "nested", "scenario.yaml")

	if err := SaveToFile(original, path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	reloaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile after save failed: %v", err)
	}

	if reloaded.Name != original.Name {
		t.Errorf("expected name %q after round trip, got %q", original.Name, reloaded.Name)
	}

	if len(reloaded.Steps) != len(original.Steps) {
		t.Errorf("expected %d steps after round trip, got %d",
			len(original.Steps), len(reloaded.Steps))
	}

	if reloaded.Browser.Timeout.ToDuration() != 30*time.Second {
		t.Errorf("expected 30s timeout after round trip, got %v",
			reloaded.Browser.Timeout.ToDuration())
	}
}

func TestDefault(t *testing.T) {
	sc := Default()

	if sc.TargetURL != "http://localhost:5173" {
		t.Errorf("expected target 'http://localhost:5173', got %q", sc.TargetURL)
	}

	if len(sc.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(sc.Steps))
	}

	if sc.Steps[0].Type != types.StepNavigate {
		t.Errorf("expected first step to navigate, got %s", sc.Steps[0].Type)
	}

	if sc.Steps[1].Type != types.StepClickText || sc.Steps[1].Text != "Create Room" {
		t.Errorf("expected click on 'Create Room', got %+v", sc.Steps[1])
	}

	if sc.Steps[2].Type != types.StepWaitText || sc.Steps[2].Text != "Share your ID:" {
		t.Errorf("expected wait for 'Share your ID:', got %+v", sc.Steps[2])
	}

	if sc.Steps[3].Type != types.StepScreenshot ||
		sc.Steps[3].Path != "jules-scratch/verification/verification.png" {
		t.Errorf("expected screenshot to jules-scratch path, got %+v", sc.Steps[3])
	}

	if sc.Browser.Headless == nil || !*sc.Browser.Headless {
		t.Error("default scenario should run headless")
	}

	if sc.Browser.Timeout.ToDuration() != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", sc.Browser.Timeout.ToDuration())
	}

	if sc.Artifacts.CreateDirs {
		t.Error("default scenario must not create missing artifact directories")
	}

	if !sc.Artifacts.ShouldOverwrite() {
		t.Error("default scenario should overwrite existing artifacts")
	}

	if sc.Retry.MaxAttempts != 1 {
		t.Errorf("expected fail-fast retry default, got %d attempts", sc.Retry.MaxAttempts)
	}

	if sc.Monitoring.Enabled {
		t.Error("monitoring should be off by default")
	}

	if err := sc.Validate(); err != nil {
		t.Errorf("default scenario should be valid: %v", err)
	}
}

func TestGenerateTemplate(t *testing.T) {
	kinds := []string{"basic", "full", "ci", "unknown"}

	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			sc := GenerateTemplate(kind)

			if sc.Name == "" {
				t.Error("template should have a name")
			}

			if len(sc.Steps) == 0 {
				t.Error("template should have steps")
			}

			if err := sc.Validate(); err != nil {
				t.Errorf("generated template should be valid: %v", err)
			}
		})
	}
}

func TestGenerateTemplateFullCoversAllStepTypes(t *testing.T) {
	sc := GenerateTemplate("full")

	seen := make(map[types.StepType]bool)
	for _, step := range sc.Steps {
		seen[step.Type] = true
	}

	for _, st := range types.ValidStepTypes() {
		if !seen[st] {
			t.Errorf("full template is missing step type %s", st)
		}
	}
}

func TestMerge(t *testing.T) {
	base := &Scenario{
		Name:      "base",
		TargetURL: "http://localhost:5173",
		Steps: []Step{
			{Type: types.StepNavigate},
		},
	}
	override := &Scenario{
		Name:     "override",
		LogLevel: "debug",
		Browser: &BrowserSettings{
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
	}

	merged, err := Merge(base, override)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if merged.Name != "override" {
		t.Errorf("expected merged name 'override', got %q", merged.Name)
	}

	if merged.TargetURL != "http://localhost:5173" {
		t.Errorf("expected base target_url to survive, got %q", merged.TargetURL)
	}

	if merged.LogLevel != "debug" {
		t.Errorf("expected merged log_level 'debug', got %q", merged.LogLevel)
	}

	if merged.Browser.ViewportWidth != 1920 {
		t.Errorf("expected merged viewport width 1920, got %d", merged.Browser.ViewportWidth)
	}
}

func TestMergeNoScenarios(t *testing.T) {
	if _, err := Merge(); err == nil {
		t.Fatal("expected error when merging zero scenarios")
	}
}

func TestMatchSettingsToOptions(t *testing.T) {
	var nilSettings *MatchSettings
	opts := nilSettings.ToOptions()
	if opts.CaseInsensitive || !opts.CollapseWhitespace || !opts.UnicodeNormalize {
		t.Errorf("nil settings should resolve to defaults, got %+v", opts)
	}

	off := false
	opts = (&MatchSettings{
		CaseInsensitive:    true,
		CollapseWhitespace: &off,
	}).ToOptions()
	if !opts.CaseInsensitive {
		t.Error("expected case_insensitive to carry through")
	}
	if opts.CollapseWhitespace {
		t.Error("expected explicit collapse_whitespace: false to carry through")
	}
	if !opts.UnicodeNormalize {
		t.Error("expected omitted unicode_normalize to default to true")
	}
}

func TestMatchFor(t *testing.T) {
	sc := &Scenario{
		Match: &MatchSettings{CaseInsensitive: true},
	}

	scenarioLevel := sc.MatchFor(Step{Type: types.StepClickText, Text: "Create Room"})
	if !scenarioLevel.CaseInsensitive {
		t.Error("expected scenario-level match settings to apply")
	}

	stepLevel := sc.MatchFor(Step{
		Type:  types.StepClickText,
		Text:  "Create Room",
		Match: &MatchSettings{CaseInsensitive: false},
	})
	if stepLevel.CaseInsensitive {
		t.Error("expected step-level match settings to override scenario-level")
	}
}

func TestBrowserSettingsToConfig(t *testing.T) {
	var nilSettings *BrowserSettings
	cfg := nilSettings.ToConfig()
	if !cfg.Headless {
		t.Error("nil settings should resolve to headless")
	}
	if cfg.ViewportWidth != 1280 || cfg.ViewportHeight != 720 {
		t.Errorf("nil settings should resolve to 1280x720, got %dx%d",
			cfg.ViewportWidth, cfg.ViewportHeight)
	}

	headed := false
	cfg = (&BrowserSettings{
		Headless:       &headed,
		ChromePath:     "/usr/bin/chromium",
		ViewportWidth:  800,
		ViewportHeight: 600,
		Timeout:        types.NewDuration(10 * time.Second),
	}).ToConfig()

	if cfg.Headless {
		t.Error("expected explicit headless: false to carry through")
	}
	if cfg.ExecPath != "/usr/bin/chromium" {
		t.Errorf("expected chrome_path to carry through, got %q", cfg.ExecPath)
	}
	if cfg.ViewportWidth != 800 || cfg.ViewportHeight != 600 {
		t.Errorf("expected 800x600 viewport, got %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Timeout)
	}
}

func TestApplyDefaultsStepNames(t *testing.T) {
	sc := &Scenario{
		Name:      "names",
		TargetURL: "http://localhost:5173",
		Steps: []Step{
			{Type: types.StepNavigate},
			{Type: types.StepClickText, Text: "Create Room", Name: "create_room"},
			{Type: types.StepWaitText, Text: "Share your ID:"},
		},
	}
	sc.ApplyDefaults()

	if sc.Steps[0].Name != "navigate_1" {
		t.Errorf("expected 'navigate_1', got %q", sc.Steps[0].Name)
	}
	if sc.Steps[1].Name != "create_room" {
		t.Errorf("explicit step name should be preserved, got %q", sc.Steps[1].Name)
	}
	if sc.Steps[2].Name != "wait_text_3" {
		t.Errorf("expected 'wait_text_3', got %q", sc.Steps[2].Name)
	}
}
