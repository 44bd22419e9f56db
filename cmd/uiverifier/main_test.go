// cmd/uiverifier/main_test.go
package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/pkg/types"
)

func TestCLIVersion(t *testing.T) {
	// Set test values
	version = "test-version"
	buildTime = "2026-08-23"
	gitCommit = "abc123"

	output := captureOutput(func() {
		printVersion()
	})

	if !strings.Contains(output, "test-version") {
		t.Errorf("version output should contain version, got: %s", output)
	}
	if !strings.Contains(output, "2026-08-23") {
		t.Errorf("version output should contain build time, got: %s", output)
	}
	if !strings.Contains(output, "abc123") {
		t.Errorf("version output should contain git commit, got: %s", output)
	}
}

func TestCLIHelp(t *testing.T) {
	output := captureOutput(func() {
		printUsage()
	})

	commands := []string{"run", "validate", "template", "version", "help", "--dry-run"}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output should contain command %q, got: %s", cmd, output)
		}
	}
}

func TestPositionalArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "files only",
			args: []string{"a.yaml", "b.yaml"},
			want: []string{"a.yaml", "b.yaml"},
		},
		{
			name: "strips boolean flags",
			args: []string{"-v", "a.yaml", "--dry-run"},
			want: []string{"a.yaml"},
		},
		{
			name: "strips valued flags with their values",
			args: []string{"--type", "ci", "-o", "out.yaml", "a.yaml"},
			want: []string{"a.yaml"},
		},
		{
			name: "empty",
			args: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := positionalArgs(tt.args)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d args, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("arg %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestFlagValue(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"uiverifier", "template", "--type", "ci", "-o", "out.yaml"}

	if got := flagValue("--type"); got != "ci" {
		t.Errorf("expected --type value ci, got %q", got)
	}
	if got := flagValue("-o"); got != "out.yaml" {
		t.Errorf("expected -o value out.yaml, got %q", got)
	}
	if got := flagValue("--missing"); got != "" {
		t.Errorf("expected empty value for missing flag, got %q", got)
	}
}

func TestLoadScenariosDefault(t *testing.T) {
	scenarios, err := loadScenarios(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(scenarios))
	}
	if scenarios[0].Name != "room-creation-verification" {
		t.Errorf("expected built-in scenario, got %q", scenarios[0].Name)
	}
}

func TestLoadScenariosFromFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scenario.yaml")
	content := `name: file-check
target_url: http://localhost:5173
steps:
  - type: navigate
  - type: wait_text
    text: "Ready"
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write scenario file: %v", err)
	}

	scenarios, err := loadScenarios([]string{file})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(scenarios))
	}
	if scenarios[0].Name != "file-check" {
		t.Errorf("expected scenario name file-check, got %q", scenarios[0].Name)
	}
	if len(scenarios[0].Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(scenarios[0].Steps))
	}
}

func TestLoadScenariosMissingFile(t *testing.T) {
	_, err := loadScenarios([]string{"/nonexistent/scenario.yaml"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if class := errors.ClassOf(err); class != types.FailureConfig {
		t.Errorf("expected config failure class, got %s", class)
	}
}

func TestPrintPlan(t *testing.T) {
	output := captureOutput(func() {
		printPlan(scenario.Default())
	})

	wants := []string{
		"room-creation-verification",
		"http://localhost:5173",
		"navigate",
		`"Create Room"`,
		`"Share your ID:"`,
		"jules-scratch/verification/verification.png",
	}
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Errorf("plan output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestStepDetail(t *testing.T) {
	sc := &scenario.Scenario{TargetURL: "http://localhost:5173"}

	tests := []struct {
		name string
		step scenario.Step
		want string
	}{
		{
			name: "navigate falls back to target",
			step: scenario.Step{Type: types.StepNavigate},
			want: "http://localhost:5173",
		},
		{
			name: "navigate with explicit url",
			step: scenario.Step{Type: types.StepNavigate, URL: "http://localhost:5173/rooms"},
			want: "http://localhost:5173/rooms",
		},
		{
			name: "click text quotes the label",
			step: scenario.Step{Type: types.StepClickText, Text: "Create Room"},
			want: `"Create Room"`,
		},
		{
			name: "scoped text assertion",
			step: scenario.Step{Type: types.StepAssertText, Text: "Ready", Selector: "#status"},
			want: `"Ready" in #status`,
		},
		{
			name: "element assertion with count",
			step: scenario.Step{Type: types.StepAssertElement, Selector: ".participant", Count: 2},
			want: ".participant (expect 2)",
		},
		{
			name: "screenshot path",
			step: scenario.Step{Type: types.StepScreenshot, Path: "out.png"},
			want: "out.png",
		},
		{
			name: "sleep duration",
			step: scenario.Step{Type: types.StepSleep, Duration: types.NewDuration(1500 * time.Millisecond)},
			want: "1.5s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stepDetail(sc, tt.step); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTemplateHeaderIsAllComments(t *testing.T) {
	header := templateHeader("ci")
	if !strings.Contains(header, "ci") {
		t.Errorf("header should name the template kind, got: %s", header)
	}
	for _, line := range strings.Split(strings.TrimSuffix(header, "\n"), "\n") {
		if !strings.HasPrefix(line, "#") {
			t.Errorf("header line %q is not a YAML comment", line)
		}
	}
}

func TestGenerateTemplateOutput(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"uiverifier", "template", "--type", "basic"}

	output := captureOutput(func() {
		generateTemplate()
	})

	if !strings.HasPrefix(output, "# uiverifier basic scenario template") {
		t.Errorf("template should start with the comment header, got:\n%s", output)
	}
	if !strings.Contains(output, "name: basic-verification") {
		t.Errorf("template should contain the scenario name, got:\n%s", output)
	}

	// The rendered template must load back as a valid scenario.
	sc, err := scenario.LoadFromBytes([]byte(output))
	if err != nil {
		t.Fatalf("generated template does not load: %v", err)
	}
	if len(sc.Steps) == 0 {
		t.Error("generated template should contain steps")
	}
}

func TestGenerateTemplateToFile(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "scenario.yaml")

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"uiverifier", "template", "--type", "ci", "-o", outFile}

	output := captureOutput(func() {
		generateTemplate()
	})

	if !strings.Contains(output, outFile) {
		t.Errorf("expected confirmation naming %s, got: %s", outFile, output)
	}

	sc, err := scenario.LoadFromFile(outFile)
	if err != nil {
		t.Fatalf("written template does not load: %v", err)
	}
	if sc.Name != "ci-verification" {
		t.Errorf("expected ci template, got %q", sc.Name)
	}
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	f()
	w.Close()
	os.Stdout = old
	out := <-outC

	return out
}
