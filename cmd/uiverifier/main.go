// cmd/uiverifier/main.go - CLI entry point with error management
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/runner"
	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/api"
	"github.com/valpere/UIVerifier/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Global error service instance
var errorService = errors.NewService()

// main handles CLI arguments and routes to the appropriate command
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	api.Version = version

	if hasFlag("-v") || hasFlag("--verbose") {
		errorService = errorService.WithVerbose(true)
		utils.SetDefaultLevel(utils.DebugLevel)
	} else if hasFlag("-q") || hasFlag("--quiet") {
		utils.SetDefaultLevel(utils.ErrorLevel)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runScenarios(positionalArgs(os.Args[2:]))

	case "validate":
		files := positionalArgs(os.Args[2:])
		if len(files) < 1 {
			fmt.Fprintf(os.Stderr, "Error: scenario file required\n")
			fmt.Fprintf(os.Stderr, "Usage: uiverifier validate <scenario.yaml>\n")
			os.Exit(1)
		}
		validateScenario(files[0])

	case "template":
		generateTemplate()

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runScenarios executes each scenario file in order, falling back to the
// built-in room-creation scenario when no files are given. Later scenarios
// still run after a failure; the exit code reflects the first failure.
func runScenarios(files []string) {
	scenarios, err := loadScenarios(files)
	if err != nil {
		fail(err)
	}

	if hasFlag("--dry-run") {
		for i, sc := range scenarios {
			if i > 0 {
				fmt.Println()
			}
			printPlan(sc)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if hasFlag("--watch") {
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "Error: --watch requires a scenario file\n")
			os.Exit(1)
		}
		watchScenarios(ctx, files, scenarios)
		return
	}

	var firstErr error
	for _, sc := range scenarios {
		err := executeScenario(ctx, sc)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}

	if firstErr != nil {
		os.Exit(errorService.GetExitCode(firstErr))
	}
}

// executeScenario runs one scenario and prints its per-run outcomes.
func executeScenario(ctx context.Context, sc *scenario.Scenario) error {
	applyScenarioLogLevel(sc)

	results, err := runner.NewEngine().Execute(ctx, sc)
	for _, result := range results {
		marker := "✓"
		if !result.Passed() {
			marker = "✗"
		}
		fmt.Printf("%s %s\n", marker, result.Summary())
	}
	if err != nil {
		fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
	}
	return err
}

// watchScenarios reruns each scenario whenever its file changes, until
// interrupted. Reruns are serialized so overlapping edits queue up.
func watchScenarios(ctx context.Context, files []string, scenarios []*scenario.Scenario) {
	var mu sync.Mutex

	rerun := func(sc *scenario.Scenario) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		executeScenario(ctx, sc)
	}

	for i, file := range files {
		rerun(scenarios[i])

		w, err := scenario.NewWatcher(file)
		if err != nil {
			fail(errors.NewConfigError(fmt.Sprintf("watch %s", file), err))
		}
		defer w.Close()

		name := file
		w.OnChange(func(sc *scenario.Scenario) {
			fmt.Printf("↻ %s changed\n", name)
			rerun(sc)
		})
	}

	fmt.Println("Watching for scenario changes. Press Ctrl-C to stop.")
	<-ctx.Done()
}

// loadScenarios resolves the scenario list for a run invocation.
func loadScenarios(files []string) ([]*scenario.Scenario, error) {
	if len(files) == 0 {
		return []*scenario.Scenario{scenario.Default()}, nil
	}

	scenarios := make([]*scenario.Scenario, 0, len(files))
	for _, file := range files {
		sc, err := scenario.LoadFromFile(file)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("scenario file %s", file), err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// applyScenarioLogLevel honors the scenario's log_level unless a CLI flag
// already forced one.
func applyScenarioLogLevel(sc *scenario.Scenario) {
	if hasFlag("-v") || hasFlag("--verbose") || hasFlag("-q") || hasFlag("--quiet") {
		return
	}
	if sc.LogLevel != "" {
		utils.SetDefaultLevel(utils.ParseLogLevel(sc.LogLevel))
	}
}

// validateScenario loads a scenario file and reports the outcome. The load
// path runs full validation, so a returned error already carries the
// numbered findings list.
func validateScenario(file string) {
	sc, err := scenario.LoadFromFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(2)
	}

	result := sc.ValidateWithDetails()
	for _, warning := range result.Warnings {
		fmt.Printf("⚠ %s\n", warning)
	}

	fmt.Printf("✓ Scenario '%s' is valid (%d steps)\n", sc.Name, len(sc.Steps))
}

// generateTemplate renders a commented scenario template to stdout or to
// the file named by -o.
func generateTemplate() {
	kind := flagValue("--type")
	if kind == "" {
		kind = "basic"
	}

	sc := scenario.GenerateTemplate(kind)
	data, err := yaml.Marshal(sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to render template: %v\n", err)
		os.Exit(1)
	}

	rendered := templateHeader(kind) + string(data)

	if outFile := flagValue("-o"); outFile != "" {
		if err := os.WriteFile(outFile, []byte(rendered), 0644); err != nil {
			fail(errors.NewArtifactError(outFile, err))
		}
		fmt.Printf("Template written to %s\n", outFile)
		return
	}

	fmt.Print(rendered)
}

// templateHeader returns the comment block prepended to generated templates.
func templateHeader(kind string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# uiverifier %s scenario template\n", kind))
	b.WriteString("#\n")
	b.WriteString("# Edit the values below, then check the result with:\n")
	b.WriteString("#   uiverifier validate <file>\n")
	b.WriteString("#\n")
	b.WriteString("# Step types: navigate, click_text, click, wait_text, wait_element,\n")
	b.WriteString("# assert_text, assert_element, screenshot, pdf, eval, sleep.\n")
	b.WriteString("# ${VAR} references are expanded from the environment at load time.\n")
	return b.String()
}

// printPlan lists what a scenario would do without launching a browser.
func printPlan(sc *scenario.Scenario) {
	fmt.Printf("Scenario: %s\n", sc.Name)
	fmt.Printf("Target:   %s\n", sc.TargetURL)
	fmt.Println("Steps:")
	for i, step := range sc.Steps {
		fmt.Printf("  %2d. %-14s %s\n", i+1, step.Type, stepDetail(sc, step))
	}
	if sc.Repeat != nil && sc.Repeat.Count > 1 {
		line := fmt.Sprintf("Repeat:   %d runs", sc.Repeat.Count)
		if d := sc.Repeat.Interval.ToDuration(); d > 0 {
			line += fmt.Sprintf(", %s apart", d)
		}
		fmt.Println(line)
	}
	if sc.Retry != nil && sc.Retry.MaxAttempts > 1 {
		fmt.Printf("Retry:    up to %d attempts per run\n", sc.Retry.MaxAttempts)
	}
}

// stepDetail renders the operative argument of a step for the plan listing.
func stepDetail(sc *scenario.Scenario, step scenario.Step) string {
	switch step.Type {
	case types.StepNavigate:
		if step.URL != "" {
			return step.URL
		}
		return sc.TargetURL
	case types.StepClickText, types.StepWaitText:
		return fmt.Sprintf("%q", step.Text)
	case types.StepAssertText:
		if step.Selector != "" {
			return fmt.Sprintf("%q in %s", step.Text, step.Selector)
		}
		return fmt.Sprintf("%q", step.Text)
	case types.StepClick, types.StepWaitElement:
		return step.Selector
	case types.StepAssertElement:
		if step.Count > 0 {
			return fmt.Sprintf("%s (expect %d)", step.Selector, step.Count)
		}
		return step.Selector
	case types.StepScreenshot, types.StepPDF:
		return step.Path
	case types.StepEval:
		return utils.TruncateString(step.Script, 60)
	case types.StepSleep:
		return step.Duration.ToDuration().String()
	default:
		return ""
	}
}

// fail prints the user-facing rendering of err and exits with its mapped code.
func fail(err error) {
	fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
	os.Exit(errorService.GetExitCode(err))
}

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

// flagValue returns the argument following a flag, or empty when absent.
func flagValue(flag string) string {
	for i, arg := range os.Args {
		if arg == flag && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return ""
}

// positionalArgs strips flags and their values from an argument list.
func positionalArgs(args []string) []string {
	positional := make([]string, 0, len(args))
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		switch {
		case arg == "-o" || arg == "--type":
			skip = true
		case strings.HasPrefix(arg, "-"):
			// boolean flag
		default:
			positional = append(positional, arg)
		}
	}
	return positional
}

// printUsage displays help information
func printUsage() {
	fmt.Println("UIVerifier - Headless UI Verification Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  uiverifier run [scenario.yaml ...]   Run scenarios (built-in scenario when none given)")
	fmt.Println("  uiverifier validate <scenario.yaml>  Validate a scenario file")
	fmt.Println("  uiverifier template [--type <type>]  Generate a scenario template")
	fmt.Println("  uiverifier version                   Show version information")
	fmt.Println("  uiverifier help                      Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose                        Enable debug logging")
	fmt.Println("  -q, --quiet                          Log errors only")
	fmt.Println("  -o <file>                            Write the template to a file")
	fmt.Println("  --dry-run                            Validate and print the step plan without a browser")
	fmt.Println("  --watch                              Rerun scenarios when their files change")
	fmt.Println()
	fmt.Println("Template types:")
	fmt.Println("  basic       Navigate, click, wait, screenshot (default)")
	fmt.Println("  full        Every step type and report sink")
	fmt.Println("  ci          Retries, metrics, and a sqlite report")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0 success      2 config     3 launch    4 navigation")
	fmt.Println("  5 element      6 wait       7 artifact  8 report     1 other")
}

// printVersion displays version information
func printVersion() {
	fmt.Printf("UIVerifier %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
