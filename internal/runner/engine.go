// internal/runner/engine.go

// Package runner executes verification scenarios against a browser
// session. The Engine owns the run lifecycle: session acquisition, step
// execution, artifact capture, failure classification, and delivery of
// results to report sinks and the monitoring surface.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/UIVerifier/internal/browser"
	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/monitoring"
	"github.com/valpere/UIVerifier/internal/report"
	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/api"
	"github.com/valpere/UIVerifier/pkg/types"
)

// Engine runs verification scenarios. One Engine may execute many
// scenarios; metrics and recent results accumulate across them.
type Engine struct {
	metrics *monitoring.Metrics
	store   *monitoring.ResultStore
	logger  utils.Logger

	// Session factories, replaced by tests that run without Chrome
	newSession func(cfg *browser.Config) (browser.Driver, error)
	newPool    func(cfg *browser.Config, size int) (browser.Pool, error)
}

// NewEngine creates an engine with its own metrics registry and result store
func NewEngine() *Engine {
	return &Engine{
		metrics: monitoring.NewMetrics(),
		store:   monitoring.NewResultStore(0),
		logger:  utils.NewComponentLogger("runner"),
		newSession: func(cfg *browser.Config) (browser.Driver, error) {
			return browser.NewSession(cfg)
		},
		newPool: func(cfg *browser.Config, size int) (browser.Pool, error) {
			return browser.NewSessionPool(cfg, size)
		},
	}
}

// WithLogger replaces the engine logger
func (e *Engine) WithLogger(logger utils.Logger) *Engine {
	e.logger = logger
	return e
}

// Metrics exposes the engine metrics, e.g. for a monitoring server
func (e *Engine) Metrics() *monitoring.Metrics {
	return e.metrics
}

// Results exposes the recent-run store
func (e *Engine) Results() *monitoring.ResultStore {
	return e.store
}

// Execute runs a scenario end to end: validation, the optional monitoring
// server, report sinks, repeat spacing, and run-level retries. It returns
// one result per run together with the first verification or report
// failure. A nil scenario runs the built-in default.
func (e *Engine) Execute(ctx context.Context, sc *scenario.Scenario) ([]*types.RunResult, error) {
	if sc == nil {
		sc = scenario.Default()
	}
	sc.ApplyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("scenario %s", sc.Name), err)
	}

	reporter, err := report.NewManager(sc.Reports)
	if err != nil {
		return nil, err
	}

	var health *monitoring.HealthManager
	var server *monitoring.Server
	if sc.Monitoring != nil && sc.Monitoring.Enabled {
		health = e.buildHealthManager(sc, reporter)
		server = monitoring.NewServer(e.metrics, health, e.store, monitoring.ServerConfig{
			ListenAddress: sc.Monitoring.ListenAddress,
			Version:       api.Version,
		})
		if err := server.Start(); err != nil {
			reporter.Close()
			return nil, errors.NewConfigError(
				fmt.Sprintf("monitoring listen address %s", sc.Monitoring.ListenAddress), err)
		}
		health.Start(ctx)
	}

	results, runErr := e.executeRuns(ctx, sc, reporter)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			e.logger.Warnf("monitoring server shutdown: %v", err)
		}
		cancel()
		health.Stop()
	}

	if err := reporter.Close(); err != nil && runErr == nil {
		runErr = err
	}

	return results, runErr
}

// Run performs a single verification run with a fresh browser session.
// Repeat, retry, and report settings are not applied here; Execute layers
// those on top. A nil scenario runs the built-in default.
func (e *Engine) Run(ctx context.Context, sc *scenario.Scenario) (*types.RunResult, error) {
	if sc == nil {
		sc = scenario.Default()
	}
	sc.ApplyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("scenario %s", sc.Name), err)
	}
	return e.runOnce(ctx, sc, nil)
}

// executeRuns performs the repeat loop: spacing through the rate limiter,
// a circuit breaker on the target for repeated runs, and per-run delivery
// to the report sinks.
func (e *Engine) executeRuns(ctx context.Context, sc *scenario.Scenario, reporter *report.Manager) ([]*types.RunResult, error) {
	count := 1
	if sc.Repeat != nil && sc.Repeat.Count > 1 {
		count = sc.Repeat.Count
	}

	retrySvc := errors.NewService().WithRetryConfig(retryConfigFor(sc.Retry))

	var pool browser.Pool
	if count > 1 && sc.Repeat.ReuseSession {
		p, err := e.newPool(sc.Browser.ToConfig(), 1)
		if err != nil {
			return nil, errors.NewLaunchError(err)
		}
		pool = p
		defer pool.Close()
	}

	var interval time.Duration
	if sc.Repeat != nil {
		interval = sc.Repeat.Interval.ToDuration()
	}
	limiter := utils.NewIntervalLimiter(interval)

	target := sc.TargetURL
	if normalized, err := utils.NormalizeURL(target); err == nil {
		target = normalized
	}
	breaker := retrySvc.BreakerFor(target)

	results := make([]*types.RunResult, 0, count)
	var firstErr error

	for i := 0; i < count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		if count > 1 && !breaker.CanExecute() {
			err := errors.New(types.FailureNavigation, "run scenario",
				fmt.Sprintf("target %s suspended after repeated failures", target))
			e.logger.Warnf("run %d/%d skipped: %v", i+1, count, err)
			result := e.suspendedRun(sc, err)
			results = append(results, result)
			if firstErr == nil {
				firstErr = err
			}
			if werr := reporter.Write(ctx, result); werr != nil && firstErr == nil {
				firstErr = werr
			}
			continue
		}

		result, runErr := e.runWithRetry(ctx, sc, pool, retrySvc)
		results = append(results, result)

		if count > 1 {
			if runErr != nil {
				breaker.RecordFailure()
			} else {
				breaker.RecordSuccess()
			}
		}

		e.logger.Info(result.Summary())

		if runErr != nil && firstErr == nil {
			firstErr = runErr
		}
		if werr := reporter.Write(ctx, result); werr != nil && firstErr == nil {
			firstErr = werr
		}
	}

	return results, firstErr
}

// runWithRetry executes one verification run, re-running it per the
// scenario retry policy when the failure class is retryable. The result
// of the last attempt is returned alongside the retry service's error.
func (e *Engine) runWithRetry(ctx context.Context, sc *scenario.Scenario, pool browser.Pool, retrySvc *errors.Service) (*types.RunResult, error) {
	var result *types.RunResult
	attempt := 0

	err := retrySvc.ExecuteWithRetry(ctx, func() error {
		attempt++
		r, runErr := e.runOnce(ctx, sc, pool)
		r.Attempt = attempt
		result = r
		return runErr
	}, sc.Name)

	return result, err
}

// runOnce performs a single verification run with a fresh or pooled
// session. The session is always released before returning.
func (e *Engine) runOnce(ctx context.Context, sc *scenario.Scenario, pool browser.Pool) (*types.RunResult, error) {
	result := newRunResult(sc)
	e.metrics.RunStarted()
	defer func() {
		result.FinishedAt = time.Now()
		result.Duration = result.FinishedAt.Sub(result.StartedAt)
		e.metrics.RunFinished(sc.Name, string(result.Status))
		e.store.Add(result)
	}()

	var driver browser.Driver
	var err error
	if pool != nil {
		driver, err = pool.Get(ctx)
	} else {
		driver, err = e.newSession(sc.Browser.ToConfig())
	}
	if err != nil {
		failRun(result, sc.Steps, 0, err)
		return result, err
	}

	if pool != nil {
		defer func() {
			if perr := pool.Put(driver); perr != nil {
				e.logger.Warnf("failed to return session to pool: %v", perr)
			}
		}()
	} else {
		e.metrics.RecordBrowserLaunch()
		defer func() {
			if cerr := driver.Close(); cerr != nil {
				e.logger.Warnf("failed to close browser session: %v", cerr)
			}
		}()
	}

	return result, e.executeSteps(ctx, sc, driver, result)
}

// executeSteps drives the scenario steps strictly in order, stopping at
// the first failure. Steps after the failure are recorded as skipped.
func (e *Engine) executeSteps(ctx context.Context, sc *scenario.Scenario, driver browser.Driver, result *types.RunResult) error {
	stepLogger := e.logger.WithField("run", result.ID)

	for i, step := range sc.Steps {
		select {
		case <-ctx.Done():
			skipSteps(result, sc.Steps, i)
			result.Status = types.RunCancelled
			result.Error = ctx.Err().Error()
			return ctx.Err()
		default:
		}

		sr := types.StepResult{
			Index:     i,
			Name:      step.Name,
			Type:      step.Type,
			StartedAt: time.Now(),
		}
		stepLogger.Debugf("step %d/%d %s starting", i+1, len(sc.Steps), step.Name)

		detail, artifact, err := e.executeStep(ctx, driver, sc, step)
		sr.Duration = time.Since(sr.StartedAt)
		sr.Detail = detail
		if artifact != "" {
			result.Artifacts = append(result.Artifacts, artifact)
		}

		if err != nil {
			sr.Status = types.StepFailed
			sr.Error = err.Error()
			result.Steps = append(result.Steps, sr)
			e.metrics.RecordStep(string(step.Type), string(types.StepFailed), sr.Duration)
			stepLogger.Errorf("step %d/%d %s failed after %s: %v",
				i+1, len(sc.Steps), step.Name, utils.FormatDuration(sr.Duration), err)

			skipSteps(result, sc.Steps, i+1)
			result.Status = types.RunFailed
			result.FailureClass = errors.ClassOf(err)
			result.Error = err.Error()
			return err
		}

		sr.Status = types.StepPassed
		result.Steps = append(result.Steps, sr)
		e.metrics.RecordStep(string(step.Type), string(types.StepPassed), sr.Duration)
		stepLogger.Debugf("step %d/%d %s passed in %s",
			i+1, len(sc.Steps), step.Name, utils.FormatDuration(sr.Duration))
	}

	result.Status = types.RunPassed
	return nil
}

// suspendedRun records a run that the circuit breaker refused to start
func (e *Engine) suspendedRun(sc *scenario.Scenario, err error) *types.RunResult {
	result := newRunResult(sc)
	e.metrics.RunStarted()
	failRun(result, sc.Steps, 0, err)
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	e.metrics.RunFinished(sc.Name, string(result.Status))
	e.store.Add(result)
	return result
}

// buildHealthManager wires the run's component checks: browser
// launchability, artifact directory writability, target reachability,
// and report sink reachability.
func (e *Engine) buildHealthManager(sc *scenario.Scenario, reporter *report.Manager) *monitoring.HealthManager {
	health := monitoring.NewHealthManager(monitoring.HealthConfig{})

	cfg := sc.Browser.ToConfig()
	health.RegisterCheck(monitoring.BrowserHealthCheck(func(ctx context.Context) error {
		probe, err := e.newSession(cfg)
		if err != nil {
			return err
		}
		return probe.Close()
	}))

	dir := "."
	if sc.Artifacts != nil && sc.Artifacts.Dir != "" {
		dir = sc.Artifacts.Dir
	}
	health.RegisterCheck(monitoring.ArtifactDirHealthCheck(dir))

	health.RegisterCheck(monitoring.TargetHealthCheck(sc.TargetURL, cfg.Timeout))

	for sink, ping := range reporter.Pingers() {
		health.RegisterCheck(monitoring.ReportSinkHealthCheck(sink, ping))
	}

	return health
}

// retryConfigFor maps scenario retry settings onto the error service
// policy. MaxAttempts counts the first attempt, so the default of 1 means
// fail-fast.
func retryConfigFor(rs *scenario.RetrySettings) errors.RetryConfig {
	cfg := errors.RetryConfig{
		BaseDelay:     2 * time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      time.Minute,
	}
	if rs == nil {
		return cfg
	}
	if rs.MaxAttempts > 1 {
		cfg.MaxRetries = rs.MaxAttempts - 1
	}
	if rs.BaseDelay > 0 {
		cfg.BaseDelay = rs.BaseDelay.ToDuration()
	}
	if rs.BackoffFactor > 0 {
		cfg.BackoffFactor = rs.BackoffFactor
	}
	return cfg
}

func newRunResult(sc *scenario.Scenario) *types.RunResult {
	return &types.RunResult{
		ID:        types.NewRunID(),
		Scenario:  sc.Name,
		TargetURL: sc.TargetURL,
		Status:    types.RunRunning,
		StartedAt: time.Now(),
		Steps:     make([]types.StepResult, 0, len(sc.Steps)),
	}
}

// failRun marks the run failed with every step from index on recorded as
// skipped, so reports always carry the full step list.
func failRun(result *types.RunResult, steps []scenario.Step, from int, err error) {
	skipSteps(result, steps, from)
	result.Status = types.RunFailed
	result.FailureClass = errors.ClassOf(err)
	result.Error = err.Error()
}

func skipSteps(result *types.RunResult, steps []scenario.Step, from int) {
	for i := from; i < len(steps); i++ {
		result.Steps = append(result.Steps, types.StepResult{
			Index:  i,
			Name:   steps[i].Name,
			Type:   steps[i].Type,
			Status: types.StepSkipped,
		})
	}
}
