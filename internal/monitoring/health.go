// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheck represents a single component check
type HealthCheck struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	LastCheck time.Time              `json:"last_check"`
	Duration  time.Duration          `json:"duration"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Critical  bool                   `json:"critical"`

	CheckFunc func(ctx context.Context) HealthCheckResult `json:"-"`
	Timeout   time.Duration                               `json:"-"`
}

// HealthCheckResult represents the outcome of one check execution
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    error                  `json:"-"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HealthConfig configures the health manager
type HealthConfig struct {
	CheckInterval  time.Duration `json:"check_interval"`
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// HealthManager runs registered component checks on an interval and
// aggregates them into an overall status.
type HealthManager struct {
	checks      map[string]*HealthCheck
	checksMutex sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	stopOnce    sync.Once
	config      HealthConfig
}

// SystemHealth is the aggregate health document served over HTTP
type SystemHealth struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    time.Duration          `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
	Summary   HealthSummary          `json:"summary"`
	System    SystemMetrics          `json:"system"`
}

// HealthSummary counts checks by status
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Degraded  int `json:"degraded"`
	Unknown   int `json:"unknown"`
	Critical  int `json:"critical"`
}

// SystemMetrics reports process-level resource usage
type SystemMetrics struct {
	Memory         MemoryMetrics `json:"memory"`
	GoroutineCount int           `json:"goroutine_count"`
	Uptime         time.Duration `json:"uptime"`
}

// MemoryMetrics reports Go heap usage
type MemoryMetrics struct {
	Allocated  uint64 `json:"allocated_bytes"`
	TotalAlloc uint64 `json:"total_alloc_bytes"`
	System     uint64 `json:"system_bytes"`
	NumGC      uint32 `json:"num_gc"`
}

var startTime = time.Now()

// NewHealthManager creates a health manager with the given configuration
func NewHealthManager(config HealthConfig) *HealthManager {
	if config.CheckInterval == 0 {
		config.CheckInterval = 30 * time.Second
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 10 * time.Second
	}

	return &HealthManager{
		checks: make(map[string]*HealthCheck),
		stopCh: make(chan struct{}),
		config: config,
	}
}

// RegisterCheck registers a component check
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = hm.config.DefaultTimeout
	}
	if check.Status == "" {
		check.Status = HealthStatusUnknown
	}

	hm.checksMutex.Lock()
	hm.checks[check.Name] = check
	hm.checksMutex.Unlock()
}

// RemoveCheck removes a component check by name
func (hm *HealthManager) RemoveCheck(name string) {
	hm.checksMutex.Lock()
	delete(hm.checks, name)
	hm.checksMutex.Unlock()
}

// Start runs all checks immediately and then on the configured interval
// until the context is cancelled or Stop is called
func (hm *HealthManager) Start(ctx context.Context) {
	hm.ticker = time.NewTicker(hm.config.CheckInterval)

	go func() {
		hm.RunChecks(ctx)

		for {
			select {
			case <-hm.ticker.C:
				hm.RunChecks(ctx)
			case <-hm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the periodic check loop
func (hm *HealthManager) Stop() {
	if hm.ticker != nil {
		hm.ticker.Stop()
	}
	hm.stopOnce.Do(func() {
		close(hm.stopCh)
	})
}

// RunChecks executes every registered check concurrently and waits for
// completion
func (hm *HealthManager) RunChecks(ctx context.Context) {
	hm.checksMutex.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		checks = append(checks, check)
	}
	hm.checksMutex.RUnlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c *HealthCheck) {
			defer wg.Done()
			hm.runCheck(ctx, c)
		}(check)
	}
	wg.Wait()
}

// runCheck executes one check with its timeout and records the outcome
func (hm *HealthManager) runCheck(ctx context.Context, check *HealthCheck) {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	var result HealthCheckResult
	if check.CheckFunc != nil {
		result = check.CheckFunc(checkCtx)
	} else {
		result = HealthCheckResult{
			Status:  HealthStatusUnknown,
			Message: "no check function defined",
		}
	}

	hm.checksMutex.Lock()
	check.LastCheck = start
	check.Duration = time.Since(start)
	check.Status = result.Status
	check.Message = result.Message
	if result.Error != nil {
		check.Error = result.Error.Error()
	} else {
		check.Error = ""
	}
	if result.Metadata != nil {
		check.Metadata = result.Metadata
	}
	hm.checksMutex.Unlock()
}

// GetHealth aggregates every check into the overall SystemHealth
func (hm *HealthManager) GetHealth() SystemHealth {
	hm.checksMutex.RLock()
	defer hm.checksMutex.RUnlock()

	health := SystemHealth{
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime),
		System:    getSystemMetrics(),
		Checks:    make(map[string]HealthCheck, len(hm.checks)),
	}

	summary := HealthSummary{}
	overallStatus := HealthStatusHealthy

	for name, check := range hm.checks {
		health.Checks[name] = *check
		summary.Total++

		switch check.Status {
		case HealthStatusHealthy:
			summary.Healthy++
		case HealthStatusUnhealthy:
			summary.Unhealthy++
			if check.Critical {
				overallStatus = HealthStatusUnhealthy
			} else if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		case HealthStatusDegraded:
			summary.Degraded++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		case HealthStatusUnknown:
			summary.Unknown++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}

		if check.Critical {
			summary.Critical++
		}
	}

	health.Status = overallStatus
	health.Summary = summary

	return health
}

// GetReadiness reports whether new runs should be started. Degraded still
// counts as ready; only an unhealthy aggregate blocks readiness.
func (hm *HealthManager) GetReadiness() SystemHealth {
	health := hm.GetHealth()
	if health.Status != HealthStatusUnhealthy {
		health.Status = HealthStatusHealthy
	}
	return health
}

// getSystemMetrics snapshots process resource usage
func getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Memory: MemoryMetrics{
			Allocated:  m.Alloc,
			TotalAlloc: m.TotalAlloc,
			System:     m.Sys,
			NumGC:      m.NumGC,
		},
		GoroutineCount: runtime.NumGoroutine(),
		Uptime:         time.Since(startTime),
	}
}

// HealthHandler serves the full health document
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

// ReadinessHandler serves the readiness document
func (hm *HealthManager) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetReadiness()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

// BrowserHealthCheck verifies that a browser session can be started. The
// probe is supplied by the runner so this package stays free of chromedp.
func BrowserHealthCheck(probe func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     "browser",
		Critical: true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if err := probe(ctx); err != nil {
				return HealthCheckResult{
					Status:  HealthStatusUnhealthy,
					Message: "browser launch failed",
					Error:   err,
				}
			}
			return HealthCheckResult{
				Status:  HealthStatusHealthy,
				Message: "browser launchable",
			}
		},
	}
}

// ArtifactDirHealthCheck verifies that the artifact directory accepts
// writes by creating and removing a probe file
func ArtifactDirHealthCheck(dir string) *HealthCheck {
	return &HealthCheck{
		Name:     "artifact_dir",
		Critical: true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			metadata := map[string]interface{}{"dir": dir}

			probe, err := os.CreateTemp(dir, ".uiverifier-probe-*")
			if err != nil {
				return HealthCheckResult{
					Status:   HealthStatusUnhealthy,
					Message:  "artifact directory is not writable",
					Error:    err,
					Metadata: metadata,
				}
			}
			probe.Close()
			os.Remove(probe.Name())

			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  "artifact directory writable",
				Metadata: metadata,
			}
		},
	}
}

// ReportSinkHealthCheck verifies that a report sink is reachable using
// the sink's own ping function. Sinks are optional, so a failing sink
// degrades rather than fails the aggregate.
func ReportSinkHealthCheck(sink string, ping func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     "report_" + sink,
		Critical: false,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if err := ping(ctx); err != nil {
				return HealthCheckResult{
					Status:  HealthStatusUnhealthy,
					Message: fmt.Sprintf("report sink %s unreachable", sink),
					Error:   err,
				}
			}
			return HealthCheckResult{
				Status:  HealthStatusHealthy,
				Message: fmt.Sprintf("report sink %s reachable", sink),
			}
		},
	}
}

// TargetHealthCheck probes the verification target with a GET request
func TargetHealthCheck(url string, timeout time.Duration) *HealthCheck {
	return &HealthCheck{
		Name:     "target",
		Critical: false,
		Timeout:  timeout,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			metadata := map[string]interface{}{"url": url}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return HealthCheckResult{
					Status:   HealthStatusUnhealthy,
					Message:  "failed to create request",
					Error:    err,
					Metadata: metadata,
				}
			}

			start := time.Now()
			resp, err := http.DefaultClient.Do(req)
			metadata["response_time_ms"] = time.Since(start).Milliseconds()

			if err != nil {
				return HealthCheckResult{
					Status:   HealthStatusUnhealthy,
					Message:  "target unreachable",
					Error:    err,
					Metadata: metadata,
				}
			}
			defer resp.Body.Close()

			metadata["status_code"] = resp.StatusCode
			if resp.StatusCode >= 200 && resp.StatusCode < 400 {
				return HealthCheckResult{
					Status:   HealthStatusHealthy,
					Message:  fmt.Sprintf("target responded (%d)", resp.StatusCode),
					Metadata: metadata,
				}
			}

			return HealthCheckResult{
				Status:   HealthStatusUnhealthy,
				Message:  fmt.Sprintf("target responded with %d", resp.StatusCode),
				Metadata: metadata,
			}
		},
	}
}
