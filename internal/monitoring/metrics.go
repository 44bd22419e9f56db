// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "uiverifier"

// Metrics holds the Prometheus instruments for verification runs. Each
// instance carries its own registry so repeated construction (tests,
// embedded use) never collides on metric names.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	stepsTotal      *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	browserLaunches prometheus.Counter
	artifactBytes   prometheus.Counter
	runsInFlight    prometheus.Gauge
}

// NewMetrics creates the metric instruments and registers them together
// with the Go and process collectors
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of verification runs by terminal status",
			},
			[]string{"scenario", "status"},
		),

		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "steps_total",
				Help:      "Total number of executed scenario steps",
			},
			[]string{"type", "status"},
		),

		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "step_duration_seconds",
				Help:      "Scenario step execution duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"type"},
		),

		browserLaunches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "browser_launches_total",
				Help:      "Total number of browser sessions launched",
			},
		),

		artifactBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "artifact_bytes_total",
				Help:      "Total bytes of verification artifacts written",
			},
		),

		runsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "runs_in_flight",
				Help:      "Number of verification runs currently executing",
			},
		),
	}
}

// RunStarted marks a run as in flight
func (m *Metrics) RunStarted() {
	m.runsInFlight.Inc()
}

// RunFinished records a completed run
func (m *Metrics) RunFinished(scenario, status string) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(scenario, status).Inc()
}

// RecordStep records one executed step
func (m *Metrics) RecordStep(stepType, status string, duration time.Duration) {
	m.stepsTotal.WithLabelValues(stepType, status).Inc()
	m.stepDuration.WithLabelValues(stepType).Observe(duration.Seconds())
}

// RecordBrowserLaunch counts a browser session start
func (m *Metrics) RecordBrowserLaunch() {
	m.browserLaunches.Inc()
}

// RecordArtifact counts artifact bytes written to disk
func (m *Metrics) RecordArtifact(bytes int64) {
	m.artifactBytes.Add(float64(bytes))
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
