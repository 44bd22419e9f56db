// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/types"
)

const defaultRecentRuns = 100

// ResultStore keeps the most recent run results in memory for the status
// page and the results API.
type ResultStore struct {
	mu      sync.RWMutex
	results []*types.RunResult
	max     int
}

// NewResultStore creates a store that retains up to max results
func NewResultStore(max int) *ResultStore {
	if max <= 0 {
		max = defaultRecentRuns
	}
	return &ResultStore{max: max}
}

// Add appends a result, evicting the oldest beyond the retention limit
func (s *ResultStore) Add(result *types.RunResult) {
	if result == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if len(s.results) > s.max {
		s.results = s.results[len(s.results)-s.max:]
	}
}

// Recent returns the stored results, newest first
func (s *ResultStore) Recent() []*types.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.RunResult, len(s.results))
	for i, r := range s.results {
		out[len(s.results)-1-i] = r
	}
	return out
}

// ServerConfig configures the monitoring HTTP server
type ServerConfig struct {
	ListenAddress string
	Title         string
	Version       string
}

// Server exposes metrics, health, and recent results over HTTP for the
// duration of a verification session.
type Server struct {
	metrics    *Metrics
	health     *HealthManager
	store      *ResultStore
	config     ServerConfig
	tmpl       *template.Template
	httpServer *http.Server
	listener   net.Listener
	logger     utils.Logger
}

// NewServer wires the monitoring endpoints together
func NewServer(metrics *Metrics, health *HealthManager, store *ResultStore, config ServerConfig) *Server {
	if config.ListenAddress == "" {
		config.ListenAddress = ":9090"
	}
	if config.Title == "" {
		config.Title = "UIVerifier Monitoring"
	}

	return &Server{
		metrics: metrics,
		health:  health,
		store:   store,
		config:  config,
		tmpl:    template.Must(template.New("status").Parse(statusPageHTML)),
		logger:  utils.NewComponentLogger("monitoring"),
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.health.HealthHandler()).Methods("GET")
	r.HandleFunc("/readyz", s.health.ReadinessHandler()).Methods("GET")
	r.HandleFunc("/api/results", s.resultsHandler).Methods("GET")
	r.HandleFunc("/", s.statusHandler).Methods("GET")

	return r
}

// Start binds the listen address and serves in the background. Binding
// errors surface here; serve errors after startup are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("monitoring server error: %v", err)
		}
	}()

	s.logger.Infof("monitoring server listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.ListenAddress
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// resultsHandler serves recent runs as JSON, newest first
func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.Recent())
}

// statusPageData feeds the status template
type statusPageData struct {
	Title       string
	Version     string
	Health      SystemHealth
	Results     []*types.RunResult
	GeneratedAt time.Time
}

// statusHandler serves the compact HTML status page
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	data := statusPageData{
		Title:       s.config.Title,
		Version:     s.config.Version,
		Health:      s.health.GetHealth(),
		Results:     s.store.Recent(),
		GeneratedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const statusPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="15">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 6px 12px; text-align: left; }
th { background: #f0f0f0; }
.meta { color: #666; }
.healthy, .passed { color: #28a745; font-weight: bold; }
.unhealthy, .failed { color: #dc3545; font-weight: bold; }
.degraded, .cancelled { color: #ffc107; font-weight: bold; }
.unknown { color: #6c757d; font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{if .Version}}version {{.Version}} &middot; {{end}}uptime {{.Health.Uptime}} &middot; generated {{.GeneratedAt.Format "15:04:05"}}</p>

<h2>Health: <span class="{{.Health.Status}}">{{.Health.Status}}</span></h2>
{{if .Health.Checks}}
<table>
<tr><th>Check</th><th>Status</th><th>Message</th></tr>
{{range $name, $check := .Health.Checks}}
<tr><td>{{$name}}</td><td class="{{$check.Status}}">{{$check.Status}}</td><td>{{$check.Message}}{{if $check.Error}} ({{$check.Error}}){{end}}</td></tr>
{{end}}
</table>
{{end}}

<h2>Recent runs</h2>
{{if .Results}}
<table>
<tr><th>ID</th><th>Scenario</th><th>Status</th><th>Steps</th><th>Duration</th><th>Error</th></tr>
{{range .Results}}
<tr><td>{{.ID}}</td><td>{{.Scenario}}</td><td class="{{.Status}}">{{.Status}}</td><td>{{len .Steps}}</td><td>{{.Duration}}</td><td>{{.FirstError}}</td></tr>
{{end}}
</table>
{{else}}
<p>No runs recorded yet.</p>
{{end}}

<p><a href="/metrics">metrics</a> &middot; <a href="/healthz">healthz</a> &middot; <a href="/readyz">readyz</a> &middot; <a href="/api/results">results api</a></p>
</body>
</html>
`
