// internal/scenario/types.go

// Package scenario provides the YAML configuration layer for verification
// scenarios. A scenario names a target application, the ordered steps that
// drive it, and the browser, artifact, report, and monitoring settings the
// run should use.
package scenario

import (
	"github.com/valpere/UIVerifier/internal/browser"
	"github.com/valpere/UIVerifier/internal/textmatch"
	"github.com/valpere/UIVerifier/pkg/types"
)

// Scenario is the root configuration for one verification run.
type Scenario struct {
	// Name identifies this scenario in logs, reports, and metrics
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable information about the scenario
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// TargetURL is the application under verification
	TargetURL string `yaml:"target_url" json:"target_url"`

	// Steps are executed strictly in order; the first failure ends the run
	Steps []Step `yaml:"steps" json:"steps"`

	// Match sets scenario-wide text matching rules; steps may override
	Match *MatchSettings `yaml:"match,omitempty" json:"match,omitempty"`

	// Browser configures the Chrome session
	Browser *BrowserSettings `yaml:"browser,omitempty" json:"browser,omitempty"`

	// Artifacts configures where screenshots and PDFs are written
	Artifacts *ArtifactSettings `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`

	// Reports lists the sinks run results are delivered to
	Reports []ReportSettings `yaml:"reports,omitempty" json:"reports,omitempty"`

	// Monitoring configures the optional metrics and status server
	Monitoring *MonitoringSettings `yaml:"monitoring,omitempty" json:"monitoring,omitempty"`

	// Repeat runs the scenario multiple times with spacing between runs
	Repeat *RepeatSettings `yaml:"repeat,omitempty" json:"repeat,omitempty"`

	// Retry re-runs a failed scenario when the failure is retryable
	Retry *RetrySettings `yaml:"retry,omitempty" json:"retry,omitempty"`

	// LogLevel sets the logging verbosity for the run (debug/info/warn/error)
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// Step describes one action in a scenario. Which fields apply depends on
// the step type:
//
//	navigate        url (empty means the scenario target_url)
//	click_text      text, match
//	click           selector
//	wait_text       text, match
//	wait_element    selector
//	assert_text     text, selector (optional scope), match
//	assert_element  selector, count (0 means at least one)
//	screenshot      path, full_page
//	pdf             path
//	eval            script
//	sleep           duration
type Step struct {
	// Type selects the action
	Type types.StepType `yaml:"type" json:"type"`

	// Name labels the step in results; defaults to "<type>_<position>"
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// URL for navigate steps
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Text is the visible text to click, wait for, or assert
	Text string `yaml:"text,omitempty" json:"text,omitempty"`

	// Selector is a CSS selector for element-addressed steps
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`

	// Script is JavaScript source for eval steps
	Script string `yaml:"script,omitempty" json:"script,omitempty"`

	// Path is the artifact destination for screenshot and pdf steps
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Duration is the pause length for sleep steps
	Duration types.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`

	// FullPage captures the entire scrollable page instead of the viewport
	FullPage bool `yaml:"full_page,omitempty" json:"full_page,omitempty"`

	// Count is the expected number of matches for assert_element
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Match overrides the scenario-wide text matching rules for this step
	Match *MatchSettings `yaml:"match,omitempty" json:"match,omitempty"`
}

// MatchSettings controls how expected text is compared against page text.
// Collapse and normalize default to on; pointers distinguish an explicit
// false from an omitted key.
type MatchSettings struct {
	CaseInsensitive    bool  `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	CollapseWhitespace *bool `yaml:"collapse_whitespace,omitempty" json:"collapse_whitespace,omitempty"`
	UnicodeNormalize   *bool `yaml:"unicode_normalize,omitempty" json:"unicode_normalize,omitempty"`
}

// ToOptions resolves the settings into matching options, applying defaults
// for omitted keys. Safe to call on a nil receiver.
func (m *MatchSettings) ToOptions() textmatch.Options {
	opts := textmatch.DefaultOptions()
	if m == nil {
		return opts
	}

	opts.CaseInsensitive = m.CaseInsensitive
	if m.CollapseWhitespace != nil {
		opts.CollapseWhitespace = *m.CollapseWhitespace
	}
	if m.UnicodeNormalize != nil {
		opts.UnicodeNormalize = *m.UnicodeNormalize
	}
	return opts
}

// MatchFor resolves the matching rules for a step, preferring the step's
// own settings over the scenario-wide ones.
func (s *Scenario) MatchFor(step Step) textmatch.Options {
	if step.Match != nil {
		return step.Match.ToOptions()
	}
	return s.Match.ToOptions()
}

// BrowserSettings configures the Chrome session for a scenario.
type BrowserSettings struct {
	// Headless runs Chrome without a visible window (default true)
	Headless *bool `yaml:"headless,omitempty" json:"headless,omitempty"`

	// ChromePath points at a specific Chrome binary
	ChromePath string `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`

	// UserAgent overrides the browser user agent
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// ProxyURL routes browser traffic through a proxy
	ProxyURL string `yaml:"proxy_url,omitempty" json:"proxy_url,omitempty"`

	// UserDataDir is the Chrome profile directory
	UserDataDir string `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`

	// ViewportWidth and ViewportHeight size the page (default 1280x720)
	ViewportWidth  int `yaml:"viewport_width,omitempty" json:"viewport_width,omitempty"`
	ViewportHeight int `yaml:"viewport_height,omitempty" json:"viewport_height,omitempty"`

	// Timeout bounds each browser operation, including waits (default 30s)
	Timeout types.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// DisableImages skips image loading for faster page loads
	DisableImages bool `yaml:"disable_images,omitempty" json:"disable_images,omitempty"`
}

// ToConfig resolves the settings into a browser configuration, applying
// defaults for omitted keys. Safe to call on a nil receiver.
func (b *BrowserSettings) ToConfig() *browser.Config {
	cfg := browser.DefaultConfig()
	if b == nil {
		return cfg
	}

	if b.Headless != nil {
		cfg.Headless = *b.Headless
	}
	if b.ChromePath != "" {
		cfg.ExecPath = b.ChromePath
	}
	if b.UserAgent != "" {
		cfg.UserAgent = b.UserAgent
	}
	if b.ProxyURL != "" {
		cfg.ProxyURL = b.ProxyURL
	}
	if b.UserDataDir != "" {
		cfg.UserDataDir = b.UserDataDir
	}
	if b.ViewportWidth > 0 {
		cfg.ViewportWidth = b.ViewportWidth
	}
	if b.ViewportHeight > 0 {
		cfg.ViewportHeight = b.ViewportHeight
	}
	if b.Timeout > 0 {
		cfg.Timeout = b.Timeout.ToDuration()
	}
	cfg.DisableImages = b.DisableImages

	return cfg
}

// ArtifactSettings controls where and how evidence files are written.
type ArtifactSettings struct {
	// Dir is prefixed to relative artifact paths
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`

	// CreateDirs creates missing parent directories before writing.
	// Off by default: a missing directory fails the run.
	CreateDirs bool `yaml:"create_dirs,omitempty" json:"create_dirs,omitempty"`

	// Overwrite replaces existing artifacts (default true)
	Overwrite *bool `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
}

// ShouldOverwrite reports whether existing artifacts may be replaced.
// Safe to call on a nil receiver.
func (a *ArtifactSettings) ShouldOverwrite() bool {
	if a == nil || a.Overwrite == nil {
		return true
	}
	return *a.Overwrite
}

// ReportSettings configures one result sink.
type ReportSettings struct {
	// Format selects the sink: json, yaml, csv, excel, sqlite, postgres,
	// mysql, mongodb, or webhook
	Format string `yaml:"format" json:"format"`

	// Path is the output file for file-backed formats; empty means stdout
	// for json and yaml
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// DSN is the connection string for database formats
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// URL is the collector endpoint for the webhook format
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Table overrides the table name for SQL formats
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Database and Collection address the mongodb namespace
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// Headers are added to webhook requests
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// AuthToken is sent as a bearer token on webhook requests
	AuthToken string `yaml:"auth_token,omitempty" json:"auth_token,omitempty"`

	// Timeout bounds sink writes (default 30s)
	Timeout types.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MonitoringSettings configures the optional metrics and status server.
type MonitoringSettings struct {
	// Enabled starts the HTTP server for the duration of the run
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// ListenAddress is the host:port to serve on (default ":9090")
	ListenAddress string `yaml:"listen_address,omitempty" json:"listen_address,omitempty"`
}

// RepeatSettings runs the scenario multiple times.
type RepeatSettings struct {
	// Count is the number of runs (default 1)
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Interval is the minimum spacing between run starts
	Interval types.Duration `yaml:"interval,omitempty" json:"interval,omitempty"`

	// ReuseSession keeps one browser session alive across runs instead of
	// launching a fresh browser per run
	ReuseSession bool `yaml:"reuse_session,omitempty" json:"reuse_session,omitempty"`
}

// RetrySettings re-runs a failed scenario.
type RetrySettings struct {
	// MaxAttempts is the total number of attempts (default 1, fail-fast)
	MaxAttempts int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`

	// BaseDelay is the wait before the first retry (default 2s)
	BaseDelay types.Duration `yaml:"base_delay,omitempty" json:"base_delay,omitempty"`

	// BackoffFactor multiplies the delay after each failed attempt
	// (default 2.0)
	BackoffFactor float64 `yaml:"backoff_factor,omitempty" json:"backoff_factor,omitempty"`
}
