// internal/browser/types.go
package browser

import (
	"context"
	"time"

	"github.com/valpere/UIVerifier/internal/textmatch"
)

// Config defines browser session configuration
type Config struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	ExecPath       string        `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	ProxyURL       string        `yaml:"proxy_url,omitempty" json:"proxy_url,omitempty"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultConfig returns default browser configuration
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1280,
		ViewportHeight: 720,
		DisableImages:  false,
	}
}

// Driver defines the browser operations the verification engine needs
type Driver interface {
	// Navigate to a URL and wait for the document body to be ready
	Navigate(ctx context.Context, url string) error

	// ClickText clicks the first clickable element whose visible text
	// matches the caption under the given matching rules
	ClickText(ctx context.Context, text string, match textmatch.Options) error

	// Click clicks the first element matching a CSS selector
	Click(ctx context.Context, selector string) error

	// WaitText blocks until the page's visible text contains the fragment
	WaitText(ctx context.Context, text string, match textmatch.Options) error

	// WaitVisible blocks until an element matching the selector is visible
	WaitVisible(ctx context.Context, selector string) error

	// HTML returns the current page HTML
	HTML(ctx context.Context) (string, error)

	// Evaluate runs JavaScript and returns its result
	Evaluate(ctx context.Context, script string) (interface{}, error)

	// Screenshot captures the page as PNG bytes
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// PrintPDF renders the page to PDF bytes
	PrintPDF(ctx context.Context) ([]byte, error)

	// SetViewport sets the browser viewport size
	SetViewport(ctx context.Context, width, height int) error

	// Stats returns session statistics
	Stats() *Stats

	// Close shuts the browser down and releases the session
	Close() error
}

// Pool manages a pool of browser sessions
type Pool interface {
	// Get retrieves a session from the pool
	Get(ctx context.Context) (Driver, error)

	// Put returns a session to the pool
	Put(session Driver) error

	// Close closes all sessions in the pool
	Close() error

	// Size returns the current pool size
	Size() int
}

// Stats contains browser session statistics
type Stats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	ElementsClicked  int           `json:"elements_clicked"`
	WaitsSatisfied   int           `json:"waits_satisfied"`
	ScreenshotsTaken int           `json:"screenshots_taken"`
	PDFsRendered     int           `json:"pdfs_rendered"`
	Errors           int           `json:"errors"`
	TimeoutsOccurred int           `json:"timeouts_occurred"`
	JavaScriptErrors int           `json:"javascript_errors"`
}
