// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"

	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/textmatch"
)

// Session implements Driver using chromedp. It owns the exec allocator
// context and the browser context; Close releases both exactly once.
type Session struct {
	allocCtx          context.Context
	allocCancel       context.CancelFunc
	ctx               context.Context
	cancel            context.CancelFunc
	config            *Config
	stats             *Stats
	navigationSuccess bool
	navMu             sync.RWMutex
	closeOnce         sync.Once
}

// NewSession launches a browser and returns a live session. A browser that
// cannot be started is reported as a launch failure.
func NewSession(config *Config) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Set up Chrome options
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	// Add headless mode
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}

	// Add explicit Chrome binary path
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}

	// Add user data directory
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}

	// Add user agent
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	// Add proxy server
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	// Disable images for faster loading
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	// The allocator context must outlive the session; its cancel func is
	// kept and invoked by Close, not deferred here.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	session := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		stats:       &Stats{},
	}

	// Initialize navigation state with proper synchronization
	session.navMu.Lock()
	session.navigationSuccess = false
	session.navMu.Unlock()

	// The browser process starts on the first action, so launch failures
	// surface here rather than in NewExecAllocator.
	if err := session.initialize(); err != nil {
		session.Close()
		return nil, errors.NewLaunchError(err)
	}

	return session, nil
}

// initialize sets up the browser with initial configuration
func (s *Session) initialize() error {
	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(s.config.ViewportWidth), int64(s.config.ViewportHeight)),
	}

	// Small viewports get a mobile device profile
	if s.config.ViewportWidth > 0 && s.config.ViewportWidth < 768 {
		tasks = append(tasks, chromedp.Emulate(device.IPhone8))
	}

	return chromedp.Run(s.ctx, tasks...)
}

// opContext bounds a single browser operation with the configured timeout.
// Operations derive from the session context because chromedp actions must
// run against the context that owns the browser.
func (s *Session) opContext() (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(s.ctx, timeout)
}

// Navigate navigates to a URL and waits for page load
func (s *Session) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	opCtx, cancel := s.opContext()
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	loadTime := time.Since(start)

	if err != nil {
		s.stats.Errors++
		s.navMu.Lock()
		s.navigationSuccess = false
		s.navMu.Unlock()
		return errors.NewNavigationError(url, err)
	}

	// Update stats and state only after successful navigation
	s.navMu.Lock()
	s.navigationSuccess = true
	s.navMu.Unlock()
	s.stats.PagesLoaded++
	if s.stats.PagesLoaded == 1 {
		s.stats.AverageLoadTime = loadTime
	} else {
		s.stats.AverageLoadTime = (s.stats.AverageLoadTime + loadTime) / 2
	}

	return nil
}

// ClickText clicks the first clickable element whose visible text matches
// the caption. The click waits for the element to appear and become
// visible; a caption that never matches is an element-not-found failure.
func (s *Session) ClickText(ctx context.Context, text string, match textmatch.Options) error {
	xpath := textmatch.ButtonXPath(text, match)

	opCtx, cancel := s.opContext()
	defer cancel()

	err := chromedp.Run(opCtx, chromedp.Click(xpath, chromedp.BySearch))
	if err != nil {
		s.stats.Errors++
		return errors.NewElementError(text, err)
	}

	s.stats.ElementsClicked++
	return nil
}

// Click clicks the first element matching a CSS selector
func (s *Session) Click(ctx context.Context, selector string) error {
	opCtx, cancel := s.opContext()
	defer cancel()

	err := chromedp.Run(opCtx, chromedp.Click(selector))
	if err != nil {
		s.stats.Errors++
		return errors.NewElementError(selector, err)
	}

	s.stats.ElementsClicked++
	return nil
}

// WaitText blocks until the page's visible text contains the fragment,
// polling inside the browser so DOM rewrites between polls are seen.
func (s *Session) WaitText(ctx context.Context, text string, match textmatch.Options) error {
	predicate := textmatch.JSTextPredicate(text, match)

	opCtx, cancel := s.opContext()
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.PollFunction(predicate, nil, chromedp.WithPollingInterval(100*time.Millisecond)),
	)
	if err != nil {
		s.stats.TimeoutsOccurred++
		return errors.NewWaitError(text, err)
	}

	s.stats.WaitsSatisfied++
	return nil
}

// WaitVisible blocks until an element matching the selector is visible
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	opCtx, cancel := s.opContext()
	defer cancel()

	err := chromedp.Run(opCtx, chromedp.WaitVisible(selector))
	if err != nil {
		s.stats.TimeoutsOccurred++
		return errors.NewWaitError(selector, err)
	}

	s.stats.WaitsSatisfied++
	return nil
}

// HTML returns the current page HTML
func (s *Session) HTML(ctx context.Context) (string, error) {
	s.navMu.RLock()
	navSuccess := s.navigationSuccess
	s.navMu.RUnlock()

	if !navSuccess {
		return "", fmt.Errorf("cannot extract HTML: navigation has not completed successfully")
	}

	opCtx, cancel := s.opContext()
	defer cancel()

	var html string
	err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html))
	if err != nil {
		s.stats.Errors++
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// Evaluate runs JavaScript code and returns its result. Scripts that
// resolve to undefined or null return a nil result without error.
func (s *Session) Evaluate(ctx context.Context, script string) (interface{}, error) {
	opCtx, cancel := s.opContext()
	defer cancel()

	var result interface{}
	err := chromedp.Run(opCtx, chromedp.Evaluate(script, &result))
	if err == chromedp.ErrJSUndefined || err == chromedp.ErrJSNull {
		return nil, nil
	}
	if err != nil {
		s.stats.JavaScriptErrors++
		return nil, fmt.Errorf("script execution failed: %w", err)
	}
	return result, nil
}

// Screenshot captures the page as PNG bytes. The default capture is the
// viewport; fullPage captures the entire scrollable page.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	opCtx, cancel := s.opContext()
	defer cancel()

	var buf []byte
	var action chromedp.Action
	if fullPage {
		// Quality 100 selects lossless PNG encoding
		action = chromedp.FullScreenshot(&buf, 100)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}

	err := chromedp.Run(opCtx, action)
	if err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	s.stats.ScreenshotsTaken++
	return buf, nil
}

// PrintPDF renders the current page to PDF bytes
func (s *Session) PrintPDF(ctx context.Context) ([]byte, error) {
	opCtx, cancel := s.opContext()
	defer cancel()

	var buf []byte
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		s.stats.Errors++
		return nil, fmt.Errorf("pdf rendering failed: %w", err)
	}

	s.stats.PDFsRendered++
	return buf, nil
}

// SetViewport sets the browser viewport size
func (s *Session) SetViewport(ctx context.Context, width, height int) error {
	err := chromedp.Run(s.ctx, chromedp.EmulateViewport(int64(width), int64(height)))
	if err != nil {
		return fmt.Errorf("viewport change failed: %w", err)
	}

	s.config.ViewportWidth = width
	s.config.ViewportHeight = height
	return nil
}

// Stats returns session statistics
func (s *Session) Stats() *Stats {
	return s.stats
}

// Close shuts the browser down. Safe to call multiple times and from a
// deferred teardown on any exit path.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
	})
	return nil
}
