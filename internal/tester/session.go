package tester

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// Session is the single shared browser resource a batch runs inside. The
// only concurrent mutation callers perform against it is opening pages,
// which the underlying browser supports natively.
type Session interface {
	// EnsureStarted launches the browser if it is not already running.
	// Idempotent.
	EnsureStarted() error
	// NewPage opens a fresh, isolated page sized to vp, lazily starting
	// the session if needed.
	NewPage(vp Viewport) (PageDriver, error)
	// Shutdown closes the shared browser. Idempotent.
	Shutdown() error
}

// ChromeSession owns one headless Chrome instance and the browsing context
// every test tab is opened in.
type ChromeSession struct {
	mu sync.Mutex

	headless bool
	started  bool

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeSession creates a session manager. The browser is not launched
// until EnsureStarted or the first NewPage.
func NewChromeSession(headless bool) *ChromeSession {
	return &ChromeSession{headless: headless}
}

// findChrome attempts to find a Chrome executable in common locations.
func findChrome() (string, error) {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "linux":
		paths = []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, path := range paths {
		if runtime.GOOS == "darwin" {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		} else if _, err := exec.LookPath(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chrome"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("Chrome browser not found. Please install Chrome or Chromium")
}

// EnsureStarted launches Chrome and the shared browsing context if they do
// not exist yet. Safe to call repeatedly.
func (s *ChromeSession) EnsureStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureStartedLocked()
}

func (s *ChromeSession) ensureStartedLocked() error {
	if s.started {
		return nil
	}

	chromePath, err := findChrome()
	if err != nil {
		return err
	}
	logging.Info("Using Chrome from: %s", chromePath)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("use-mock-keychain", true),
	)
	if !s.headless {
		logging.Info("Chrome will run in visible mode (headless=false)")
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logging.Debug("[chrome] "+format, v...)
		}),
	)

	// Starting the browser on the long-lived context; a timeout context
	// here would tear down the whole instance when it expired.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to start Chrome: %w", err)
	}

	s.allocCtx = allocCtx
	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.started = true
	logging.Info("browser session started")
	return nil
}

// NewPage opens a new tab scoped to the shared browsing context, sized to
// vp, with console and network capture attached before any step runs.
func (s *ChromeSession) NewPage(vp Viewport) (PageDriver, error) {
	s.mu.Lock()
	if err := s.ensureStartedLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	browserCtx := s.browserCtx
	s.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	page := &chromePage{ctx: tabCtx, cancel: tabCancel}
	chromedp.ListenTarget(tabCtx, page.handleEvent)

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)),
	); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return page, nil
}

// Shutdown closes the shared context and the browser. Tolerates an already
// stopped session and never fails the caller on teardown races.
func (s *ChromeSession) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if err := chromedp.Cancel(s.browserCtx); err != nil {
		logging.Debug("browser close: %v", err)
	}
	s.browserCancel()
	s.allocCancel()

	s.browserCtx = nil
	s.browserCancel = nil
	s.allocCtx = nil
	s.allocCancel = nil
	s.started = false
	logging.Info("browser session stopped")
	return nil
}
