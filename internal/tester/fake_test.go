package tester

import (
	"errors"
	"sync"
	"time"
)

// fakePage is a scripted PageDriver for exercising the pipeline without a
// browser.
type fakePage struct {
	mu      sync.Mutex
	console []ConsoleEntry
	network []NetworkEntry

	navigateErr map[string]error // by URL; missing key navigates fine
	waitErr     map[string]error // by selector, for WaitReady
	visibleErr  map[string]error // by selector, for WaitVisible
	clickErr    map[string]error // by selector
	textValues  map[string]string
	filled      []string

	content    string
	contentErr error
	screenshot []byte

	// delay simulates page work so concurrency is observable.
	delay time.Duration

	closed bool
}

func newFakePage() *fakePage {
	return &fakePage{
		navigateErr: map[string]error{},
		waitErr:     map[string]error{},
		visibleErr:  map[string]error{},
		clickErr:    map[string]error{},
		textValues:  map[string]string{},
		content:     "<html><body>ok</body></html>",
		screenshot:  []byte("png"),
	}
}

func (p *fakePage) Navigate(url string, _ time.Duration) error {
	return p.navigateErr[url]
}

func (p *fakePage) WaitReady(selector string, _ time.Duration) error {
	return p.waitErr[selector]
}

func (p *fakePage) WaitVisible(selector string, _ time.Duration) error {
	return p.visibleErr[selector]
}

func (p *fakePage) Click(selector string, _ time.Duration) error {
	if err, ok := p.clickErr[selector]; ok {
		return err
	}
	return nil
}

func (p *fakePage) Text(selector string, _ time.Duration) (string, error) {
	if text, ok := p.textValues[selector]; ok {
		return text, nil
	}
	return "", errors.New("no such element")
}

func (p *fakePage) FillFirstInput(value string, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filled = append(p.filled, value)
	return true, nil
}

func (p *fakePage) PressEnter() error {
	return nil
}

func (p *fakePage) Content() (string, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.content, p.contentErr
}

func (p *fakePage) Screenshot() ([]byte, error) {
	return p.screenshot, nil
}

func (p *fakePage) AppendConsole(entry ConsoleEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = append(p.console, entry)
}

func (p *fakePage) ConsoleLog() []ConsoleEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConsoleEntry, len(p.console))
	copy(out, p.console)
	return out
}

func (p *fakePage) NetworkLog() []NetworkEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NetworkEntry, len(p.network))
	copy(out, p.network)
	return out
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// consoleTypes extracts the entry types in order, for assertions.
func consoleTypes(entries []ConsoleEntry) []string {
	types := make([]string, len(entries))
	for i, e := range entries {
		types[i] = e.Type
	}
	return types
}

// fakeSession dispenses fake pages and tracks usage.
type fakeSession struct {
	mu sync.Mutex

	startErr   error
	newPageErr error

	// queue, if non-empty, dispenses these pages in order. Only suitable
	// for strictly sequential callers; orchestrator goroutines race on
	// page acquisition, so concurrent runs use newPage instead.
	queue []*fakePage

	// newPage, if set, builds every dispensed page. Scripting each page
	// identically keeps concurrent runs deterministic: behavior keys off
	// the URLs and selectors a test touches, not dispatch order.
	newPage func() *fakePage

	pageDelay time.Duration

	started     bool
	shutdowns   int
	pagesOpened int
	open        int
	maxOpen     int
	dispensed   []*fakePage
}

func (s *fakeSession) EnsureStarted() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) NewPage(vp Viewport) (PageDriver, error) {
	if s.newPageErr != nil {
		return nil, s.newPageErr
	}

	s.mu.Lock()
	var page *fakePage
	switch {
	case len(s.queue) > 0:
		page = s.queue[0]
		s.queue = s.queue[1:]
	case s.newPage != nil:
		page = s.newPage()
	default:
		page = newFakePage()
		page.delay = s.pageDelay
	}
	s.pagesOpened++
	s.open++
	if s.open > s.maxOpen {
		s.maxOpen = s.open
	}
	s.dispensed = append(s.dispensed, page)
	s.mu.Unlock()

	return &trackedPage{fakePage: page, session: s}, nil
}

func (s *fakeSession) Shutdown() error {
	s.mu.Lock()
	s.shutdowns++
	s.started = false
	s.mu.Unlock()
	return nil
}

// trackedPage decrements the session's open-page count on close.
type trackedPage struct {
	*fakePage
	session *fakeSession
	once    sync.Once
}

func (t *trackedPage) Close() error {
	t.once.Do(func() {
		t.session.mu.Lock()
		t.session.open--
		t.session.mu.Unlock()
	})
	return t.fakePage.Close()
}
