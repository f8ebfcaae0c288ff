package tester

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// PageDriver is the surface the step interpreter drives. It is implemented
// by chromePage over a real browser tab and by fakes in tests. A page is
// exclusively owned by the test run that opened it until Close.
type PageDriver interface {
	Navigate(url string, timeout time.Duration) error
	WaitReady(selector string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	Text(selector string, timeout time.Duration) (string, error)
	FillFirstInput(value string, timeout time.Duration) (bool, error)
	PressEnter() error
	Content() (string, error)
	Screenshot() ([]byte, error)

	AppendConsole(entry ConsoleEntry)
	ConsoleLog() []ConsoleEntry
	NetworkLog() []NetworkEntry

	Close() error
}

// chromePage is one isolated browser tab inside the shared session.
// Console and network events arrive on chromedp's event goroutine, so the
// log slices are mutex guarded.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	console []ConsoleEntry
	network []NetworkEntry
}

// fillFirstInputJS fills the first text-like input on the page, firing the
// events frameworks listen for, and reports whether a target existed.
const fillFirstInputJS = `(() => {
	const input = document.querySelector("input[type='text'], input[type='number'], textarea");
	if (!input) {
		return false;
	}
	input.focus();
	input.value = %s;
	input.dispatchEvent(new Event('input', { bubbles: true }));
	input.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`

func (p *chromePage) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *chromePage) Navigate(url string, timeout time.Duration) error {
	return p.run(timeout, chromedp.Navigate(url))
}

func (p *chromePage) WaitReady(selector string, timeout time.Duration) error {
	return p.run(timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromePage) WaitVisible(selector string, timeout time.Duration) error {
	return p.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Click(selector string, timeout time.Duration) error {
	return p.run(timeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromePage) Text(selector string, timeout time.Duration) (string, error) {
	var text string
	err := p.run(timeout, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

func (p *chromePage) FillFirstInput(value string, timeout time.Duration) (bool, error) {
	var filled bool
	script := fmt.Sprintf(fillFirstInputJS, jsString(value))
	if err := p.run(timeout, chromedp.Evaluate(script, &filled)); err != nil {
		return false, err
	}
	return filled, nil
}

func (p *chromePage) PressEnter() error {
	return p.run(clickTimeout, chromedp.KeyEvent(kb.Enter))
}

func (p *chromePage) Content() (string, error) {
	var html string
	err := p.run(10*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Screenshot() ([]byte, error) {
	var buf []byte
	err := p.run(10*time.Second, chromedp.FullScreenshot(&buf, 90))
	return buf, err
}

func (p *chromePage) AppendConsole(entry ConsoleEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = append(p.console, entry)
}

func (p *chromePage) ConsoleLog() []ConsoleEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConsoleEntry, len(p.console))
	copy(out, p.console)
	return out
}

func (p *chromePage) NetworkLog() []NetworkEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NetworkEntry, len(p.network))
	copy(out, p.network)
	return out
}

// handleEvent collects passive console and network events for the tab.
// Registered before any step executes.
func (p *chromePage) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			if len(arg.Value) > 0 {
				parts = append(parts, string(arg.Value))
			} else if arg.Description != "" {
				parts = append(parts, arg.Description)
			}
		}
		p.AppendConsole(ConsoleEntry{Type: string(e.Type), Text: strings.Join(parts, " ")})

	case *network.EventRequestWillBeSent:
		p.mu.Lock()
		p.network = append(p.network, NetworkEntry{URL: e.Request.URL, Method: e.Request.Method})
		p.mu.Unlock()

	case *network.EventResponseReceived:
		p.mu.Lock()
		p.network = append(p.network, NetworkEntry{URL: e.Response.URL, Status: e.Response.Status})
		p.mu.Unlock()
	}
}

// Close closes the tab. Safe to call after a failed run; the shared
// browser stays up for other tests.
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

// jsString quotes a Go string as a JavaScript string literal.
func jsString(s string) string {
	return fmt.Sprintf("%q", s)
}
