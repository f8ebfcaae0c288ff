package tester

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// Per-action timeout bounds. Every browser interaction is bounded so a
// stuck page degrades to a logged failure instead of hanging the batch.
const (
	gotoTimeout          = 5000 * time.Millisecond
	defaultWaitTimeout   = 2000 * time.Millisecond
	clickTimeout         = 1500 * time.Millisecond
	fillTimeout          = 1500 * time.Millisecond
	defaultChangeTimeout = 3000 * time.Millisecond
)

// stepStatus classifies the outcome of one executed action.
type stepStatus int

const (
	stepOK stepStatus = iota
	// stepIgnored marks a best-effort action that could not be performed.
	// Ignorable by contract, never fatal and never logged as an error.
	stepIgnored
	stepFailed
)

// PageCapture is everything the interpreter observed during one run.
type PageCapture struct {
	DOM             string
	Screenshot      []byte
	Console         []ConsoleEntry
	Network         []NetworkEntry
	CriticalFailure bool
}

// Interpreter executes a test's steps in order against one page. Steps run
// strictly sequentially; once a critical action fails the remaining steps
// are recorded as skipped rather than executed, but the loop always walks
// the full sequence.
type Interpreter struct{}

// Run executes every step of test against page and captures the final page
// state. Action failures are caught here and recorded in the console log;
// they never abort the run.
func (in Interpreter) Run(page PageDriver, test Test) *PageCapture {
	critical := false

	for _, step := range test.Steps {
		if critical {
			page.AppendConsole(ConsoleEntry{
				Type: "info",
				Text: fmt.Sprintf("step_skipped:%s:previous_assertion_failure", step.Action),
			})
			continue
		}

		status, err := in.execute(page, step)
		if err != nil {
			page.AppendConsole(ConsoleEntry{
				Type: "error",
				Text: fmt.Sprintf("step_error:%s:%v", step.Action, err),
			})
		}
		if status == stepFailed && step.Action.critical() {
			critical = true
		}
	}

	dom, err := page.Content()
	if err != nil {
		logging.Error("failed to capture page content for test %s: %v", test.ID, err)
	}
	shot, err := page.Screenshot()
	if err != nil {
		logging.Error("failed to capture screenshot for test %s: %v", test.ID, err)
	}

	return &PageCapture{
		DOM:             dom,
		Screenshot:      shot,
		Console:         page.ConsoleLog(),
		Network:         page.NetworkLog(),
		CriticalFailure: critical,
	}
}

// execute runs a single step. A returned error is recorded as a step_error
// console entry by the caller; assertion-style actions write their own
// assertion entries and return no error.
func (in Interpreter) execute(page PageDriver, step Step) (stepStatus, error) {
	params := step.Params

	switch step.Action {
	case ActionGoto:
		url := params.String("url", "")
		if url == "" {
			return stepFailed, errors.New(`missing required param "url"`)
		}
		if err := page.Navigate(url, gotoTimeout); err != nil {
			return stepFailed, err
		}

	case ActionWaitFor:
		timeout := time.Duration(params.Int("timeout", 2000)) * time.Millisecond
		if err := page.WaitReady(params.String("selector", "body"), timeout); err != nil {
			return stepFailed, err
		}

	case ActionClickIf:
		// Best effort: the click target may legitimately be absent.
		if err := page.Click(params.String("selector", ""), clickTimeout); err != nil {
			return stepIgnored, nil
		}

	case ActionTypeRandomNumber:
		length := params.Int("length", 1)
		digits := make([]byte, length)
		for i := range digits {
			digits[i] = byte('0' + rand.Intn(10))
		}
		if _, err := page.FillFirstInput(string(digits), fillTimeout); err != nil {
			return stepFailed, err
		}

	case ActionTypeValue:
		if _, err := page.FillFirstInput(params.Stringify("value"), fillTimeout); err != nil {
			return stepFailed, err
		}

	case ActionSubmit:
		if err := page.Click("button[type='submit']", clickTimeout); err != nil {
			if err := page.PressEnter(); err != nil {
				return stepFailed, err
			}
		}

	case ActionCheckSelector:
		if err := page.WaitReady(params.String("selector", "body"), defaultWaitTimeout); err != nil {
			return stepFailed, err
		}

	case ActionCheckValue:
		selector := params.String("selector", "")
		expected := strings.TrimSpace(params.Stringify("expected_value"))
		if err := page.WaitReady(selector, defaultWaitTimeout); err != nil {
			return stepFailed, err
		}
		actual, err := page.Text(selector, defaultWaitTimeout)
		if err != nil {
			return stepFailed, err
		}
		actual = strings.TrimSpace(actual)
		if actual != expected {
			page.AppendConsole(ConsoleEntry{
				Type: "assertion_error",
				Text: fmt.Sprintf("Assertion failed: Selector '%s' had value '%s', expected '%s'.", selector, actual, expected),
			})
			return stepFailed, nil
		}
		page.AppendConsole(ConsoleEntry{
			Type: "assertion_success",
			Text: fmt.Sprintf("Assertion passed: Value was '%s'.", expected),
		})

	case ActionCheckElementChange:
		selector := params.String("selector_to_check", "")
		timeout := time.Duration(params.Int("timeout", 3000)) * time.Millisecond
		desc := params.String("description", "Checking UI element change.")
		if err := page.WaitVisible(selector, timeout); err != nil {
			page.AppendConsole(ConsoleEntry{
				Type: "playability_error",
				Text: fmt.Sprintf("Playability check failed: %s Element '%s' did not become visible within %dms.", desc, selector, timeout.Milliseconds()),
			})
			return stepFailed, nil
		}
		page.AppendConsole(ConsoleEntry{
			Type: "playability_success",
			Text: fmt.Sprintf("Playability check passed: %s Element '%s' is now visible.", desc, selector),
		})

	default:
		// Unknown actions are deliberate no-ops so newer plans stay
		// runnable against older executors.
		logging.Warn("unknown action %q ignored", step.Action)
	}

	return stepOK, nil
}
