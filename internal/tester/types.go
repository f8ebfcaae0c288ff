package tester

import "fmt"

// Action identifies one atomic browser operation within a test step.
type Action string

const (
	ActionGoto               Action = "goto"
	ActionWaitFor            Action = "wait_for"
	ActionClickIf            Action = "click_if"
	ActionTypeRandomNumber   Action = "type_random_number"
	ActionTypeValue          Action = "type_value"
	ActionSubmit             Action = "submit"
	ActionCheckSelector      Action = "check_selector"
	ActionCheckValue         Action = "check_value"
	ActionCheckElementChange Action = "check_element_change"
)

// critical reports whether a failure of this action should force a fail
// verdict and skip the remaining steps of the test.
func (a Action) critical() bool {
	switch a {
	case ActionGoto, ActionCheckSelector, ActionCheckValue, ActionCheckElementChange:
		return true
	}
	return false
}

// Params holds the action-specific parameters of a step.
type Params map[string]interface{}

// String returns the named parameter as a string, or def if absent.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Stringify renders the named parameter as a string regardless of its
// decoded type. Absent or nil values render as the empty string.
func (p Params) Stringify(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns the named parameter as an int, or def if absent. JSON
// decoding produces float64 for numbers, so both forms are accepted.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Step is one ordered browser operation of a test.
type Step struct {
	Action Action `json:"action"`
	Params Params `json:"params,omitempty"`
}

// Viewport is the page size a test runs at.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultViewport is applied when a test does not specify its own.
var DefaultViewport = Viewport{Width: 1280, Height: 720}

// Test is a named, ordered sequence of browser steps. It is immutable once
// submitted to the executor.
type Test struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Difficulty float64   `json:"difficulty,omitempty"`
	Steps      []Step    `json:"steps"`
	Viewport   *Viewport `json:"viewport,omitempty"`
}

// EffectiveViewport returns the test's viewport, or the default.
func (t Test) EffectiveViewport() Viewport {
	if t.Viewport != nil {
		return *t.Viewport
	}
	return DefaultViewport
}

// Verdict is the binary outcome of one test execution.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// ConsoleEntry is one captured console message or interpreter log line.
type ConsoleEntry struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NetworkEntry is one captured request or response, in event-arrival order.
// Requests carry Method, responses carry Status.
type NetworkEntry struct {
	URL    string `json:"url"`
	Method string `json:"method,omitempty"`
	Status int64  `json:"status,omitempty"`
}

// ArtifactPaths points at the four persisted artifacts of one run.
type ArtifactPaths struct {
	Screenshot string `json:"screenshot"`
	DOM        string `json:"dom"`
	Console    string `json:"console"`
	Network    string `json:"network"`
}

// ResultMeta carries descriptive metadata about one run.
type ResultMeta struct {
	Title    string   `json:"title"`
	Viewport Viewport `json:"viewport"`
}

// ExecutionResult is the immutable outcome of one test run.
type ExecutionResult struct {
	ID        string          `json:"id"`
	Verdict   Verdict         `json:"verdict"`
	Artifacts ArtifactPaths   `json:"artifacts"`
	Meta      ResultMeta      `json:"meta"`
	Analysis  *AnalysisResult `json:"analysis,omitempty"`
}

// AnalysisResult is the outcome of one reproducibility replay.
type AnalysisResult struct {
	ReplayVerdict   Verdict       `json:"replay_verdict"`
	Reproducible    bool          `json:"reproducible"`
	Score           float64       `json:"score"`
	ReplayArtifacts ArtifactPaths `json:"replay_artifacts"`
}
