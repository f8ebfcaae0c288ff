package tester

import (
	"fmt"
)

// Executor runs one test inside the shared session: acquire a page, walk
// the steps, persist artifacts, compute the verdict.
type Executor struct {
	session  Session
	interp   Interpreter
	capturer Capturer
}

// NewExecutor creates an executor bound to a session.
func NewExecutor(session Session) *Executor {
	return &Executor{session: session}
}

// RunTest executes test and persists its artifacts under outDir. The page
// opened for the test is released on every exit path. Infrastructure
// failures (browser start, page creation, artifact persistence) are
// returned as errors; step failures surface only in the verdict and logs.
func (e *Executor) RunTest(test Test, outDir string) (ExecutionResult, error) {
	if err := e.session.EnsureStarted(); err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to start browser session: %w", err)
	}

	vp := test.EffectiveViewport()
	page, err := e.session.NewPage(vp)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to open page for test %s: %w", test.ID, err)
	}

	capture := func() *PageCapture {
		defer page.Close()
		return e.interp.Run(page, test)
	}()

	paths, err := e.capturer.Persist(test.ID, outDir, capture)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to persist artifacts for test %s: %w", test.ID, err)
	}

	return ExecutionResult{
		ID:        test.ID,
		Verdict:   computeVerdict(capture),
		Artifacts: paths,
		Meta:      ResultMeta{Title: test.Title, Viewport: vp},
	}, nil
}

// computeVerdict derives the pass/fail outcome from what one run observed.
// A critical failure always fails; otherwise a captured DOM snapshot is
// enough to pass. Network activity is recorded but deliberately not a
// condition: any count, including zero, is acceptable.
func computeVerdict(capture *PageCapture) Verdict {
	switch {
	case capture.CriticalFailure:
		return VerdictFail
	case capture.DOM != "":
		return VerdictPass
	default:
		return VerdictFail
	}
}
