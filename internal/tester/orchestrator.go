package tester

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// DefaultConcurrency caps how many tests hold an open page at once. A
// hand-set admission limit, not an adaptive one.
const DefaultConcurrency = 5

// Orchestrator runs a batch of tests concurrently against one shared
// session and aggregates the results into a report.
type Orchestrator struct {
	session     Session
	executor    *Executor
	analyzer    *Analyzer
	outDir      string
	concurrency int64

	// onResult, if set, observes each completed test in completion order.
	onResult func(ExecutionResult)
}

// NewOrchestrator wires an executor and analyzer around session, writing
// artifacts under outDir. concurrency <= 0 selects the default cap.
func NewOrchestrator(session Session, outDir string, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	executor := NewExecutor(session)
	return &Orchestrator{
		session:     session,
		executor:    executor,
		analyzer:    NewAnalyzer(executor, outDir),
		outDir:      outDir,
		concurrency: int64(concurrency),
	}
}

// SetResultHook registers a callback invoked as each test (with its
// analysis) completes. Used for progress streaming.
func (o *Orchestrator) SetResultHook(fn func(ExecutionResult)) {
	o.onResult = fn
}

// StartSession explicitly starts the shared browser session.
func (o *Orchestrator) StartSession() error {
	return o.session.EnsureStarted()
}

// StopSession explicitly stops the shared browser session.
func (o *Orchestrator) StopSession() error {
	return o.session.Shutdown()
}

// RunTest executes a single test through the orchestrator's executor.
func (o *Orchestrator) RunTest(test Test) (ExecutionResult, error) {
	return o.executor.RunTest(test, o.outDir)
}

// Analyze runs the reproducibility probe for one executed test.
func (o *Orchestrator) Analyze(test Test, initial ExecutionResult) (AnalysisResult, error) {
	return o.analyzer.Analyze(test, initial)
}

// Run executes every test in tests under the concurrency cap, analyzer
// replay included in each test's slot, and builds the final report. The
// session is started once up front and stopped exactly once after all
// tests finish; a single test's failure never aborts the batch. Result
// order follows submission order regardless of completion order.
func (o *Orchestrator) Run(ctx context.Context, tests []Test) (*Report, error) {
	start := time.Now()

	if err := o.session.EnsureStarted(); err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		if err := o.session.Shutdown(); err != nil {
			logging.Error("failed to stop browser session: %v", err)
		}
	}()

	sem := semaphore.NewWeighted(o.concurrency)
	results := make([]ExecutionResult, len(tests))
	var wg sync.WaitGroup

	for i, t := range tests {
		wg.Add(1)
		go func(i int, t Test) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				logging.Error("admission for test %s: %v", t.ID, err)
				results[i] = failedResult(t)
				return
			}
			defer sem.Release(1)

			results[i] = o.runOne(t)
			if o.onResult != nil {
				o.onResult(results[i])
			}
		}(i, t)
	}
	wg.Wait()

	report := &Report{Tests: results}
	report.Summary.Total = len(results)
	for _, r := range results {
		if r.Verdict == VerdictPass {
			report.Summary.Passed++
		} else {
			report.Summary.Failed++
		}
	}
	report.Summary.ElapsedSeconds = math.Round(time.Since(start).Seconds()*100) / 100

	return report, nil
}

// runOne executes one test and its reproducibility analysis inside a
// single concurrency slot. Infrastructure failures localize to this test.
func (o *Orchestrator) runOne(t Test) ExecutionResult {
	result, err := o.executor.RunTest(t, o.outDir)
	if err != nil {
		logging.Error("test %s failed to execute: %v", t.ID, err)
		return failedResult(t)
	}

	analysis, err := o.analyzer.Analyze(t, result)
	if err != nil {
		logging.Error("reproducibility analysis for test %s: %v", t.ID, err)
	} else {
		result.Analysis = &analysis
	}
	return result
}

// failedResult is the report entry for a test whose execution never
// produced artifacts. The cause is logged; the report still carries one
// entry per submitted test.
func failedResult(t Test) ExecutionResult {
	return ExecutionResult{
		ID:      t.ID,
		Verdict: VerdictFail,
		Meta:    ResultMeta{Title: t.Title, Viewport: t.EffectiveViewport()},
	}
}
