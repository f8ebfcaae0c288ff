package tester

import (
	"fmt"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// replayActions are the structural steps kept for a reproducibility
// replay. Mutating and input actions are dropped.
var replayActions = map[Action]bool{
	ActionGoto:          true,
	ActionCheckSelector: true,
	ActionWaitFor:       true,
}

// Analyzer probes verdict stability by re-running a reduced form of a test
// once and comparing verdicts. Coarse by design: one replay, score 0 or 1.
type Analyzer struct {
	executor *Executor
	outDir   string
}

// NewAnalyzer creates an analyzer that replays through executor against
// the same artifact root the initial runs use.
func NewAnalyzer(executor *Executor, outDir string) *Analyzer {
	return &Analyzer{executor: executor, outDir: outDir}
}

// ReduceTest derives the replay form of a test: same id with a "_replay"
// suffix, same title with a " (replay)" suffix, structural steps only. An
// empty reduced step set is valid and still yields a verdict when run.
func ReduceTest(t Test) Test {
	reduced := Test{
		ID:       t.ID + "_replay",
		Title:    t.Title + " (replay)",
		Viewport: t.Viewport,
	}
	for _, s := range t.Steps {
		if replayActions[s.Action] {
			reduced.Steps = append(reduced.Steps, s)
		}
	}
	return reduced
}

// Analyze re-executes the reduced form of test and reports whether the
// replay verdict matches the initial one.
func (a *Analyzer) Analyze(test Test, initial ExecutionResult) (AnalysisResult, error) {
	replay, err := a.executor.RunTest(ReduceTest(test), a.outDir)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("replay of test %s failed: %w", test.ID, err)
	}

	reproducible := initial.Verdict == replay.Verdict
	score := 0.0
	if reproducible {
		score = 1.0
	} else {
		logging.Warn("test %s verdict not reproducible: initial=%s replay=%s", test.ID, initial.Verdict, replay.Verdict)
		a.logDigestDiff(initial, replay)
	}

	return AnalysisResult{
		ReplayVerdict:   replay.Verdict,
		Reproducible:    reproducible,
		Score:           score,
		ReplayArtifacts: replay.Artifacts,
	}, nil
}

// logDigestDiff records a structural comparison of the two DOM snapshots
// as context for a diverging replay.
func (a *Analyzer) logDigestDiff(initial, replay ExecutionResult) {
	initialDigest, err := digestFile(initial.Artifacts.DOM)
	if err != nil {
		return
	}
	replayDigest, err := digestFile(replay.Artifacts.DOM)
	if err != nil {
		return
	}
	logging.Debug("test %s dom digest: initial {%s} replay {%s}", initial.ID, initialDigest, replayDigest)
}
