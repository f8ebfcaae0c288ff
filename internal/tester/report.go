package tester

// Summary aggregates the verdicts of one batch run.
type Summary struct {
	Total          int     `json:"total"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Report is the final document of one batch run. Test entries appear in
// submission order, one per submitted test.
type Report struct {
	Summary Summary           `json:"summary"`
	Tests   []ExecutionResult `json:"tests"`
}
