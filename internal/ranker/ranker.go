// Package ranker orders candidate tests for execution. The current
// strategy prefers higher difficulty with a small random jitter to break
// ties between otherwise identical candidates.
package ranker

import (
	"math/rand"
	"sort"

	"github.com/gauntlet-run/gauntlet/internal/tester"
)

const tieBreakJitter = 0.1

// Rank returns candidates ordered best-first. The input slice is not
// modified.
func Rank(candidates []tester.Test) []tester.Test {
	type scored struct {
		test  tester.Test
		score float64
	}

	scoredTests := make([]scored, len(candidates))
	for i, c := range candidates {
		scoredTests[i] = scored{test: c, score: c.Difficulty + rand.Float64()*tieBreakJitter}
	}

	sort.SliceStable(scoredTests, func(i, j int) bool {
		return scoredTests[i].score > scoredTests[j].score
	})

	ranked := make([]tester.Test, len(scoredTests))
	for i, s := range scoredTests {
		ranked[i] = s.test
	}
	return ranked
}
