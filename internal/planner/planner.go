// Package planner generates candidate tests against a target URL. It is a
// heuristic generator seeded by the knowledge base; the execution pipeline
// treats its output as opaque input.
package planner

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/gauntlet-run/gauntlet/internal/knowledge"
	"github.com/gauntlet-run/gauntlet/internal/tester"
)

// Candidate viewports. Most candidates run at the default desktop size;
// some are generated against a phone-sized page to exercise responsive
// layouts.
var mobileViewport = tester.Viewport{Width: 390, Height: 844}

// Planner builds candidate test cases.
type Planner struct {
	kb *knowledge.Base
}

// New creates a planner drawing selector conventions from kb.
func New(kb *knowledge.Base) *Planner {
	return &Planner{kb: kb}
}

func step(action tester.Action, params tester.Params) tester.Step {
	return tester.Step{Action: action, Params: params}
}

// MakeTest builds a single short candidate against targetURL.
func (p *Planner) MakeTest(targetURL string, difficulty float64) tester.Test {
	startButton := p.kb.Selector("start_button", ".start-button")
	result := p.kb.Selector("result", ".score, .result, #result")

	steps := []tester.Step{
		step(tester.ActionGoto, tester.Params{"url": targetURL}),
		step(tester.ActionWaitFor, tester.Params{"selector": "body", "timeout": 2000}),
		step(tester.ActionClickIf, tester.Params{"selector": startButton}),
	}

	// One or two random numeric inputs keeps candidates quick to run.
	for i := 0; i < 1+rand.Intn(2); i++ {
		steps = append(steps, step(tester.ActionTypeRandomNumber, tester.Params{"length": 1 + rand.Intn(2)}))
	}

	steps = append(steps,
		step(tester.ActionSubmit, tester.Params{}),
		step(tester.ActionCheckSelector, tester.Params{"selector": result}),
	)

	t := tester.Test{
		ID:         shortID(),
		Title:      fmt.Sprintf("Auto test (difficulty=%.2f)", difficulty),
		Difficulty: difficulty,
		Steps:      steps,
	}
	if rand.Intn(4) == 0 {
		vp := mobileViewport
		t.Viewport = &vp
	}
	return t
}

// GenerateCandidates builds a batch of n candidates plus one deterministic
// open-and-check test that should always pass against a reachable target.
func (p *Planner) GenerateCandidates(targetURL string, n int) []tester.Test {
	candidates := make([]tester.Test, 0, n+1)
	for i := 0; i < n; i++ {
		candidates = append(candidates, p.MakeTest(targetURL, rand.Float64()))
	}

	candidates = append(candidates, tester.Test{
		ID:         shortID(),
		Title:      "Deterministic open-and-check",
		Difficulty: 0.1,
		Steps: []tester.Step{
			step(tester.ActionGoto, tester.Params{"url": targetURL}),
			step(tester.ActionWaitFor, tester.Params{"selector": "body", "timeout": 2000}),
			step(tester.ActionCheckSelector, tester.Params{"selector": "body"}),
		},
	})

	return candidates
}

// shortID returns the 8-character test id form used throughout artifacts.
func shortID() string {
	return uuid.NewString()[:8]
}
