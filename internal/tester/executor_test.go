package tester

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_PassingRun(t *testing.T) {
	session := &fakeSession{}
	outDir := t.TempDir()

	test := Test{
		ID:    "abc123",
		Title: "open and check",
		Steps: []Step{
			{Action: ActionGoto, Params: Params{"url": "https://example.com"}},
			{Action: ActionCheckSelector, Params: Params{"selector": "body"}},
		},
	}

	result, err := NewExecutor(session).RunTest(test, outDir)
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.ID)
	assert.Equal(t, VerdictPass, result.Verdict)
	assert.Equal(t, "open and check", result.Meta.Title)
	assert.Equal(t, DefaultViewport, result.Meta.Viewport)

	for _, path := range []string{result.Artifacts.Screenshot, result.Artifacts.DOM, result.Artifacts.Console, result.Artifacts.Network} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "artifact %s should exist", path)
	}

	require.Len(t, session.dispensed, 1)
	assert.True(t, session.dispensed[0].closed, "page must be released")
}

func TestExecutor_CriticalFailureFails(t *testing.T) {
	page := newFakePage()
	page.navigateErr["http://unreachable.invalid/"] = errors.New("dns")
	session := &fakeSession{queue: []*fakePage{page}}

	test := Test{ID: "t1", Steps: []Step{{Action: ActionGoto, Params: Params{"url": "http://unreachable.invalid/"}}}}

	result, err := NewExecutor(session).RunTest(test, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, result.Verdict)
	assert.True(t, page.closed)
}

func TestExecutor_EmptyDOMFails(t *testing.T) {
	page := newFakePage()
	page.content = ""
	session := &fakeSession{queue: []*fakePage{page}}

	result, err := NewExecutor(session).RunTest(Test{ID: "t1"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, result.Verdict)
}

func TestExecutor_ContentErrorStillYieldsVerdict(t *testing.T) {
	page := newFakePage()
	page.contentErr = errors.New("tab crashed")
	page.content = ""
	session := &fakeSession{queue: []*fakePage{page}}

	result, err := NewExecutor(session).RunTest(Test{ID: "t1"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, result.Verdict)
	assert.True(t, page.closed)
}

func TestExecutor_CustomViewport(t *testing.T) {
	session := &fakeSession{}
	vp := Viewport{Width: 390, Height: 844}

	result, err := NewExecutor(session).RunTest(Test{ID: "t1", Viewport: &vp}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, vp, result.Meta.Viewport)
}

func TestExecutor_SessionStartFailurePropagates(t *testing.T) {
	session := &fakeSession{startErr: errors.New("chrome not found")}

	_, err := NewExecutor(session).RunTest(Test{ID: "t1"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser session")
}

func TestExecutor_NewPageFailurePropagates(t *testing.T) {
	session := &fakeSession{newPageErr: errors.New("out of tabs")}

	_, err := NewExecutor(session).RunTest(Test{ID: "t1"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open page")
}

func TestExecutor_PersistFailurePropagates(t *testing.T) {
	session := &fakeSession{}
	outDir := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(outDir, []byte("not a directory"), 0644))

	_, err := NewExecutor(session).RunTest(Test{ID: "t1"}, outDir)
	require.Error(t, err)
	require.Len(t, session.dispensed, 1)
	assert.True(t, session.dispensed[0].closed, "page must be released even when persistence fails")
}
