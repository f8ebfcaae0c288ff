package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauntlet-run/gauntlet/internal/config"
	"github.com/gauntlet-run/gauntlet/internal/knowledge"
	"github.com/gauntlet-run/gauntlet/internal/store"
	"github.com/gauntlet-run/gauntlet/internal/tester"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.ArtifactsDir = filepath.Join(dir, "artifacts")

	kb, err := knowledge.Load(filepath.Join(dir, "knowledge.yaml"))
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(cfg, kb, st), cfg
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGeneratePlan(t *testing.T) {
	srv, cfg := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/plan/generate", `{"target_url": "http://game.test/", "count": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out candidateSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Candidates, 6)
	assert.Equal(t, "http://game.test/", out.Candidates[0].Steps[0].Params.String("url", ""))

	_, err := os.Stat(filepath.Join(cfg.ArtifactsDir, candidatesFile))
	assert.NoError(t, err, "candidates stage file should be persisted")
}

func TestGeneratePlan_EmptyBodyUsesDefaults(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/plan/generate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out candidateSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Candidates, 25)
}

func TestRankPlan_BeforeGenerate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/plan/rank", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Run /plan/generate first", body["detail"])
}

func TestRankPlan_AfterGenerate(t *testing.T) {
	srv, cfg := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/plan/generate", `{"count": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/plan/rank", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out rankedSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Ranked, 5)

	_, err := os.Stat(filepath.Join(cfg.ArtifactsDir, rankedFile))
	assert.NoError(t, err, "ranked stage file should be persisted")
}

func TestExecuteTests_BeforeRank(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/tests/execute", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Run /plan/rank first", body["detail"])
}

func TestReport_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/report", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport_ServesPersistedFile(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NoError(t, srv.writeStage(reportFile, &tester.Report{
		Summary: tester.Summary{Total: 1, Passed: 1},
	}))

	rec := doJSON(t, srv.Router(), http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report tester.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Summary.Total)
}

func TestArtifact(t *testing.T) {
	srv, cfg := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/artifacts/abc123/dom.html", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	dir := filepath.Join(cfg.ArtifactsDir, "abc123")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dom.html"), []byte("<html><body>ok</body></html>"), 0644))

	rec = doJSON(t, router, http.MethodGet, "/artifacts/abc123/dom.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRuns(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []store.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Runs)
}

func TestRuns_HistoryDisabled(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.store = nil

	rec := doJSON(t, srv.Router(), http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
