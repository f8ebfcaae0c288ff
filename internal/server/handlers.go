package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gauntlet-run/gauntlet/internal/logging"
	"github.com/gauntlet-run/gauntlet/internal/planner"
	"github.com/gauntlet-run/gauntlet/internal/ranker"
	"github.com/gauntlet-run/gauntlet/internal/tester"
)

type generateRequest struct {
	TargetURL string `json:"target_url"`
	Count     int    `json:"count"`
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{TargetURL: s.cfg.TargetURL, Count: 24}
	if r.Body != nil {
		// An empty body keeps the defaults.
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Count <= 0 {
		req.Count = 24
	}

	candidates := planner.New(s.kb).GenerateCandidates(req.TargetURL, req.Count)
	out := candidateSet{Candidates: candidates}
	if err := s.writeStage(candidatesFile, out); err != nil {
		logging.Error("generate plan: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to persist candidates")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRankPlan(w http.ResponseWriter, r *http.Request) {
	var candidates candidateSet
	if err := s.readStage(candidatesFile, &candidates); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusBadRequest, "Run /plan/generate first")
			return
		}
		logging.Error("rank plan: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read candidates")
		return
	}

	out := rankedSet{Ranked: ranker.Rank(candidates.Candidates)}
	if err := s.writeStage(rankedFile, out); err != nil {
		logging.Error("rank plan: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to persist ranking")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

type executeRequest struct {
	TopK int `json:"top_k"`
	// Quick limits the batch to the top 3 for a fast demo run.
	Quick bool `json:"quick"`
}

func (s *Server) handleExecuteTests(w http.ResponseWriter, r *http.Request) {
	req := executeRequest{TopK: 10}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var ranked rankedSet
	if err := s.readStage(rankedFile, &ranked); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusBadRequest, "Run /plan/rank first")
			return
		}
		logging.Error("execute tests: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read ranking")
		return
	}

	topK := req.TopK
	if topK <= 0 || topK > len(ranked.Ranked) {
		topK = len(ranked.Ranked)
	}
	if req.Quick && topK > 3 {
		topK = 3
	}
	selected := ranked.Ranked[:topK]

	session := tester.NewChromeSession(s.cfg.Headless)
	orch := tester.NewOrchestrator(session, s.cfg.ArtifactsDir, s.cfg.Concurrency)
	orch.SetResultHook(func(res tester.ExecutionResult) {
		s.hub.Broadcast(progressEvent{
			Event:   "test_completed",
			ID:      res.ID,
			Verdict: string(res.Verdict),
		})
	})

	startedAt := time.Now()
	report, err := orch.Run(r.Context(), selected)
	if err != nil {
		logging.Error("execute tests: %v", err)
		writeError(w, http.StatusInternalServerError, "batch execution failed")
		return
	}

	if err := s.writeStage(reportFile, report); err != nil {
		logging.Error("execute tests: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to persist report")
		return
	}

	if s.store != nil {
		if _, err := s.store.RecordRun(startedAt, report); err != nil {
			logging.Warn("failed to record run history: %v", err)
		}
	}

	s.hub.Broadcast(progressEvent{Event: "batch_completed"})
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	path := s.stagePath(reportFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "No report found yet; run /tests/execute")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	testID := filepath.Base(chi.URLParam(r, "testID"))
	name := filepath.Base(chi.URLParam(r, "name"))

	path := filepath.Join(s.cfg.ArtifactsDir, testID, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "Artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "Run history is disabled")
		return
	}
	runs, err := s.store.RecentRuns(20)
	if err != nil {
		logging.Error("list runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to query run history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}
