// Package server exposes the pipeline stages over HTTP: plan generation,
// ranking, execution, and report/artifact retrieval. Intermediate stage
// output persists as JSON under the artifact root so each stage can be
// invoked independently.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gauntlet-run/gauntlet/internal/config"
	"github.com/gauntlet-run/gauntlet/internal/knowledge"
	"github.com/gauntlet-run/gauntlet/internal/store"
	"github.com/gauntlet-run/gauntlet/internal/tester"
)

const (
	candidatesFile = "candidates.json"
	rankedFile     = "ranked.json"
	reportFile     = "final_report.json"
)

// Server wires the pipeline components behind HTTP handlers.
type Server struct {
	cfg   *config.Config
	kb    *knowledge.Base
	store *store.Store
	hub   *hub
}

// New creates a server. st may be nil to disable run history.
func New(cfg *config.Config, kb *knowledge.Base, st *store.Store) *Server {
	return &Server{cfg: cfg, kb: kb, store: st, hub: newHub()}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/plan/generate", s.handleGeneratePlan)
	r.Post("/plan/rank", s.handleRankPlan)
	r.Post("/tests/execute", s.handleExecuteTests)
	r.Get("/report", s.handleReport)
	r.Get("/artifacts/{testID}/{name}", s.handleArtifact)
	r.Get("/runs", s.handleRuns)
	r.Get("/ws/progress", s.hub.handleWS)

	return r
}

func (s *Server) stagePath(name string) string {
	return filepath.Join(s.cfg.ArtifactsDir, name)
}

func (s *Server) writeStage(name string, v interface{}) error {
	if err := os.MkdirAll(s.cfg.ArtifactsDir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact root: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := os.WriteFile(s.stagePath(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *Server) readStage(name string, v interface{}) error {
	data, err := os.ReadFile(s.stagePath(name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// candidateSet / rankedSet are the stage file shapes.
type candidateSet struct {
	Candidates []tester.Test `json:"candidates"`
}

type rankedSet struct {
	Ranked []tester.Test `json:"ranked"`
}
