package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gauntlet-run/gauntlet/internal/knowledge"
	"github.com/gauntlet-run/gauntlet/internal/logging"
	"github.com/gauntlet-run/gauntlet/internal/server"
	"github.com/gauntlet-run/gauntlet/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline stages over HTTP",
	Long: `Starts the API server exposing plan generation, ranking, test
execution, reports, artifacts, and a websocket progress stream. The
knowledge base file is watched and hot-reloaded while serving.`,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (defaults to config)")
}

func serve(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	kb, err := knowledge.Load(filepath.Join(projectDir, cfg.KnowledgePath))
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}
	if err := kb.Watch(cmd.Context()); err != nil {
		logging.Warn("knowledge hot-reload disabled: %v", err)
	}

	st, err := store.Open(filepath.Join(projectDir, cfg.DatabasePath))
	if err != nil {
		logging.Warn("run history disabled: %v", err)
		st = nil
	} else {
		defer st.Close()
	}

	srv := server.New(cfg, kb, st)

	logging.Info("serving on %s", addr)
	fmt.Printf("Gauntlet API listening on %s\n", addr)
	return http.ListenAndServe(addr, srv.Router())
}
