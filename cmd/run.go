package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauntlet-run/gauntlet/internal/knowledge"
	"github.com/gauntlet-run/gauntlet/internal/logging"
	"github.com/gauntlet-run/gauntlet/internal/planner"
	"github.com/gauntlet-run/gauntlet/internal/ranker"
	"github.com/gauntlet-run/gauntlet/internal/store"
	"github.com/gauntlet-run/gauntlet/internal/tester"
)

var (
	runTargetURL string
	runCount     int
	runTopK      int
	runQuick     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, rank, and execute a batch of tests",
	Long: `Runs the whole pipeline in one shot: generate candidate tests
against the target URL, rank them, execute the top K in a shared browser
session, and write the final report beneath the artifact directory.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runTargetURL, "url", "u", "", "target URL (defaults to config)")
	runCmd.Flags().IntVarP(&runCount, "count", "n", 24, "number of candidates to generate")
	runCmd.Flags().IntVarP(&runTopK, "top", "k", 10, "number of ranked tests to execute")
	runCmd.Flags().BoolVarP(&runQuick, "quick", "q", false, "execute only the top 3 for a quick check")
}

func runBatch(cmd *cobra.Command, args []string) error {
	targetURL := runTargetURL
	if targetURL == "" {
		targetURL = cfg.TargetURL
	}

	kb, err := knowledge.Load(filepath.Join(projectDir, cfg.KnowledgePath))
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	candidates := planner.New(kb).GenerateCandidates(targetURL, runCount)
	ranked := ranker.Rank(candidates)

	topK := runTopK
	if topK <= 0 || topK > len(ranked) {
		topK = len(ranked)
	}
	if runQuick && topK > 3 {
		topK = 3
	}
	selected := ranked[:topK]

	logging.Info("executing %d of %d candidates against %s", len(selected), len(candidates), targetURL)
	fmt.Printf("Executing %d tests against %s...\n", len(selected), targetURL)

	session := tester.NewChromeSession(cfg.Headless)
	orch := tester.NewOrchestrator(session, cfg.ArtifactsDir, cfg.Concurrency)
	orch.SetResultHook(func(res tester.ExecutionResult) {
		fmt.Printf("  %-10s %s\n", res.Verdict, res.ID)
	})

	startedAt := time.Now()
	report, err := orch.Run(cmd.Context(), selected)
	if err != nil {
		return fmt.Errorf("batch execution failed: %w", err)
	}

	reportPath := filepath.Join(cfg.ArtifactsDir, "final_report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if st, err := store.Open(filepath.Join(projectDir, cfg.DatabasePath)); err != nil {
		logging.Warn("run history disabled: %v", err)
	} else {
		defer st.Close()
		if _, err := st.RecordRun(startedAt, report); err != nil {
			logging.Warn("failed to record run history: %v", err)
		}
	}

	fmt.Printf("\nDone in %.2fs: %d passed, %d failed of %d\n",
		report.Summary.ElapsedSeconds, report.Summary.Passed, report.Summary.Failed, report.Summary.Total)
	fmt.Printf("Report: %s\n", reportPath)
	return nil
}
