// Command run-mock-research executes an embedded offline scenario through the
// full research loop and prints where the artifacts landed. It is the quickest
// way to exercise the engine without any network or model access.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"deepresearch/internal/config"
	"deepresearch/internal/logging"
	"deepresearch/internal/research"
	"deepresearch/internal/scenarios"
	"deepresearch/internal/store"
)

func main() {
	scenario := flag.String("scenario", "solid_state_batteries", "embedded scenario name")
	artifactDir := flag.String("artifact-dir", "", "artifact directory (default: per-run temp dir)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logging.Init(logging.ParseLevel(*logLevel), "text")
	logger := logging.New("mock-research")

	if err := run(*scenario, *artifactDir, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(scenario, artifactDir string, logger *slog.Logger) error {
	sc, err := scenarios.Load(scenario)
	if err != nil {
		names, nerr := scenarios.Names()
		if nerr == nil {
			return fmt.Errorf("%w (available: %v)", err, names)
		}
		return err
	}

	if artifactDir == "" {
		artifactDir, err = os.MkdirTemp("", "deepresearch-mock-*")
		if err != nil {
			return err
		}
	}

	cfg := config.Default()
	opts := research.Options{
		Model:         cfg.Model,
		TokenBudget:   cfg.TokenBudget,
		MaxDepth:      cfg.MaxDepth,
		BreadthLimit:  cfg.BreadthLimit,
		SearchLimit:   cfg.SearchLimit,
		PlanAttempts:  cfg.PlanAttempts,
		RelevanceTopK: cfg.RelevanceTopK,
		ArtifactDir:   artifactDir,
		Policy: research.PolicyConfig{
			MinCoverage:      cfg.MinCoverage,
			StopIfConfidence: cfg.StopIfConfidence,
			NearBudgetRatio:  0.8,
			ReplanMax:        cfg.ReplanMax,
		},
	}

	runner, err := research.NewRunner(opts, research.Deps{
		Generator: sc.Generator(),
		Searcher:  sc.Searcher(),
		Store:     store.NewMemStore(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("running scenario", "name", scenario, "question", sc.Question)
	res := runner.Run(context.Background(), sc.Question)

	fmt.Printf("Run:      %s\n", res.RunID)
	fmt.Printf("Decision: %s\n", res.Decision)
	fmt.Printf("Rounds:   %d\n", res.Round)
	fmt.Printf("Facts:    %d\n", res.FactCount)
	fmt.Printf("Tokens:   %d\n", res.TokensUsed)
	fmt.Printf("Report:   %s\n", res.ReportPath)
	fmt.Printf("Manifest: %s\n", res.ManifestPath)

	if !res.Success {
		return fmt.Errorf("run failed: %s", res.Error)
	}
	return nil
}
