package main

import (
	"fmt"

	"deepresearch/internal/config"
	"deepresearch/internal/llm"
	"deepresearch/internal/logging"
	"deepresearch/internal/research"
	"deepresearch/internal/scenarios"
	"deepresearch/internal/store"
)

// runnerOptions maps the loaded config onto loop options.
func runnerOptions(cfg config.Config) research.Options {
	return research.Options{
		Model:         cfg.Model,
		TokenBudget:   cfg.TokenBudget,
		MaxDepth:      cfg.MaxDepth,
		BreadthLimit:  cfg.BreadthLimit,
		SearchLimit:   cfg.SearchLimit,
		PlanAttempts:  cfg.PlanAttempts,
		RelevanceTopK: cfg.RelevanceTopK,
		ArtifactDir:   cfg.ArtifactDir,
		Policy: research.PolicyConfig{
			MinCoverage:      cfg.MinCoverage,
			StopIfConfidence: cfg.StopIfConfidence,
			NearBudgetRatio:  0.8,
			ReplanMax:        cfg.ReplanMax,
		},
	}
}

// scenarioCollaborators loads an offline scenario and returns its scripted
// generator, searcher, and question.
func scenarioCollaborators(name string) (llm.Generator, llm.Searcher, string, error) {
	sc, err := scenarios.Load(name)
	if err != nil {
		names, nerr := scenarios.Names()
		if nerr == nil {
			return nil, nil, "", fmt.Errorf("%w (available: %v)", err, names)
		}
		return nil, nil, "", err
	}
	return sc.Generator(), sc.Searcher(), sc.Question, nil
}

// openStore opens the run index, logging rather than failing when the index
// is unavailable: a run can proceed without its ledger row.
func openStore(cfg config.Config) store.Store {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logging.New("cli").Warn("run index unavailable", "path", cfg.DBPath, "err", err)
		return nil
	}
	return st
}
