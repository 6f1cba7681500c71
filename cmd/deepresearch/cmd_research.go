package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deepresearch/internal/fetch"
	"deepresearch/internal/format"
	"deepresearch/internal/logging"
	"deepresearch/internal/research"
)

var researchFlags struct {
	scenario    string
	budget      int
	depth       int
	breadth     int
	fetchPages  bool
	artifactDir string
}

var researchCmd = &cobra.Command{
	Use:   "research <question>",
	Short: "Run a research loop for a question",
	Long: `Research plans the question, searches and summarizes sources round by
round, and writes a markdown report plus a machine-readable manifest when
the policy decides to stop.

With --scenario, the run is fully offline against an embedded scripted
scenario and the question argument may be omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResearch,
}

func init() {
	f := researchCmd.Flags()
	f.StringVar(&researchFlags.scenario, "scenario", "", "Offline scenario name (omit for a live run)")
	f.IntVar(&researchFlags.budget, "budget", 0, "Token budget override")
	f.IntVar(&researchFlags.depth, "depth", 0, "Max research rounds override")
	f.IntVar(&researchFlags.breadth, "breadth", 0, "Max aspects override")
	f.BoolVar(&researchFlags.fetchPages, "fetch-pages", false, "Render pages headlessly when search returns no summary")
	f.StringVar(&researchFlags.artifactDir, "artifact-dir", "", "Artifact directory override")
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if researchFlags.budget > 0 {
		cfg.TokenBudget = researchFlags.budget
	}
	if researchFlags.depth > 0 {
		cfg.MaxDepth = researchFlags.depth
	}
	if researchFlags.breadth > 0 {
		cfg.BreadthLimit = researchFlags.breadth
	}
	if researchFlags.artifactDir != "" {
		cfg.ArtifactDir = researchFlags.artifactDir
	}

	deps := research.Deps{Logger: logging.New("research")}

	var question string
	if researchFlags.scenario != "" {
		gen, searcher, q, err := scenarioCollaborators(researchFlags.scenario)
		if err != nil {
			return err
		}
		deps.Generator = gen
		deps.Searcher = searcher
		question = q
		if len(args) > 0 {
			question = args[0]
		}
	} else {
		// Live collaborators plug in here; until an adapter is configured,
		// only scenario-backed runs are supported.
		return fmt.Errorf("no live generator configured; run with --scenario (see 'deepresearch demo')")
	}

	if question == "" {
		return fmt.Errorf("a research question is required")
	}
	if researchFlags.fetchPages {
		deps.Enricher = fetch.NewPageFetcher(20*time.Second, logging.New("fetch"))
	}
	if st := openStore(cfg); st != nil {
		deps.Store = st
		defer st.Close()
	}

	runner, err := research.NewRunner(runnerOptions(cfg), deps)
	if err != nil {
		return err
	}

	res := runner.Run(cmd.Context(), question)
	return printResult(cmd, res)
}

func printResult(cmd *cobra.Command, res research.Result) error {
	out := cmd.OutOrStdout()
	if !res.Success {
		return fmt.Errorf("run %s failed: %s", res.RunID, res.Error)
	}
	fmt.Fprintf(out, "Run:      %s\n", res.RunID)
	fmt.Fprintf(out, "Outcome:  %s (%s)\n", res.Decision.Action, res.Decision.Explanation)
	fmt.Fprintf(out, "Rounds:   %d\n", res.Round)
	fmt.Fprintf(out, "Facts:    %d\n", res.FactCount)
	fmt.Fprintf(out, "Tokens:   %s\n", format.FmtTokens(res.TokensUsed))
	fmt.Fprintf(out, "Report:   %s\n", res.ReportPath)
	fmt.Fprintf(out, "Manifest: %s\n", res.ManifestPath)
	return nil
}
