package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deepresearch/internal/logging"
	"deepresearch/internal/research"
	"deepresearch/internal/scenarios"
	"deepresearch/internal/store"
)

var demoFlags struct {
	scenario string
	list     bool
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an offline scripted research scenario end to end",
	RunE:  runDemo,
}

func init() {
	f := demoCmd.Flags()
	f.StringVar(&demoFlags.scenario, "scenario", "solid_state_batteries", "Embedded scenario name")
	f.BoolVar(&demoFlags.list, "list", false, "List embedded scenarios and exit")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if demoFlags.list {
		names, err := scenarios.Names()
		if err != nil {
			return err
		}
		for _, n := range names {
			sc, err := scenarios.Load(n)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-24s %s\n", n, sc.Description)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, searcher, question, err := scenarioCollaborators(demoFlags.scenario)
	if err != nil {
		return err
	}

	runner, err := research.NewRunner(runnerOptions(cfg), research.Deps{
		Generator: gen,
		Searcher:  searcher,
		Store:     store.NewMemStore(),
		Logger:    logging.New("demo"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Scenario: %s\nQuestion: %s\n\n", demoFlags.scenario, question)
	res := runner.Run(cmd.Context(), question)
	return printResult(cmd, res)
}
