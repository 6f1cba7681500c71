package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deepresearch/internal/format"
	"deepresearch/internal/store"
)

var statusFlags struct {
	runID string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of one research run",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.runID, "run", "", "Run ID (required)")
	_ = statusCmd.MarkFlagRequired("run")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open run index: %w", err)
	}
	defer st.Close()

	run, err := st.GetRun(statusFlags.runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Question: %s\n", run.Question)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Rounds:   %d\n", run.Round)
	fmt.Fprintf(out, "Facts:    %d\n", run.FactCount)
	fmt.Fprintf(out, "Tokens:   %s of %s\n", format.FmtTokens(run.TokensUsed), format.FmtTokens(run.TokenBudget))
	if run.ReportPath != "" {
		fmt.Fprintf(out, "Report:   %s\n", run.ReportPath)
	}
	fmt.Fprintf(out, "Updated:  %s\n", run.UpdatedAt)
	return nil
}
