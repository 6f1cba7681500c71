package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deepresearch/internal/format"
	"deepresearch/internal/store"
)

var runsFlags struct {
	markdown bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past research runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().BoolVar(&runsFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open run index: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	mode := format.ASCII
	if runsFlags.markdown {
		mode = format.Markdown
	}
	tbl := format.NewTable(mode)
	tbl.Header("Run", "Question", "Status", "Rounds", "Facts", "Tokens", "Updated")
	tbl.Columns(
		format.ColumnConfig{Number: 2, MaxWidth: 48},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, Align: format.AlignRight},
		format.ColumnConfig{Number: 6, Align: format.AlignRight},
	)
	for _, r := range runs {
		tbl.Row(shortID(r.ID), r.Question, r.Status, r.Round, r.FactCount, format.FmtTokens(r.TokensUsed), r.UpdatedAt)
	}
	fmt.Fprintln(out, tbl.String())
	return nil
}

// shortID trims a UUID to its first group for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
