package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deepresearch/internal/store"
)

var reportFlags struct {
	runID    string
	manifest bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the report (or manifest) of a finished run",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.runID, "run", "", "Run ID (required)")
	f.BoolVar(&reportFlags.manifest, "manifest", false, "Print the manifest JSON instead of the report")
	_ = reportCmd.MarkFlagRequired("run")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open run index: %w", err)
	}
	defer st.Close()

	run, err := st.GetRun(reportFlags.runID)
	if err != nil {
		return err
	}
	path := run.ReportPath
	if reportFlags.manifest {
		path = run.ManifestPath
		if path == "" && run.ReportPath != "" {
			path = filepath.Join(filepath.Dir(run.ReportPath), "manifest.json")
		}
	}
	if path == "" {
		return fmt.Errorf("run %s has no report yet (status: %s)", run.ID, run.Status)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.TrimRight(string(data), "\n"))
	return nil
}
