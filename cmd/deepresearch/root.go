package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deepresearch/internal/config"
	"deepresearch/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "deepresearch",
	Short: "Budget-bounded iterative research runs",
	Long: "Deepresearch plans a question into aspects, searches and summarizes\n" +
		"sources round by round, and stops by policy when coverage, confidence,\n" +
		"or the token budget says so.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if rootFlags.logLevel != "" {
			level = rootFlags.logLevel
		}
		format := cfg.LogFormat
		if rootFlags.logFormat != "" {
			format = rootFlags.logFormat
		}
		logging.Init(logging.ParseLevel(level), format)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

// loadConfig resolves the effective configuration for this invocation.
func loadConfig() (config.Config, error) {
	return config.Load(rootFlags.configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
