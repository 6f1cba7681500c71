// Package config loads the runtime configuration: defaults, then an
// optional YAML file, then flag overrides applied by the CLI layer.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration for a research run.
type Config struct {
	Model            string  `yaml:"model"`
	TokenBudget      int     `yaml:"token_budget"`
	MaxDepth         int     `yaml:"max_depth"`
	BreadthLimit     int     `yaml:"breadth_limit"`
	MinCoverage      float64 `yaml:"min_coverage"`
	StopIfConfidence float64 `yaml:"stop_if_confidence"`
	ReplanMax        int     `yaml:"replan_max"`
	RelevanceTopK    int     `yaml:"relevance_top_k"`
	SearchLimit      int     `yaml:"search_limit"`
	PlanAttempts     int     `yaml:"plan_attempts"`
	ArtifactDir      string  `yaml:"artifact_dir"`
	DBPath           string  `yaml:"db_path"`
	LogLevel         string  `yaml:"log_level"`
	LogFormat        string  `yaml:"log_format"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Model:            "gpt-4o-mini",
		TokenBudget:      50000,
		MaxDepth:         3,
		BreadthLimit:     4,
		MinCoverage:      0.75,
		StopIfConfidence: 0.85,
		ReplanMax:        2,
		RelevanceTopK:    40,
		SearchLimit:      5,
		PlanAttempts:     3,
		ArtifactDir:      ".deepresearch/runs",
		DBPath:           ".deepresearch/runs.db",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads path over the defaults. An empty path returns the defaults; a
// missing file is an error (the caller asked for it explicitly).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.TokenBudget <= 0 {
		return fmt.Errorf("config: token_budget must be positive, got %d", c.TokenBudget)
	}
	if c.MaxDepth < 1 || c.MaxDepth > 5 {
		return fmt.Errorf("config: max_depth %d outside [1, 5]", c.MaxDepth)
	}
	if c.BreadthLimit < 1 {
		return fmt.Errorf("config: breadth_limit must be at least 1, got %d", c.BreadthLimit)
	}
	if c.MinCoverage < 0 || c.MinCoverage > 1 {
		return fmt.Errorf("config: min_coverage %v outside [0, 1]", c.MinCoverage)
	}
	if c.StopIfConfidence < 0 || c.StopIfConfidence > 1 {
		return fmt.Errorf("config: stop_if_confidence %v outside [0, 1]", c.StopIfConfidence)
	}
	if c.ReplanMax < 0 {
		return fmt.Errorf("config: replan_max must not be negative, got %d", c.ReplanMax)
	}
	return nil
}
