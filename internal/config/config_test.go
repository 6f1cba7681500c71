package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.TokenBudget != 50000 || cfg.MaxDepth != 3 || cfg.BreadthLimit != 4 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MinCoverage != 0.75 || cfg.StopIfConfidence != 0.85 || cfg.ReplanMax != 2 {
		t.Errorf("policy defaults = %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "token_budget: 9000\nmax_depth: 2\nmodel: test-model\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenBudget != 9000 || cfg.MaxDepth != 2 || cfg.Model != "test-model" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// untouched keys keep their defaults
	if cfg.BreadthLimit != 4 || cfg.SearchLimit != 5 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load(missing) succeeded, want error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero budget", func(c *Config) { c.TokenBudget = 0 }, "token_budget"},
		{"depth too high", func(c *Config) { c.MaxDepth = 9 }, "max_depth"},
		{"zero breadth", func(c *Config) { c.BreadthLimit = 0 }, "breadth_limit"},
		{"coverage above one", func(c *Config) { c.MinCoverage = 1.5 }, "min_coverage"},
		{"negative replan cap", func(c *Config) { c.ReplanMax = -1 }, "replan_max"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate passed, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q missing %q", err, tc.want)
			}
		})
	}
}
