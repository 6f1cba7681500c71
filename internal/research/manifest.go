package research

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deepresearch/internal/budget"
)

// ManifestSource records how often one URL backed the final fact set.
type ManifestSource struct {
	URL       string `json:"url"`
	FactsUsed int    `json:"facts_used"`
}

// Manifest is the machine-readable run summary written exactly once, next
// to the report, when a run finalizes.
type Manifest struct {
	Question         string                `json:"question"`
	RunID            string                `json:"run_id"`
	PlanVersion      int                   `json:"plan_version"`
	TokenUsage       map[budget.Stage]int  `json:"token_usage"`
	TokenBudget      int                   `json:"token_budget"`
	DepthReached     int                   `json:"depth_reached"`
	AspectsCompleted []string              `json:"aspects_completed"`
	Sources          []ManifestSource      `json:"sources"`
	Decision         Decision              `json:"decision"`
	Timestamp        time.Time             `json:"timestamp"`
}

// BuildManifest assembles the manifest from the finished session state.
func BuildManifest(s *Session, tracker *budget.Tracker) Manifest {
	counts := make(map[string]int)
	for _, f := range s.Facts {
		for _, u := range f.SourceURLs {
			if u != "" {
				counts[u]++
			}
		}
	}
	sources := make([]ManifestSource, 0, len(counts))
	for _, u := range UnionSources(s.Facts) {
		sources = append(sources, ManifestSource{URL: u, FactsUsed: counts[u]})
	}

	completed := completedAspects(s.Plan, s.LastEval)

	return Manifest{
		Question:         s.Question,
		RunID:            s.RunID,
		PlanVersion:      s.PlanVersion,
		TokenUsage:       tracker.Usage(),
		TokenBudget:      tracker.Budget(),
		DepthReached:     s.Round,
		AspectsCompleted: completed,
		Sources:          sources,
		Decision:         s.LastDecision,
		Timestamp:        time.Now().UTC(),
	}
}

// completedAspects is the plan's aspect ids minus the evaluation's missing
// set, in plan order.
func completedAspects(p *Plan, eval Evaluation) []string {
	missing := make(map[string]bool, len(eval.MissingAspects))
	for _, id := range eval.MissingAspects {
		missing[id] = true
	}
	out := []string{}
	for _, a := range planAspects(p) {
		if !missing[a.ID] {
			out = append(out, a.ID)
		}
	}
	return out
}

// WriteManifest serializes the manifest to dir/manifest.json.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("research: marshal manifest: %w", err)
	}
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("research: write manifest: %w", err)
	}
	return nil
}
