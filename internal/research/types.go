// Package research implements the budget-bounded research control loop:
// plan, search, summarize, evaluate, decide, report — built on the flow
// engine with external generation and search collaborators.
package research

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Depth limits accepted by plan verification.
const (
	MinDepthLimit = 1
	MaxDepthLimit = 5
)

// Aspect is one named sub-question of a plan, carrying its own queries.
type Aspect struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Queries []string `json:"queries"`
}

// Plan is the frozen output of the planning stage. Once verified it is
// consumed read-only by the rest of the run.
type Plan struct {
	Question          string   `json:"question"`
	Aspects           []Aspect `json:"aspects"`
	DepthLimit        int      `json:"depth_limit"`
	BreadthLimit      int      `json:"breadth_limit"`
	InitialHypotheses []string `json:"initial_hypotheses,omitempty"`
	SuccessCriteria   []string `json:"success_criteria,omitempty"`
}

// VerifyResult reports deterministic plan validation.
type VerifyResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// VerifyPlan runs the deterministic plan checks. Verification is pure and
// idempotent: a valid plan always yields Valid with zero errors.
func VerifyPlan(p *Plan) VerifyResult {
	var errs []string
	if p == nil {
		return VerifyResult{Errors: []string{"plan is empty"}}
	}
	if strings.TrimSpace(p.Question) == "" {
		errs = append(errs, "question must not be empty")
	}
	if len(p.Aspects) == 0 {
		errs = append(errs, "plan must contain at least one aspect")
	}
	if p.BreadthLimit > 0 && len(p.Aspects) > p.BreadthLimit {
		errs = append(errs, fmt.Sprintf("aspect count %d exceeds breadth limit %d", len(p.Aspects), p.BreadthLimit))
	}
	if p.DepthLimit < MinDepthLimit || p.DepthLimit > MaxDepthLimit {
		errs = append(errs, fmt.Sprintf("depth limit %d outside [%d, %d]", p.DepthLimit, MinDepthLimit, MaxDepthLimit))
	}

	seenQueries := make(map[string]string) // lowercased query -> aspect id
	for i, a := range p.Aspects {
		if strings.TrimSpace(a.ID) == "" {
			errs = append(errs, fmt.Sprintf("aspect %d has an empty id", i))
		}
		if strings.TrimSpace(a.Title) == "" {
			errs = append(errs, fmt.Sprintf("aspect %q has an empty title", a.ID))
		}
		nonEmpty := 0
		for _, q := range a.Queries {
			if strings.TrimSpace(q) == "" {
				continue
			}
			nonEmpty++
			key := strings.ToLower(strings.TrimSpace(q))
			if prev, dup := seenQueries[key]; dup {
				errs = append(errs, fmt.Sprintf("duplicate query %q in aspects %q and %q", q, prev, a.ID))
				continue
			}
			seenQueries[key] = a.ID
		}
		if nonEmpty == 0 {
			errs = append(errs, fmt.Sprintf("aspect %q has no non-empty query", a.ID))
		}
	}
	return VerifyResult{Valid: len(errs) == 0, Errors: errs}
}

// Fact is an atomic, source-attributed, confidence-scored claim extracted
// from one record. Facts are never mutated after creation; compaction
// replaces groups with synthetic rollup facts instead.
type Fact struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	SourceURLs  []string  `json:"source_urls"`
	AspectID    string    `json:"aspect_id"`
	Confidence  float64   `json:"confidence"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// FactID is a pure function of the fact text: identical claims from
// different passes collapse to the same id regardless of their sources.
func FactID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// NewFact builds a fact with a derived id and clamped confidence.
func NewFact(text string, sources []string, aspectID string, confidence float64) Fact {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Fact{
		ID:          FactID(text),
		Text:        text,
		SourceURLs:  sources,
		AspectID:    aspectID,
		Confidence:  confidence,
		ExtractedAt: time.Now().UTC(),
	}
}

// Valid reports whether the fact carries both a claim and attribution.
func (f *Fact) Valid() bool {
	return strings.TrimSpace(f.Text) != "" && len(f.SourceURLs) > 0
}

// Evaluation scores aggregate progress for one round. Produced once per
// round, consumed immediately by the policy engine, then archived.
type Evaluation struct {
	CoverageScore    float64  `json:"coverage_score"`
	ConfidenceScore  float64  `json:"confidence_score"`
	SourceDiversity  float64  `json:"source_diversity"`
	AspectCompletion float64  `json:"aspect_completion"`
	MissingAspects   []string `json:"missing_aspects"`
	Notes            []string `json:"notes,omitempty"`
}

// MidpointEvaluation is the conservative substitute for malformed scorer
/// output: every score sits at 0.5 so the policy neither stops early nor
// burns the budget on false confidence.
func MidpointEvaluation(note string) Evaluation {
	e := Evaluation{
		CoverageScore:    0.5,
		ConfidenceScore:  0.5,
		SourceDiversity:  0.5,
		AspectCompletion: 0.5,
	}
	if note != "" {
		e.Notes = []string{note}
	}
	return e
}

// UnionSources returns the sorted union of source URLs across facts.
func UnionSources(facts []Fact) []string {
	seen := make(map[string]bool)
	for _, f := range facts {
		for _, u := range f.SourceURLs {
			if u != "" {
				seen[u] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
