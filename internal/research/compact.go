package research

import (
	"fmt"
	"sort"
	"strings"

	"deepresearch/internal/budget"
)

// CompactThreshold is the estimated token size above which the fact set is
// compacted before report generation.
const CompactThreshold = 8000

// compactKeep is how many facts per aspect survive compaction verbatim.
const compactKeep = 3

// CompactFacts shrinks a fact set that would overflow the report stage.
// Below the threshold the input passes through untouched. Above it, each
// aspect keeps its top facts by confidence; the remainder of an aspect's
// facts collapse into one synthetic rollup fact carrying the union of their
// sources and their mean confidence. Original facts are never mutated.
func CompactFacts(facts []Fact) []Fact {
	if estimateFactTokens(facts) <= CompactThreshold {
		return facts
	}

	groups := make(map[string][]Fact)
	var order []string
	for _, f := range facts {
		if _, ok := groups[f.AspectID]; !ok {
			order = append(order, f.AspectID)
		}
		groups[f.AspectID] = append(groups[f.AspectID], f)
	}

	var out []Fact
	for _, aspectID := range order {
		group := groups[aspectID]
		if len(group) <= compactKeep {
			out = append(out, group...)
			continue
		}
		sorted := make([]Fact, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Confidence > sorted[j].Confidence
		})
		out = append(out, sorted[:compactKeep]...)
		out = append(out, rollupFact(aspectID, sorted[compactKeep:]))
	}
	return out
}

// rollupFact folds the overflow facts of one aspect into a single synthetic
// fact: truncated concatenated text, union of sources, mean confidence.
func rollupFact(aspectID string, overflow []Fact) Fact {
	texts := make([]string, 0, len(overflow))
	sum := 0.0
	for _, f := range overflow {
		texts = append(texts, f.Text)
		sum += f.Confidence
	}
	text := strings.Join(texts, " ")
	const maxRollupLen = 600
	if len(text) > maxRollupLen {
		text = text[:maxRollupLen] + "..."
	}
	text = fmt.Sprintf("Condensed from %d further findings: %s", len(overflow), text)
	return NewFact(text, UnionSources(overflow), aspectID, sum/float64(len(overflow)))
}

func estimateFactTokens(facts []Fact) int {
	total := 0
	for _, f := range facts {
		total += budget.EstimateTokens(f.Text)
	}
	return total
}
