package research

import (
	"sort"
	"strings"
	"time"
)

// Relevance weights. Confidence dominates; recency and keyword overlap with
// the question break ties. Deliberately a cheap heuristic — no embedding
// similarity — matching the report's claims about its own methodology.
const (
	weightConfidence = 0.5
	weightRecency    = 0.3
	weightKeywords   = 0.2
)

// RankFacts orders facts by descending relevance to the question and keeps
// at most topK (topK <= 0 keeps all). The input slice is not modified.
func RankFacts(facts []Fact, question string, topK int) []Fact {
	if len(facts) == 0 {
		return nil
	}
	ranked := make([]Fact, len(facts))
	copy(ranked, facts)

	keywords := questionKeywords(question)
	newest, oldest := timeBounds(ranked)

	score := func(f Fact) float64 {
		return weightConfidence*f.Confidence +
			weightRecency*recencyScore(f.ExtractedAt, oldest, newest) +
			weightKeywords*keywordScore(f.Text, keywords)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func questionKeywords(question string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, ".,;:?!\"'()")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func keywordScore(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func timeBounds(facts []Fact) (newest, oldest time.Time) {
	newest, oldest = facts[0].ExtractedAt, facts[0].ExtractedAt
	for _, f := range facts[1:] {
		if f.ExtractedAt.After(newest) {
			newest = f.ExtractedAt
		}
		if f.ExtractedAt.Before(oldest) {
			oldest = f.ExtractedAt
		}
	}
	return newest, oldest
}

// recencyScore maps extraction time linearly onto [0,1] within the
// observed window; a single-instant window scores 1 for everything.
func recencyScore(at, oldest, newest time.Time) float64 {
	window := newest.Sub(oldest)
	if window <= 0 {
		return 1
	}
	return float64(at.Sub(oldest)) / float64(window)
}
