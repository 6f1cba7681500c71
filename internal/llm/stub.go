package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StubRule matches prompts containing a marker substring and serves canned
// responses in order, repeating the last one once exhausted.
type StubRule struct {
	Contains  string
	Responses []string

	next int
}

// StubGenerator is a scripted Generator for tests and offline runs. Rules
// are evaluated in order, first match wins; unmatched prompts get Default.
type StubGenerator struct {
	mu      sync.Mutex
	Rules   []*StubRule
	Default string
	Prompts []string // every prompt seen, in call order
}

// Generate matches the prompt against the rule list.
func (g *StubGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)

	for _, r := range g.Rules {
		if !strings.Contains(prompt, r.Contains) {
			continue
		}
		if len(r.Responses) == 0 {
			return "", fmt.Errorf("stub: rule %q has no responses", r.Contains)
		}
		resp := r.Responses[min(r.next, len(r.Responses)-1)]
		r.next++
		return resp, nil
	}
	if g.Default == "" {
		return "", fmt.Errorf("stub: no rule matches prompt %q", truncatePrompt(prompt))
	}
	return g.Default, nil
}

func truncatePrompt(p string) string {
	if len(p) > 80 {
		return p[:80] + "..."
	}
	return p
}

// StubSearcher serves fixture hits keyed by exact query text. Queries with
// no fixture return Fallback (which may be nil).
type StubSearcher struct {
	mu       sync.Mutex
	Hits     map[string][]Record
	Fallback []Record
	Queries  []string // every query seen, in call order
}

// Search returns at most limit fixture records for the query.
func (s *StubSearcher) Search(_ context.Context, query string, limit int) ([]Record, error) {
	s.mu.Lock()
	s.Queries = append(s.Queries, query)
	recs, ok := s.Hits[query]
	s.mu.Unlock()

	if !ok {
		recs = s.Fallback
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out, nil
}
