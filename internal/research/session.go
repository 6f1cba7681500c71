package research

import (
	"sync"
	"time"

	"deepresearch/internal/artifact"
	"deepresearch/internal/budget"
)

// Session is the accumulating state of one research run. It outlives
// individual flow rounds and is shared across the nodes of the run graph.
type Session struct {
	mu sync.Mutex

	RunID       string
	Question    string
	Plan        *Plan
	PlanVersion int

	Facts        []Fact
	factIDs      map[string]bool
	Round        int
	Replans      int
	LastEval     Evaluation
	LastDecision Decision

	Budget    *budget.Tracker
	Log       *artifact.Log
	StartedAt time.Time
}

// NewSession starts the state for one run.
func NewSession(runID, question string, tracker *budget.Tracker, log *artifact.Log) *Session {
	return &Session{
		RunID:     runID,
		Question:  question,
		Budget:    tracker,
		Log:       log,
		factIDs:   make(map[string]bool),
		StartedAt: time.Now().UTC(),
	}
}

// AddFacts appends facts, dropping any whose id is already present, and
// returns the ones actually kept. Because fact ids derive from the claim
// text, repeat extractions of the same claim collapse here.
func (s *Session) AddFacts(facts []Fact) []Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Fact
	for _, f := range facts {
		if s.factIDs[f.ID] {
			continue
		}
		s.factIDs[f.ID] = true
		s.Facts = append(s.Facts, f)
		kept = append(kept, f)
	}
	return kept
}

// FactCount returns the deduplicated fact count.
func (s *Session) FactCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Facts)
}

// Snapshot returns a copy of the fact slice safe to read concurrently with
// further AddFacts calls.
func (s *Session) Snapshot() []Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Fact, len(s.Facts))
	copy(out, s.Facts)
	return out
}
