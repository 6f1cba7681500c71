// Package budget tracks estimated token consumption per pipeline stage
// against a fixed per-run ceiling.
package budget

import (
	"fmt"
	"sort"
	"sync"
)

// Stage names the pipeline stages that consume tokens.
type Stage string

const (
	StagePlanning      Stage = "planning"
	StageResearch      Stage = "research"
	StageSummarization Stage = "summarization"
	StageEvaluation    Stage = "evaluation"
	StageReport        Stage = "report"
)

// Stages lists all known stages in display order.
func Stages() []Stage {
	return []Stage{StagePlanning, StageResearch, StageSummarization, StageEvaluation, StageReport}
}

// ErrUnknownStage is returned by Record for a stage name outside the fixed set.
var ErrUnknownStage = fmt.Errorf("budget: unknown stage")

// Tracker accumulates per-stage token usage. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	budget int
	usage  map[Stage]int
}

// NewTracker creates a tracker with the given total budget.
func NewTracker(total int) *Tracker {
	usage := make(map[Stage]int, len(Stages()))
	for _, s := range Stages() {
		usage[s] = 0
	}
	return &Tracker{budget: total, usage: usage}
}

// Record adds tokens to a stage's running total.
// Unknown stage names are rejected; totals only ever grow.
func (t *Tracker) Record(stage Stage, tokens int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.usage[stage]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if tokens < 0 {
		return fmt.Errorf("budget: negative token count %d for stage %q", tokens, stage)
	}
	t.usage[stage] += tokens
	return nil
}

// Budget returns the fixed total budget.
func (t *Tracker) Budget() int { return t.budget }

// Total returns the sum of all stage totals.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

func (t *Tracker) totalLocked() int {
	sum := 0
	for _, n := range t.usage {
		sum += n
	}
	return sum
}

// Remaining returns budget minus total, floored at zero.
func (t *Tracker) Remaining() int {
	if r := t.budget - t.Total(); r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether the total has reached the budget.
func (t *Tracker) Exhausted() bool { return t.Total() >= t.budget }

// NearLimit reports whether the total has reached 90% of the budget.
func (t *Tracker) NearLimit() bool { return float64(t.Total()) >= 0.9*float64(t.budget) }

// WouldExceed reports whether adding predicted tokens would pass the budget.
func (t *Tracker) WouldExceed(predicted int) bool { return t.Total()+predicted > t.budget }

// UsageRatio returns total/budget. A zero budget reads as fully used.
func (t *Tracker) UsageRatio() float64 {
	if t.budget <= 0 {
		return 1.0
	}
	return float64(t.Total()) / float64(t.budget)
}

// Usage returns a copy of the per-stage totals.
func (t *Tracker) Usage() map[Stage]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Stage]int, len(t.usage))
	for s, n := range t.usage {
		out[s] = n
	}
	return out
}

// StageTotal returns the running total for one stage (0 for unknown stages).
func (t *Tracker) StageTotal(stage Stage) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage[stage]
}

// Summary renders a stable "stage=n" listing for logs.
func (t *Tracker) Summary() string {
	usage := t.Usage()
	keys := make([]string, 0, len(usage))
	for s := range usage {
		keys = append(keys, string(s))
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", k, usage[Stage(k)])
	}
	return out
}

// EstimateTokens estimates the token count of text at ~4 characters per token,
// rounding up. Deliberately crude but deterministic; swapping in a real
// tokenizer changes downstream budget behavior and is not done silently.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
