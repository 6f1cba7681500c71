package llm

import (
	"context"

	"deepresearch/internal/budget"
)

// TrackingGenerator wraps a Generator and records estimated prompt and
// response tokens against a budget stage for every call. The stage can be
// switched between pipeline phases; the underlying generator is unaware.
type TrackingGenerator struct {
	inner   Generator
	tracker *budget.Tracker
	stage   budget.Stage
}

// NewTrackingGenerator wraps inner, charging calls to the given stage.
func NewTrackingGenerator(inner Generator, tracker *budget.Tracker, stage budget.Stage) *TrackingGenerator {
	return &TrackingGenerator{inner: inner, tracker: tracker, stage: stage}
}

// WithStage returns a view of the same generator charging a different stage.
func (g *TrackingGenerator) WithStage(stage budget.Stage) *TrackingGenerator {
	return &TrackingGenerator{inner: g.inner, tracker: g.tracker, stage: stage}
}

// Generate delegates to the wrapped generator, recording token usage even
// when the call fails (the prompt was still spent).
func (g *TrackingGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	out, err := g.inner.Generate(ctx, prompt, model)
	tokens := budget.EstimateTokens(prompt) + budget.EstimateTokens(out)
	_ = g.tracker.Record(g.stage, tokens)
	return out, err
}

// Inner returns the wrapped generator.
func (g *TrackingGenerator) Inner() Generator { return g.inner }
