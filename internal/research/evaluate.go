package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deepresearch/internal/format"
	"deepresearch/internal/llm"
)

const evalPrompt = `Score the progress of a research run. Respond with ONLY a JSON object:

{"coverage_score": <0.0-1.0 how much of the question is answered>,
 "confidence_score": <0.0-1.0 how well-supported the answers are>,
 "source_diversity": <0.0-1.0>,
 "aspect_completion": <0.0-1.0>,
 "missing_aspects": ["<aspect id with insufficient facts>", ...],
 "notes": ["<short observation>", ...]}

Research question: %s

Aspects:
%s
Distinct sources so far: %d

Accumulated facts:
%s`

// Evaluator scores aggregate progress once per round.
type Evaluator struct {
	gen    llm.Generator
	model  string
	logger *slog.Logger
}

// NewEvaluator wires an evaluator.
func NewEvaluator(gen llm.Generator, model string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{gen: gen, model: model, logger: logger}
}

// Evaluate scores the run. Malformed scorer output degrades to the
// conservative midpoint evaluation instead of failing the round; a failed
// generation call is returned as an error for the engine to retry.
func (e *Evaluator) Evaluate(ctx context.Context, question string, plan *Plan, facts []Fact, sourceCount int) (Evaluation, error) {
	prompt := fmt.Sprintf(evalPrompt, question, aspectDigest(plan), sourceCount, factDigest(facts))
	out, err := e.gen.Generate(ctx, prompt, e.model)
	if err != nil {
		return Evaluation{}, fmt.Errorf("research: evaluate: %w", err)
	}

	ev, perr := llm.ParseJSON[Evaluation]([]byte(out))
	if perr != nil {
		e.logger.Warn("malformed evaluation response; substituting midpoint", "err", perr)
		return MidpointEvaluation("scorer output was malformed; midpoint substituted"), nil
	}
	clampEvaluation(ev)
	return *ev, nil
}

func clampEvaluation(e *Evaluation) {
	clamp := func(v *float64) {
		if *v < 0 {
			*v = 0
		}
		if *v > 1 {
			*v = 1
		}
	}
	clamp(&e.CoverageScore)
	clamp(&e.ConfidenceScore)
	clamp(&e.SourceDiversity)
	clamp(&e.AspectCompletion)
}

func aspectDigest(plan *Plan) string {
	if plan == nil {
		return "(no plan)"
	}
	var b strings.Builder
	for _, a := range plan.Aspects {
		fmt.Fprintf(&b, "- %s: %s (%d queries)\n", a.ID, a.Title, len(a.Queries))
	}
	return b.String()
}

func factDigest(facts []Fact) string {
	if len(facts) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "- [%s, %.2f] %s\n", f.AspectID, f.Confidence, format.Truncate(f.Text, 200))
	}
	return b.String()
}
