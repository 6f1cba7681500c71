package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deepresearch/internal/llm"
)

// ErrPlanRejected is returned when every planning attempt produced an
// invalid plan. Planning is the one stage where malformed model output is
// fatal rather than locally recovered.
var ErrPlanRejected = fmt.Errorf("research: plan rejected")

// DefaultPlanAttempts bounds the generate-verify-reprompt loop.
const DefaultPlanAttempts = 3

const planPromptHeader = `You are a research planner. Break the question below into focused
research aspects, each with concrete search queries.

Respond with ONLY a JSON object, no markdown fences, no commentary:

{"question": "<the question>",
 "aspects": [{"id": "a1", "title": "<short title>", "queries": ["<query>", ...]}, ...],
 "depth_limit": <1-5 rounds of research>,
 "breadth_limit": <max aspects>,
 "initial_hypotheses": ["<optional>"],
 "success_criteria": ["<optional>"]}

Rules:
- at most %d aspects, each with at least one non-empty query
- no duplicate queries across aspects
- depth_limit between 1 and %d

Question: %s
`

// Planner turns a question into a verified Plan via the generation
// collaborator, re-prompting with the accumulated validation errors on
// each failed attempt.
type Planner struct {
	gen      llm.Generator
	model    string
	attempts int
	breadth  int
	depth    int
	logger   *slog.Logger
}

// NewPlanner wires a planner. attempts <= 0 selects DefaultPlanAttempts.
func NewPlanner(gen llm.Generator, model string, breadth, depth, attempts int, logger *slog.Logger) *Planner {
	if attempts <= 0 {
		attempts = DefaultPlanAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{gen: gen, model: model, attempts: attempts, breadth: breadth, depth: depth, logger: logger}
}

// Plan generates and verifies a plan for question. Each attempt's prompt
// carries the validation errors of the previous one; exhausting the attempt
// ceiling is a fatal planning failure.
func (p *Planner) Plan(ctx context.Context, question string) (*Plan, error) {
	var lastErrs []string
	for attempt := 1; attempt <= p.attempts; attempt++ {
		prompt := p.buildPrompt(question, lastErrs)
		out, err := p.gen.Generate(ctx, prompt, p.model)
		if err != nil {
			return nil, fmt.Errorf("research: plan generation: %w", err)
		}

		plan, perr := llm.ParseJSON[Plan]([]byte(out))
		if perr != nil {
			lastErrs = []string{fmt.Sprintf("response was not valid JSON: %v", perr)}
			p.logger.Warn("plan attempt rejected", "attempt", attempt, "errors", lastErrs)
			continue
		}

		p.normalize(plan, question)
		if res := VerifyPlan(plan); !res.Valid {
			lastErrs = res.Errors
			p.logger.Warn("plan attempt rejected", "attempt", attempt, "errors", lastErrs)
			continue
		}

		p.logger.Info("plan accepted", "attempt", attempt, "aspects", len(plan.Aspects), "depth", plan.DepthLimit)
		return plan, nil
	}
	return nil, fmt.Errorf("%w after %d attempts: %s", ErrPlanRejected, p.attempts, strings.Join(lastErrs, "; "))
}

func (p *Planner) buildPrompt(question string, prevErrs []string) string {
	prompt := fmt.Sprintf(planPromptHeader, p.breadth, MaxDepthLimit, question)
	if len(prevErrs) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\nYour previous plan was rejected. Fix these problems:\n")
	for _, e := range prevErrs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	return b.String()
}

// normalize fills defaults the model is allowed to omit. The question is
// always taken from the caller, never trusted from the response.
func (p *Planner) normalize(plan *Plan, question string) {
	plan.Question = question
	if plan.BreadthLimit <= 0 {
		plan.BreadthLimit = p.breadth
	}
	if plan.DepthLimit <= 0 {
		plan.DepthLimit = p.depth
	}
	for i := range plan.Aspects {
		if strings.TrimSpace(plan.Aspects[i].ID) == "" {
			plan.Aspects[i].ID = fmt.Sprintf("a%d", i+1)
		}
	}
}
