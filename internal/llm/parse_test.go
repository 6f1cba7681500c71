package llm

import (
	"context"
	"testing"

	"deepresearch/internal/budget"
)

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n\n", `{"a":1}`},
		{"empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := string(CleanJSON([]byte(c.in))); got != c.want {
				t.Errorf("CleanJSON = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Score float64 `json:"score"`
	}
	p, err := ParseJSON[payload]([]byte("```json\n{\"score\": 0.8}\n```"))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if p.Score != 0.8 {
		t.Errorf("Score = %v, want 0.8", p.Score)
	}

	if _, err := ParseJSON[payload]([]byte("not json at all")); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestStubGenerator_RuleOrderAndSequence(t *testing.T) {
	g := &StubGenerator{
		Rules: []*StubRule{
			{Contains: "plan", Responses: []string{"first", "second"}},
		},
		Default: "fallthrough",
	}

	ctx := context.Background()
	if out, _ := g.Generate(ctx, "make a plan", ""); out != "first" {
		t.Errorf("first call = %q", out)
	}
	if out, _ := g.Generate(ctx, "make a plan again", ""); out != "second" {
		t.Errorf("second call = %q", out)
	}
	if out, _ := g.Generate(ctx, "make a plan once more", ""); out != "second" {
		t.Errorf("exhausted rule should repeat last response, got %q", out)
	}
	if out, _ := g.Generate(ctx, "something else", ""); out != "fallthrough" {
		t.Errorf("default = %q", out)
	}
}

func TestTrackingGenerator_RecordsTokens(t *testing.T) {
	tr := budget.NewTracker(1000)
	inner := &StubGenerator{Default: "12345678"} // 2 tokens
	g := NewTrackingGenerator(inner, tr, budget.StagePlanning)

	prompt := "1234" // 1 token
	if _, err := g.Generate(context.Background(), prompt, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := tr.StageTotal(budget.StagePlanning); got != 3 {
		t.Errorf("planning stage total = %d, want 3 (1 prompt + 2 response)", got)
	}

	eval := g.WithStage(budget.StageEvaluation)
	if _, err := eval.Generate(context.Background(), prompt, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := tr.StageTotal(budget.StageEvaluation); got != 3 {
		t.Errorf("evaluation stage total = %d, want 3", got)
	}
}
