package research

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validPlan() *Plan {
	return &Plan{
		Question: "how do solid state batteries age?",
		Aspects: []Aspect{
			{ID: "a1", Title: "Degradation mechanisms", Queries: []string{"solid state battery dendrite growth"}},
			{ID: "a2", Title: "Cycle life data", Queries: []string{"solid state battery cycle life study"}},
		},
		DepthLimit:   2,
		BreadthLimit: 4,
	}
}

func TestVerifyPlanValid(t *testing.T) {
	res := VerifyPlan(validPlan())
	if !res.Valid || len(res.Errors) != 0 {
		t.Fatalf("VerifyPlan(valid) = %+v, want valid with no errors", res)
	}
}

func TestVerifyPlanIdempotent(t *testing.T) {
	p := validPlan()
	first := VerifyPlan(p)
	second := VerifyPlan(p)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated verification diverged (-first +second):\n%s", diff)
	}
}

func TestVerifyPlanErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Plan)
		wantSub string
	}{
		{"empty question", func(p *Plan) { p.Question = " " }, "question"},
		{"no aspects", func(p *Plan) { p.Aspects = nil }, "at least one aspect"},
		{"breadth exceeded", func(p *Plan) { p.BreadthLimit = 1 }, "breadth limit"},
		{"depth too low", func(p *Plan) { p.DepthLimit = 0 }, "depth limit"},
		{"depth too high", func(p *Plan) { p.DepthLimit = 6 }, "depth limit"},
		{"empty aspect id", func(p *Plan) { p.Aspects[0].ID = "" }, "empty id"},
		{"empty title", func(p *Plan) { p.Aspects[1].Title = "" }, "empty title"},
		{"no queries", func(p *Plan) { p.Aspects[0].Queries = []string{"", "  "} }, "no non-empty query"},
		{
			"duplicate query across aspects case-insensitive",
			func(p *Plan) { p.Aspects[1].Queries = []string{"Solid State Battery Dendrite Growth"} },
			"duplicate query",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPlan()
			tc.mutate(p)
			res := VerifyPlan(p)
			if res.Valid {
				t.Fatal("plan unexpectedly valid")
			}
			found := false
			for _, e := range res.Errors {
				if strings.Contains(e, tc.wantSub) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v missing %q", res.Errors, tc.wantSub)
			}
		})
	}
}

func TestPlanSerializationStable(t *testing.T) {
	p := validPlan()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Plan
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(p, &back); diff != "" {
		t.Errorf("round trip changed the plan (-orig +back):\n%s", diff)
	}
	if res := VerifyPlan(&back); !res.Valid {
		t.Errorf("round-tripped plan failed verification: %v", res.Errors)
	}
}

func TestFactIDPure(t *testing.T) {
	a := NewFact("lithium metal anodes creep under stack pressure", []string{"https://a.example"}, "a1", 0.8)
	b := NewFact("lithium metal anodes creep under stack pressure", []string{"https://b.example"}, "a2", 0.2)
	if a.ID != b.ID {
		t.Errorf("same text produced different ids: %s vs %s", a.ID, b.ID)
	}
	c := NewFact("a different claim entirely", nil, "a1", 0.8)
	if c.ID == a.ID {
		t.Error("different text produced the same id")
	}
	if len(a.ID) != 16 {
		t.Errorf("id length = %d, want 16", len(a.ID))
	}
}

func TestNewFactClampsConfidence(t *testing.T) {
	if f := NewFact("x", []string{"u"}, "a1", 1.7); f.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", f.Confidence)
	}
	if f := NewFact("x", []string{"u"}, "a1", -0.3); f.Confidence != 0 {
		t.Errorf("confidence = %v, want clamped to 0", f.Confidence)
	}
}

func TestFactValid(t *testing.T) {
	f := NewFact("claim", []string{"https://a.example"}, "a1", 0.5)
	if !f.Valid() {
		t.Error("attributed fact reported invalid")
	}
	empty := NewFact("  ", []string{"https://a.example"}, "a1", 0.5)
	if empty.Valid() {
		t.Error("blank-text fact reported valid")
	}
	unsourced := NewFact("claim", nil, "a1", 0.5)
	if unsourced.Valid() {
		t.Error("unsourced fact reported valid")
	}
}

func TestMidpointEvaluation(t *testing.T) {
	e := MidpointEvaluation("scorer down")
	for name, v := range map[string]float64{
		"coverage":   e.CoverageScore,
		"confidence": e.ConfidenceScore,
		"diversity":  e.SourceDiversity,
		"completion": e.AspectCompletion,
	} {
		if v != 0.5 {
			t.Errorf("%s = %v, want 0.5", name, v)
		}
	}
	if len(e.Notes) != 1 {
		t.Errorf("notes = %v, want the passed note", e.Notes)
	}
}

func TestUnionSourcesSortedDeduped(t *testing.T) {
	facts := []Fact{
		NewFact("one", []string{"https://b.example", "https://a.example"}, "a1", 0.5),
		NewFact("two", []string{"https://a.example", ""}, "a1", 0.5),
	}
	got := UnionSources(facts)
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnionSources (-want +got):\n%s", diff)
	}
}
