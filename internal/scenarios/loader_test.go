package scenarios

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNamesListsEmbedded(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	want := map[string]bool{"solid_state_batteries": true, "urban_heat_islands": true}
	for _, n := range names {
		delete(want, n)
	}
	if len(want) != 0 {
		t.Errorf("missing embedded scenarios: %v (got %v)", want, names)
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("no-such-scenario"); err == nil {
		t.Error("Load(unknown) succeeded, want error")
	}
}

func TestScenariosAreWellFormed(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			var plan map[string]any
			if err := json.Unmarshal([]byte(s.Plan), &plan); err != nil {
				t.Errorf("plan is not valid JSON: %v", err)
			}
			for i, ev := range s.Evaluations {
				var e map[string]any
				if err := json.Unmarshal([]byte(ev), &e); err != nil {
					t.Errorf("evaluation %d is not valid JSON: %v", i, err)
				}
			}
			// every hit URL has a scripted summary
			for q, hits := range s.Hits {
				for _, h := range hits {
					if _, ok := s.Summaries[h.URL]; !ok {
						t.Errorf("query %q hit %s has no scripted summary", q, h.URL)
					}
				}
			}
		})
	}
}

func TestGeneratorServesScriptedResponses(t *testing.T) {
	s, err := Load("solid_state_batteries")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	gen := s.Generator()

	out, err := gen.Generate(context.Background(), "You are a research planner. "+s.Question, "")
	if err != nil {
		t.Fatalf("Generate(plan): %v", err)
	}
	if !strings.Contains(out, "Interface degradation") {
		t.Errorf("plan response = %q", out)
	}

	out, err = gen.Generate(context.Background(), "Source URL: https://example.org/dendrite-pressure", "")
	if err != nil {
		t.Fatalf("Generate(summary): %v", err)
	}
	if !strings.Contains(out, "filament penetration") {
		t.Errorf("summary response = %q", out)
	}
}

func TestSearcherServesFixtures(t *testing.T) {
	s, err := Load("solid_state_batteries")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	recs, err := s.Searcher().Search(context.Background(), "solid state battery interface degradation", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].URL != "https://example.org/ssb-interface-review" {
		t.Errorf("first record = %s", recs[0].URL)
	}
}
