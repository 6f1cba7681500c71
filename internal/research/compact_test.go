package research

import (
	"strings"
	"testing"
)

func TestCompactFactsPassthroughBelowThreshold(t *testing.T) {
	facts := []Fact{
		NewFact("short claim one", []string{"https://a.example"}, "a1", 0.9),
		NewFact("short claim two", []string{"https://b.example"}, "a1", 0.8),
	}
	got := CompactFacts(facts)
	if len(got) != len(facts) {
		t.Fatalf("compacted %d facts below threshold, want passthrough", len(got))
	}
}

// bulkyFact builds a fact large enough that a handful of them cross the
// compaction threshold.
func bulkyFact(tag, aspect string, conf float64) Fact {
	text := tag + ": " + strings.Repeat("finding detail ", 500)
	return NewFact(text, []string{"https://" + tag + ".example"}, aspect, conf)
}

func TestCompactFactsRollsUpLargeGroups(t *testing.T) {
	facts := []Fact{
		bulkyFact("f1", "a1", 0.9),
		bulkyFact("f2", "a1", 0.5),
		bulkyFact("f3", "a1", 0.8),
		bulkyFact("f4", "a1", 0.3),
		bulkyFact("f5", "a1", 0.7),
		// second aspect small enough to pass untouched
		bulkyFact("g1", "a2", 0.6),
		bulkyFact("g2", "a2", 0.4),
	}
	got := CompactFacts(facts)

	var a1, a2 []Fact
	for _, f := range got {
		switch f.AspectID {
		case "a1":
			a1 = append(a1, f)
		case "a2":
			a2 = append(a2, f)
		}
	}

	// top-3 by confidence plus one rollup
	if len(a1) != 4 {
		t.Fatalf("aspect a1 compacted to %d facts, want 4", len(a1))
	}
	for i, tag := range []string{"f1", "f3", "f5"} {
		if !strings.HasPrefix(a1[i].Text, tag) {
			t.Errorf("kept fact %d = %q..., want prefix %s", i, a1[i].Text[:8], tag)
		}
	}

	rollup := a1[3]
	if !strings.Contains(rollup.Text, "Condensed from 2") {
		t.Errorf("rollup text = %q, want condensation marker", rollup.Text[:60])
	}
	wantMean := (0.5 + 0.3) / 2
	if diff := rollup.Confidence - wantMean; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("rollup confidence = %v, want mean %v", rollup.Confidence, wantMean)
	}
	wantSources := map[string]bool{"https://f2.example": true, "https://f4.example": true}
	if len(rollup.SourceURLs) != 2 || !wantSources[rollup.SourceURLs[0]] || !wantSources[rollup.SourceURLs[1]] {
		t.Errorf("rollup sources = %v, want union of overflow sources", rollup.SourceURLs)
	}

	if len(a2) != 2 {
		t.Errorf("aspect a2 compacted to %d facts, want untouched 2", len(a2))
	}
}

func TestCompactFactsDoesNotMutateInput(t *testing.T) {
	facts := []Fact{
		bulkyFact("f1", "a1", 0.9),
		bulkyFact("f2", "a1", 0.5),
		bulkyFact("f3", "a1", 0.8),
		bulkyFact("f4", "a1", 0.3),
		bulkyFact("f5", "a1", 0.7),
	}
	before := make([]string, len(facts))
	for i, f := range facts {
		before[i] = f.ID
	}
	_ = CompactFacts(facts)
	for i, f := range facts {
		if f.ID != before[i] {
			t.Fatalf("input fact %d mutated", i)
		}
	}
}
