package research

import (
	"testing"
	"time"
)

// factAt builds a fact with a pinned extraction time so recency is
// controlled by the test, not the clock.
func factAt(text string, conf float64, at time.Time) Fact {
	f := NewFact(text, []string{"https://src.example"}, "a1", conf)
	f.ExtractedAt = at
	return f
}

func TestRankFactsConfidenceDominates(t *testing.T) {
	now := time.Now().UTC()
	facts := []Fact{
		factAt("weak unrelated claim", 0.1, now),
		factAt("strong unrelated claim", 0.95, now),
		factAt("medium unrelated claim", 0.5, now),
	}
	got := RankFacts(facts, "battery aging", 0)
	if got[0].Text != "strong unrelated claim" {
		t.Errorf("top fact = %q, want highest confidence first", got[0].Text)
	}
	if got[2].Text != "weak unrelated claim" {
		t.Errorf("last fact = %q, want lowest confidence last", got[2].Text)
	}
}

func TestRankFactsKeywordOverlapBreaksTies(t *testing.T) {
	now := time.Now().UTC()
	facts := []Fact{
		factAt("a claim about cooking pasta", 0.5, now),
		factAt("a claim about battery degradation", 0.5, now),
	}
	got := RankFacts(facts, "battery degradation mechanisms", 0)
	if got[0].Text != "a claim about battery degradation" {
		t.Errorf("top fact = %q, want keyword match first", got[0].Text)
	}
}

func TestRankFactsRecencyBreaksTies(t *testing.T) {
	old := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC()
	facts := []Fact{
		factAt("stale unrelated claim", 0.5, old),
		factAt("fresh unrelated claim", 0.5, fresh),
	}
	got := RankFacts(facts, "battery", 0)
	if got[0].Text != "fresh unrelated claim" {
		t.Errorf("top fact = %q, want most recent first", got[0].Text)
	}
}

func TestRankFactsTopK(t *testing.T) {
	now := time.Now().UTC()
	facts := []Fact{
		factAt("one", 0.9, now),
		factAt("two", 0.8, now),
		factAt("three", 0.7, now),
	}
	got := RankFacts(facts, "q", 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want topK 2", len(got))
	}
	if got[0].Text != "one" || got[1].Text != "two" {
		t.Errorf("topK kept %q, %q", got[0].Text, got[1].Text)
	}
	if len(facts) != 3 {
		t.Error("input slice truncated")
	}
}

func TestRankFactsEmpty(t *testing.T) {
	if got := RankFacts(nil, "q", 5); got != nil {
		t.Errorf("RankFacts(nil) = %v, want nil", got)
	}
}
