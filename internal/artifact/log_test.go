package artifact

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := OpenLog(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	return l
}

func TestLog_StoreAndLoad(t *testing.T) {
	l := openTestLog(t)

	if _, err := l.Store(TypeQuery, map[string]any{"text": "ptp offset"}); err != nil {
		t.Fatalf("Store query: %v", err)
	}
	if _, err := l.Store(TypeFact, map[string]any{
		"text":        "clocks drift",
		"source_urls": []string{"https://example.com/a"},
	}); err != nil {
		t.Fatalf("Store fact: %v", err)
	}

	all, err := l.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("LoadAll returned %d artifacts, want 2", len(all))
	}
	if all[0].Type != TypeQuery || all[1].Type != TypeFact {
		t.Errorf("append order not preserved: %v, %v", all[0].Type, all[1].Type)
	}

	facts, err := l.LoadByType(TypeFact)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("LoadByType(fact) returned %d, want 1", len(facts))
	}
}

func TestLog_RejectsUnknownType(t *testing.T) {
	l := openTestLog(t)
	_, err := l.Store(Type("doodle"), map[string]any{})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}

	all, err := l.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected store must not append, log has %d records", len(all))
	}
}

func TestLog_ContentDerivedID(t *testing.T) {
	l := openTestLog(t)
	a1, err := l.Store(TypeFact, map[string]any{"text": "same"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	a2, err := l.Store(TypeFact, map[string]any{"text": "same"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if a1.ID != a2.ID {
		t.Errorf("identical content should share an id: %s vs %s", a1.ID, a2.ID)
	}

	a3, _ := l.Store(TypeFact, map[string]any{"text": "different"})
	if a3.ID == a1.ID {
		t.Error("different content must not share an id")
	}
}

func TestLog_QueryByDataField(t *testing.T) {
	l := openTestLog(t)
	mustStore := func(data map[string]any) {
		t.Helper()
		if _, err := l.Store(TypeFact, data); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	mustStore(map[string]any{"text": "f1", "aspect_id": "a1"})
	mustStore(map[string]any{"text": "f2", "aspect_id": "a2"})
	mustStore(map[string]any{"text": "f3", "aspect_id": "a1"})

	got, err := l.Query(TypeFact, map[string]any{"aspect_id": "a1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d artifacts, want 2", len(got))
	}
}

func TestLog_UniqueSources(t *testing.T) {
	l := openTestLog(t)
	mustStore := func(t2 Type, data map[string]any) {
		t.Helper()
		if _, err := l.Store(t2, data); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	mustStore(TypeFact, map[string]any{"text": "f1", "source_urls": []string{"https://b.example", "https://a.example"}})
	mustStore(TypeFact, map[string]any{"text": "f2", "source_urls": []string{"https://a.example"}})
	// Non-fact artifacts are ignored by the union.
	mustStore(TypeQuery, map[string]any{"source_urls": []string{"https://c.example"}})

	got, err := l.UniqueSources()
	if err != nil {
		t.Fatalf("UniqueSources: %v", err)
	}
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}
