package flow

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// step returns a node that records its name and emits action.
func step(name, action string) *Node {
	return &Node{
		Name: name,
		Post: func(s Shared, prep, exec any) (string, error) {
			s.AppendTo("visited", name)
			return action, nil
		},
	}
}

func TestFlow_FollowsActions(t *testing.T) {
	a := step("a", "go")
	b := step("b", "")
	c := step("c", "end")
	a.Then("go", b)
	b.Next(c)

	s := Shared{}
	if err := New("route", a).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []any{"a", "b", "c"}
	if diff := cmp.Diff(want, s.GetSlice("visited")); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
}

func TestFlow_UnknownActionTerminatesWithoutError(t *testing.T) {
	a := step("a", "nowhere")
	a.Then("elsewhere", step("never", ""))

	s := Shared{}
	err := New("drain", a).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("unmatched action must end the flow normally, got error: %v", err)
	}

	want := []any{"a"}
	if diff := cmp.Diff(want, s.GetSlice("visited")); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
}

func TestFlow_CycleBoundedByAction(t *testing.T) {
	// a loops to itself until the counter reaches 3, then falls off the graph.
	a := &Node{Name: "loop"}
	a.Post = func(s Shared, prep, exec any) (string, error) {
		n := s.GetInt("count") + 1
		s["count"] = n
		if n < 3 {
			return "again", nil
		}
		return "done", nil
	}
	a.Then("again", a)

	s := Shared{}
	if err := New("cycle", a).Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.GetInt("count") != 3 {
		t.Errorf("count = %d, want 3", s.GetInt("count"))
	}
}

func TestBatchFlow_RunsOncePerParamSet(t *testing.T) {
	n := &Node{Name: "record"}
	n.Post = func(s Shared, prep, exec any) (string, error) {
		ps, _ := s["job"].(map[string]any)
		s.AppendTo("seen", ps["id"])
		return "", nil
	}

	bf := &BatchFlow{Flow: New("per-job", n), ParamsKey: "job"}
	s := Shared{}
	params := []map[string]any{{"id": "j1"}, {"id": "j2"}, {"id": "j3"}}
	if err := bf.Run(context.Background(), s, params); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []any{"j1", "j2", "j3"}
	if diff := cmp.Diff(want, s.GetSlice("seen")); diff != "" {
		t.Errorf("seen mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s["job"]; ok {
		t.Error("params key should be removed after the batch flow completes")
	}
}
