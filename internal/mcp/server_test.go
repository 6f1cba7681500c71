package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"deepresearch/internal/llm"
	"deepresearch/internal/research"
	"deepresearch/internal/scenarios"
	"deepresearch/internal/store"
)

func scenarioFactory(t *testing.T) RunnerFactory {
	t.Helper()
	dir := t.TempDir()
	return func(name string) (*research.Runner, error) {
		if name == "" {
			name = "solid_state_batteries"
		}
		sc, err := scenarios.Load(name)
		if err != nil {
			return nil, err
		}
		return research.NewRunner(
			research.Options{
				Model:        "mock",
				TokenBudget:  100000,
				MaxDepth:     3,
				BreadthLimit: 4,
				SearchLimit:  5,
				ArtifactDir:  dir,
				Policy:       research.DefaultPolicyConfig(),
			},
			research.Deps{
				Generator: sc.Generator(),
				Searcher:  sc.Searcher(),
				Store:     store.NewMemStore(),
			},
		)
	}
}

func startScenarioSession(t *testing.T, s *Server) string {
	t.Helper()
	sc, err := scenarios.Load("solid_state_batteries")
	if err != nil {
		t.Fatalf("Load scenario: %v", err)
	}
	_, out, err := s.handleStartResearch(context.Background(), nil, startResearchInput{
		Question: sc.Question,
		Scenario: "solid_state_batteries",
	})
	if err != nil {
		t.Fatalf("start_research: %v", err)
	}
	if out.SessionID == "" {
		t.Fatal("start_research returned no session id")
	}
	return out.SessionID
}

func TestStartResearchAndGetReport(t *testing.T) {
	s := NewServer(scenarioFactory(t))
	defer s.Shutdown()

	id := startScenarioSession(t, s)

	_, rep, err := s.handleGetReport(context.Background(), nil, getReportInput{SessionID: id})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if rep.Status != string(StateDone) {
		t.Fatalf("status = %s (%s), want done", rep.Status, rep.Error)
	}
	for _, section := range []string{"## Executive Summary", "## Sources"} {
		if !strings.Contains(rep.Report, section) {
			t.Errorf("report missing %q", section)
		}
	}
	if rep.ManifestPath == "" {
		t.Error("report output missing manifest path")
	}

	_, st, err := s.handleGetStatus(context.Background(), nil, getStatusInput{SessionID: id})
	if err != nil {
		t.Fatalf("get_status: %v", err)
	}
	if st.Status != string(StateDone) || st.FactCount == 0 {
		t.Errorf("status after completion = %+v", st)
	}
}

func TestSessionIDMismatch(t *testing.T) {
	s := NewServer(scenarioFactory(t))
	defer s.Shutdown()

	startScenarioSession(t, s)
	if _, _, err := s.handleGetStatus(context.Background(), nil, getStatusInput{SessionID: "wrong"}); err == nil {
		t.Error("get_status with wrong session id succeeded")
	}
}

func TestNoActiveSession(t *testing.T) {
	s := NewServer(scenarioFactory(t))
	if _, _, err := s.handleGetStatus(context.Background(), nil, getStatusInput{SessionID: "any"}); err == nil {
		t.Error("get_status with no session succeeded")
	}
}

func TestStartReplacesFinishedSession(t *testing.T) {
	s := NewServer(scenarioFactory(t))
	defer s.Shutdown()

	first := startScenarioSession(t, s)
	_, _, err := s.handleGetReport(context.Background(), nil, getReportInput{SessionID: first})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}

	second := startScenarioSession(t, s)
	if second == first {
		t.Error("second session reused the first id")
	}
}

func TestUnknownScenarioFailsStart(t *testing.T) {
	s := NewServer(scenarioFactory(t))
	_, _, err := s.handleStartResearch(context.Background(), nil, startResearchInput{
		Question: "q",
		Scenario: "does-not-exist",
	})
	if err == nil {
		t.Error("start_research with unknown scenario succeeded")
	}
}

func TestSessionTTLCancelsRun(t *testing.T) {
	blocked := make(chan struct{})
	factory := func(string) (*research.Runner, error) {
		return research.NewRunner(
			research.Options{
				Model:        "mock",
				TokenBudget:  100000,
				MaxDepth:     3,
				BreadthLimit: 4,
				ArtifactDir:  t.TempDir(),
				Policy:       research.DefaultPolicyConfig(),
			},
			research.Deps{
				Generator: blockingGenerator{blocked},
				Searcher:  unusedSearcher{},
			},
		)
	}
	old := DefaultSessionTTL
	DefaultSessionTTL = 50 * time.Millisecond
	defer func() { DefaultSessionTTL = old }()

	s := NewServer(factory)
	defer s.Shutdown()
	_, out, err := s.handleStartResearch(context.Background(), nil, startResearchInput{Question: "q"})
	if err != nil {
		t.Fatalf("start_research: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, rep, err := s.handleGetReport(ctx, nil, getReportInput{SessionID: out.SessionID})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if rep.Status != string(StateError) {
		t.Errorf("status = %s, want error after TTL cancellation", rep.Status)
	}
	close(blocked)
}

type blockingGenerator struct{ release chan struct{} }

func (g blockingGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-g.release:
		return "", context.Canceled
	}
}

type unusedSearcher struct{}

func (unusedSearcher) Search(context.Context, string, int) ([]llm.Record, error) {
	return nil, nil
}
