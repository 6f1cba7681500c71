package research

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"deepresearch/internal/artifact"
	"deepresearch/internal/budget"
	"deepresearch/internal/llm"
	"deepresearch/internal/store"
	"deepresearch/pkg/flow"
)

// Enricher backfills content for search records whose backend summary is
// empty, e.g. by rendering the page.
type Enricher interface {
	Enrich(ctx context.Context, rec llm.Record) (llm.Record, error)
}

// Options configures one run of the loop.
type Options struct {
	Model         string
	TokenBudget   int
	MaxDepth      int
	BreadthLimit  int
	SearchLimit   int
	PlanAttempts  int
	RelevanceTopK int
	ArtifactDir   string
	Policy        PolicyConfig
}

// Deps are the external collaborators of a run. Store and Enricher are
// optional; the loop runs without a run index or page fetcher.
type Deps struct {
	Generator llm.Generator
	Searcher  llm.Searcher
	Enricher  Enricher
	Store     store.Store
	Logger    *slog.Logger
}

// Result is the terminal outcome of a run. Failures still carry the run id
// so accumulated artifacts stay addressable.
type Result struct {
	Success      bool     `json:"success"`
	RunID        string   `json:"run_id"`
	Error        string   `json:"error,omitempty"`
	Decision     Decision `json:"decision"`
	Round        int      `json:"round"`
	FactCount    int      `json:"fact_count"`
	TokensUsed   int      `json:"tokens_used"`
	ReportPath   string   `json:"report_path,omitempty"`
	ManifestPath string   `json:"manifest_path,omitempty"`
}

// Runner drives the full research loop for one question at a time.
type Runner struct {
	opts   Options
	deps   Deps
	logger *slog.Logger
}

// NewRunner validates wiring and builds a runner.
func NewRunner(opts Options, deps Deps) (*Runner, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("research: runner needs a generator")
	}
	if deps.Searcher == nil {
		return nil, fmt.Errorf("research: runner needs a searcher")
	}
	if opts.TokenBudget <= 0 {
		return nil, fmt.Errorf("research: token budget must be positive")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{opts: opts, deps: deps, logger: logger}, nil
}

// searchTask pairs an aspect with one of its queries for the retrieval batch.
type searchTask struct {
	Aspect Aspect
	Query  string
}

// hit pairs an aspect with one search record for the summarize batch.
type hit struct {
	Aspect Aspect
	Rec    llm.Record
}

// Shared-context keys used by the run graph.
const (
	keyHits = "hits"
)

// Run executes plan → (search → summarize → evaluate → decide)* → report for
// one question. Any uncaught error is folded into a failed Result after the
// artifacts written so far are preserved.
func (r *Runner) Run(ctx context.Context, question string) Result {
	runID := uuid.New().String()
	logger := r.logger.With("run", runID)

	log, err := artifact.OpenLog(r.opts.ArtifactDir, runID)
	if err != nil {
		return Result{RunID: runID, Error: err.Error()}
	}
	tracker := budget.NewTracker(r.opts.TokenBudget)
	session := NewSession(runID, question, tracker, log)

	r.recordRunStart(session)

	runErr := r.buildFlow(session, logger).Run(ctx, flow.Shared{})
	result := r.finishResult(session, runErr)
	r.recordRunEnd(session, result)
	return result
}

// buildFlow wires the run graph around a session. Each decision action has
// an explicit edge; the report node is terminal.
func (r *Runner) buildFlow(s *Session, logger *slog.Logger) *flow.Flow {
	gen := llm.NewTrackingGenerator(r.deps.Generator, s.Budget, budget.StagePlanning)

	planner := NewPlanner(gen, r.opts.Model, r.opts.BreadthLimit, r.opts.MaxDepth, r.opts.PlanAttempts, logger)
	summarizer := NewSummarizer(gen.WithStage(budget.StageSummarization), r.opts.Model, logger)
	evaluator := NewEvaluator(gen.WithStage(budget.StageEvaluation), r.opts.Model, logger)
	policy := NewPolicyEngine(r.opts.Policy, logger)

	plan := r.planNode(s, planner)
	search := r.searchNode(s, logger)
	summarize := r.summarizeNode(s, summarizer, logger)
	evaluate := r.evaluateNode(s, evaluator, logger)
	decide := r.decideNode(s, policy, logger)
	replan := r.replanNode(s, logger)
	report := r.reportNode(s, logger)

	plan.Next(search)
	search.Next(summarize)
	summarize.Next(evaluate)
	evaluate.Next(decide)
	decide.Then(string(ActionContinue), search)
	decide.Then(string(ActionReplan), replan)
	decide.Then(string(ActionFinalizeFull), report)
	decide.Then(string(ActionFinalizePartial), report)
	replan.Next(search)

	f := flow.New("research", plan)
	f.Logger = logger
	return f
}

// planNode generates and verifies the plan, then logs one plan_node artifact
// per accepted aspect. Planning failures are fatal to the run.
func (r *Runner) planNode(s *Session, planner *Planner) *flow.Node {
	return &flow.Node{
		Name: "plan",
		Exec: func(ctx context.Context, _ any) (any, error) {
			return planner.Plan(ctx, s.Question)
		},
		Post: func(_ flow.Shared, _, exec any) (string, error) {
			plan := exec.(*Plan)
			s.Plan = plan
			s.PlanVersion = 1
			for _, a := range plan.Aspects {
				if _, err := s.Log.Store(artifact.TypePlanNode, a); err != nil {
					return "", err
				}
			}
			return "", nil
		},
	}
}

// searchNode fans every aspect × query pair through the searcher as a
// sequential batch, charging estimated tokens to the research stage. The
// flattened hits land in the shared context for the summarize node.
func (r *Runner) searchNode(s *Session, logger *slog.Logger) *flow.Node {
	n := flow.NewBatch("search", func(ctx context.Context, item any) (any, error) {
		task := item.(searchTask)
		recs, err := r.deps.Searcher.Search(ctx, task.Query, r.opts.SearchLimit)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", task.Query, err)
		}
		tokens := budget.EstimateTokens(task.Query)
		for i, rec := range recs {
			if rec.Summary == "" && r.deps.Enricher != nil {
				enriched, eerr := r.deps.Enricher.Enrich(ctx, rec)
				if eerr != nil {
					logger.Warn("page enrich failed", "url", rec.URL, "err", eerr)
				} else {
					recs[i] = enriched
					rec = enriched
				}
			}
			tokens += budget.EstimateTokens(rec.Summary)
		}
		if err := s.Budget.Record(budget.StageResearch, tokens); err != nil {
			return nil, err
		}
		hits := make([]hit, 0, len(recs))
		for _, rec := range recs {
			hits = append(hits, hit{Aspect: task.Aspect, Rec: rec})
		}
		return hits, nil
	})
	n.MaxRetries = 2
	n.Prep = func(_ flow.Shared) (any, error) {
		s.Round++
		var tasks []any
		for _, a := range s.Plan.Aspects {
			for _, q := range a.Queries {
				tasks = append(tasks, searchTask{Aspect: a, Query: q})
			}
		}
		logger.Info("search round", "round", s.Round, "tasks", len(tasks))
		return tasks, nil
	}
	n.Post = func(sh flow.Shared, _, exec any) (string, error) {
		var flat []any
		for _, group := range exec.([]any) {
			for _, h := range group.([]hit) {
				flat = append(flat, h)
			}
		}
		sh[keyHits] = flat
		return "", nil
	}
	return n
}

// summarizeNode extracts facts from every hit in parallel. Summarization
// failures degrade to an empty fact list after retries so one dead source
// cannot sink the round. New (deduplicated) facts are logged as artifacts.
func (r *Runner) summarizeNode(s *Session, summarizer *Summarizer, logger *slog.Logger) *flow.Node {
	n := flow.NewParallelBatch("summarize", func(ctx context.Context, item any) (any, error) {
		h := item.(hit)
		return summarizer.Summarize(ctx, s.Question, h.Aspect, h.Rec)
	})
	n.MaxRetries = 2
	n.Fallback = func(item any, err error) (any, error) {
		h := item.(hit)
		logger.Warn("summarization gave up on source", "url", h.Rec.URL, "err", err)
		return []Fact(nil), nil
	}
	n.Prep = func(sh flow.Shared) (any, error) {
		return sh.GetSlice(keyHits), nil
	}
	n.Post = func(sh flow.Shared, _, exec any) (string, error) {
		var facts []Fact
		for _, group := range exec.([]any) {
			facts = append(facts, group.([]Fact)...)
		}
		kept := s.AddFacts(facts)
		for _, f := range kept {
			if _, err := s.Log.Store(artifact.TypeFact, f); err != nil {
				return "", err
			}
		}
		delete(sh, keyHits)
		logger.Info("facts extracted", "round", s.Round, "new", len(kept), "total", s.FactCount())
		return "", nil
	}
	return n
}

// evaluateNode scores the round. If the scorer keeps failing, the midpoint
// evaluation stands in so the policy can still decide.
func (r *Runner) evaluateNode(s *Session, evaluator *Evaluator, logger *slog.Logger) *flow.Node {
	return &flow.Node{
		Name:       "evaluate",
		MaxRetries: 2,
		Exec: func(ctx context.Context, _ any) (any, error) {
			facts := s.Snapshot()
			return evaluator.Evaluate(ctx, s.Question, s.Plan, facts, len(UnionSources(facts)))
		},
		Fallback: func(_ any, err error) (any, error) {
			logger.Warn("evaluation failed; substituting midpoint", "err", err)
			return MidpointEvaluation("evaluation call failed; midpoint substituted"), nil
		},
		Post: func(_ flow.Shared, _, exec any) (string, error) {
			s.LastEval = exec.(Evaluation)
			if _, err := s.Log.Store(artifact.TypeEvaluation, s.LastEval); err != nil {
				return "", err
			}
			return "", nil
		},
	}
}

// decideNode runs the policy rules and routes the flow by the chosen action.
// Reaching the plan's depth limit overrides a continue decision: the run
// finalizes full or partial by whether coverage cleared the bar.
func (r *Runner) decideNode(s *Session, policy *PolicyEngine, logger *slog.Logger) *flow.Node {
	return &flow.Node{
		Name: "decide",
		Post: func(_ flow.Shared, _, _ any) (string, error) {
			in := PolicyInput{
				Coverage:       s.LastEval.CoverageScore,
				Confidence:     s.LastEval.ConfidenceScore,
				UsageRatio:     s.Budget.UsageRatio(),
				MissingAspects: len(s.LastEval.MissingAspects),
				ReplansUsed:    s.Replans,
			}
			d := policy.Decide(in)
			if d.Action == ActionContinue && s.Round >= s.Plan.DepthLimit {
				action := ActionFinalizePartial
				if in.Coverage >= r.opts.Policy.MinCoverage {
					action = ActionFinalizeFull
				}
				d = Decision{
					Action:      action,
					Rule:        d.Rule,
					Explanation: fmt.Sprintf("depth limit %d reached (was: %s)", s.Plan.DepthLimit, d.Explanation),
				}
			}
			s.LastDecision = d
			logger.Info("round decision", "round", s.Round, "action", string(d.Action), "rule", d.Rule, "why", d.Explanation)
			return string(d.Action), nil
		},
	}
}

// replanNode spends one replan attempt. Plan revision is intentionally a
// no-op today: the counter moves, the plan does not, and another round runs
// against the existing aspects.
func (r *Runner) replanNode(s *Session, logger *slog.Logger) *flow.Node {
	return &flow.Node{
		Name: "replan",
		Post: func(_ flow.Shared, _, _ any) (string, error) {
			s.Replans++
			logger.Info("replan requested; continuing with existing plan", "replans", s.Replans)
			return "", nil
		},
	}
}

// reportNode ranks, compacts, renders, and writes the report and manifest.
// It has no outgoing edges; its action drains the flow.
func (r *Runner) reportNode(s *Session, logger *slog.Logger) *flow.Node {
	return &flow.Node{
		Name: "report",
		Exec: func(_ context.Context, _ any) (any, error) {
			facts := RankFacts(s.Snapshot(), s.Question, r.opts.RelevanceTopK)
			facts = CompactFacts(facts)
			md := RenderReport(ReportInput{
				Question:  s.Question,
				Plan:      s.Plan,
				Facts:     facts,
				Eval:      s.LastEval,
				Decision:  s.LastDecision,
				Tracker:   s.Budget,
				Round:     s.Round,
				Replans:   s.Replans,
				StartedAt: s.StartedAt,
			})
			if err := s.Budget.Record(budget.StageReport, budget.EstimateTokens(md)); err != nil {
				return nil, err
			}
			return md, nil
		},
		Post: func(_ flow.Shared, _, exec any) (string, error) {
			dir := filepath.Dir(s.Log.Path())
			reportPath := filepath.Join(dir, "report.md")
			if err := os.WriteFile(reportPath, []byte(exec.(string)), 0o644); err != nil {
				return "", fmt.Errorf("write report: %w", err)
			}
			if err := WriteManifest(dir, BuildManifest(s, s.Budget)); err != nil {
				return "", err
			}
			logger.Info("run finalized", "action", string(s.LastDecision.Action),
				"rounds", s.Round, "facts", s.FactCount(), "tokens", s.Budget.Summary())
			return "done", nil
		},
	}
}

func (r *Runner) finishResult(s *Session, runErr error) Result {
	res := Result{
		RunID:      s.RunID,
		Decision:   s.LastDecision,
		Round:      s.Round,
		FactCount:  s.FactCount(),
		TokensUsed: s.Budget.Total(),
	}
	if runErr != nil {
		res.Error = runErr.Error()
		return res
	}
	dir := filepath.Dir(s.Log.Path())
	res.Success = true
	res.ReportPath = filepath.Join(dir, "report.md")
	res.ManifestPath = filepath.Join(dir, "manifest.json")
	return res
}

func (r *Runner) recordRunStart(s *Session) {
	if r.deps.Store == nil {
		return
	}
	err := r.deps.Store.CreateRun(&store.Run{
		ID:          s.RunID,
		Question:    s.Question,
		Status:      store.StatusRunning,
		TokenBudget: s.Budget.Budget(),
	})
	if err != nil {
		r.logger.Warn("run index create failed", "err", err)
	}
}

func (r *Runner) recordRunEnd(s *Session, res Result) {
	if r.deps.Store == nil {
		return
	}
	status := store.StatusFailed
	switch {
	case res.Success && res.Decision.Action == ActionFinalizeFull:
		status = store.StatusComplete
	case res.Success:
		status = store.StatusPartial
	}
	err := r.deps.Store.UpdateRun(&store.Run{
		ID:           s.RunID,
		Question:     s.Question,
		Status:       status,
		Round:        res.Round,
		FactCount:    res.FactCount,
		TokensUsed:   res.TokensUsed,
		TokenBudget:  s.Budget.Budget(),
		ReportPath:   res.ReportPath,
		ManifestPath: res.ManifestPath,
	})
	if err != nil {
		r.logger.Warn("run index update failed", "err", err)
	}
}
