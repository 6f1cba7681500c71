package research

import (
	"fmt"
	"log/slog"
)

// Action is the closed set of per-round control decisions.
type Action string

const (
	ActionContinue        Action = "continue"
	ActionReplan          Action = "replan"
	ActionFinalizeFull    Action = "finalize_full"
	ActionFinalizePartial Action = "finalize_partial"
)

// PolicyConfig holds the thresholds the decision rules compare against.
// Values are configurable; the rule ORDER is not.
type PolicyConfig struct {
	MinCoverage      float64 // coverage considered "good enough" (default 0.75)
	StopIfConfidence float64 // confidence that ends the run early (default 0.85)
	NearBudgetRatio  float64 // usage ratio treated as "almost out" (default 0.8)
	ReplanMax        int     // cap on replan attempts (default 2)
}

// DefaultPolicyConfig returns the reference thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinCoverage:      0.75,
		StopIfConfidence: 0.85,
		NearBudgetRatio:  0.8,
		ReplanMax:        2,
	}
}

// PolicyInput is the per-round signal snapshot the rules evaluate.
type PolicyInput struct {
	Coverage       float64
	Confidence     float64
	UsageRatio     float64 // consumed tokens / budget
	MissingAspects int
	ReplansUsed    int
}

// Decision is the action chosen by the first matching rule.
type Decision struct {
	Action      Action `json:"action"`
	Rule        string `json:"rule"`
	Explanation string `json:"explanation"`
}

// PolicyRule is one ordered decision rule. Evaluate returns nil when the
// rule does not apply.
type PolicyRule struct {
	ID       string
	Name     string
	Evaluate func(in PolicyInput) *Decision
}

// PolicyEngine evaluates the ordered rule list, first match wins. The rule
// ordering is part of the contract: reordering changes run behavior.
type PolicyEngine struct {
	rules  []PolicyRule
	logger *slog.Logger
}

// NewPolicyEngine builds the eight reference rules from cfg.
func NewPolicyEngine(cfg PolicyConfig, logger *slog.Logger) *PolicyEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyEngine{logger: logger, rules: []PolicyRule{
		{
			ID: "P1", Name: "budget-exhausted",
			Evaluate: func(in PolicyInput) *Decision {
				if in.UsageRatio < 1.0 {
					return nil
				}
				return &Decision{
					Action:      ActionFinalizePartial,
					Explanation: fmt.Sprintf("token usage %.0f%% of budget; finalize with what we have", in.UsageRatio*100),
				}
			},
		},
		{
			ID: "P2", Name: "confident-stop",
			Evaluate: func(in PolicyInput) *Decision {
				if in.Confidence < cfg.StopIfConfidence {
					return nil
				}
				return &Decision{
					Action:      ActionFinalizeFull,
					Explanation: fmt.Sprintf("confidence %.2f >= %.2f; stop early", in.Confidence, cfg.StopIfConfidence),
				}
			},
		},
		{
			ID: "P3", Name: "near-budget-low-coverage",
			Evaluate: func(in PolicyInput) *Decision {
				if in.UsageRatio < cfg.NearBudgetRatio || in.Coverage >= cfg.MinCoverage {
					return nil
				}
				return &Decision{
					Action:      ActionFinalizePartial,
					Explanation: fmt.Sprintf("usage %.0f%% with coverage %.2f < %.2f; not enough budget left to close the gap", in.UsageRatio*100, in.Coverage, cfg.MinCoverage),
				}
			},
		},
		{
			ID: "P4", Name: "gaps-replan",
			Evaluate: func(in PolicyInput) *Decision {
				if in.MissingAspects < 2 || in.ReplansUsed >= cfg.ReplanMax {
					return nil
				}
				return &Decision{
					Action:      ActionReplan,
					Explanation: fmt.Sprintf("%d aspects missing with %d/%d replans used; replan", in.MissingAspects, in.ReplansUsed, cfg.ReplanMax),
				}
			},
		},
		{
			ID: "P5", Name: "replans-spent-low-coverage",
			Evaluate: func(in PolicyInput) *Decision {
				if in.ReplansUsed < cfg.ReplanMax || in.Coverage >= cfg.MinCoverage {
					return nil
				}
				return &Decision{
					Action:      ActionFinalizePartial,
					Explanation: fmt.Sprintf("replans exhausted (%d) and coverage %.2f < %.2f", in.ReplansUsed, in.Coverage, cfg.MinCoverage),
				}
			},
		},
		{
			ID: "P6", Name: "replans-spent-good-coverage",
			Evaluate: func(in PolicyInput) *Decision {
				if in.ReplansUsed < cfg.ReplanMax || in.Coverage < cfg.MinCoverage {
					return nil
				}
				return &Decision{
					Action:      ActionFinalizeFull,
					Explanation: fmt.Sprintf("replans exhausted (%d) but coverage %.2f >= %.2f", in.ReplansUsed, in.Coverage, cfg.MinCoverage),
				}
			},
		},
		{
			ID: "P7", Name: "coverage-gap-keep-going",
			Evaluate: func(in PolicyInput) *Decision {
				if in.Coverage >= cfg.MinCoverage || in.UsageRatio >= cfg.NearBudgetRatio {
					return nil
				}
				return &Decision{
					Action:      ActionContinue,
					Explanation: fmt.Sprintf("coverage %.2f < %.2f with %.0f%% budget used; another round", in.Coverage, cfg.MinCoverage, in.UsageRatio*100),
				}
			},
		},
		{
			ID: "P8", Name: "default-continue",
			Evaluate: func(in PolicyInput) *Decision {
				return &Decision{Action: ActionContinue, Explanation: "no terminal rule matched; continue"}
			},
		},
	}}
}

// Decide evaluates the rules in order and returns the first match. P8
// always matches, so a decision is always produced.
func (e *PolicyEngine) Decide(in PolicyInput) Decision {
	for _, r := range e.rules {
		d := r.Evaluate(in)
		if d == nil {
			continue
		}
		d.Rule = r.ID
		e.logger.Debug("policy decision",
			"rule", r.ID, "name", r.Name, "action", string(d.Action),
			"coverage", in.Coverage, "confidence", in.Confidence,
			"usage", in.UsageRatio, "missing", in.MissingAspects, "replans", in.ReplansUsed)
		return *d
	}
	// Unreachable: the default rule always fires.
	return Decision{Action: ActionContinue, Rule: "P8", Explanation: "fallthrough"}
}
