package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"context"

	"golang.org/x/sync/errgroup"
)

// BranchInputSuffix marks keys that carry per-branch input. Keys ending in
// this suffix are excluded from the merge under the default skip-set.
const BranchInputSuffix = "_input"

// ParallelBatchFlow runs a whole flow once per parameter set, each run in its
// own goroutine against an isolated one-level-deep copy of the shared
// context. After all branches join, each branch context is merged back into
// the original, key by key:
//
//   - keys in the skip-set are ignored (default skip-set: ParamsKey plus any
//     key ending in BranchInputSuffix);
//   - map + map merges sub-keys, later branches overwriting same-named ones;
//   - list + list concatenates the elements a branch appended beyond the
//     pre-fan-out prefix — unless the caller explicitly emptied the
//     skip-set, which flips lists to last-writer-wins;
//   - anything else overwrites.
//
// Nodes chained after the fan-out then run once against the merged context.
type ParallelBatchFlow struct {
	Flow *Flow

	// ParamsKey is the context key under which each branch receives its
	// parameter set.
	ParamsKey string

	// SkipKeys overrides the merge skip-set. nil selects the default;
	// a non-nil empty slice empties it (and makes list merges overwrite).
	SkipKeys []string

	Logger *slog.Logger
}

// Run fans the flow out across paramSets and merges the branch contexts back
// into s. Branch goroutines never touch s directly; reconciliation happens
// only after the join barrier.
func (p *ParallelBatchFlow) Run(ctx context.Context, s Shared, paramSets []map[string]any) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := s.Clone()
	branches := make([]Shared, len(paramSets))

	g, gctx := errgroup.WithContext(ctx)
	for i, ps := range paramSets {
		branch := s.Clone()
		branch[p.ParamsKey] = ps
		branches[i] = branch
		g.Go(func() error {
			if err := p.Flow.Run(gctx, branch); err != nil {
				return fmt.Errorf("branch %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("parallel batch flow: %w", err)
	}

	concatLists := !(p.SkipKeys != nil && len(p.SkipKeys) == 0)
	for _, branch := range branches {
		p.merge(s, branch, base, concatLists)
	}
	logger.Debug("parallel branches merged", "flow", p.Flow.Name, "branches", len(branches))
	return nil
}

func (p *ParallelBatchFlow) merge(dst, src, base Shared, concatLists bool) {
	for key, sv := range src {
		if p.skipped(key) {
			continue
		}

		dv, exists := dst[key]
		if !exists {
			dst[key] = sv
			continue
		}

		switch dm := dv.(type) {
		case map[string]any:
			if sm, ok := sv.(map[string]any); ok {
				for k, v := range sm {
					dm[k] = v
				}
				continue
			}
		case []any:
			if sl, ok := sv.([]any); ok {
				if !concatLists {
					dst[key] = sl
					continue
				}
				// Branches start from a copy of the pre-fan-out list;
				// only the elements they appended past that prefix are new.
				prefix := 0
				if bl, ok := base[key].([]any); ok {
					prefix = len(bl)
				}
				if len(sl) < prefix {
					dst[key] = sl
					continue
				}
				dst[key] = append(dm, sl[prefix:]...)
				continue
			}
		}
		dst[key] = sv
	}
}

func (p *ParallelBatchFlow) skipped(key string) bool {
	if p.SkipKeys == nil {
		return key == p.ParamsKey || strings.HasSuffix(key, BranchInputSuffix)
	}
	for _, k := range p.SkipKeys {
		if key == k {
			return true
		}
	}
	return false
}
