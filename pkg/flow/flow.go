package flow

import (
	"context"
	"fmt"
	"log/slog"
)

// Flow walks a graph of nodes from a start node, following the action
// returned by each node's finalize. An action with no registered edge ends
// the flow normally: unmatched actions drain to completion instead of
// failing, so terminal nodes need no explicit sink.
type Flow struct {
	Name   string
	Start  *Node
	Logger *slog.Logger
}

// New creates a flow over the graph reachable from start.
func New(name string, start *Node) *Flow {
	return &Flow{Name: name, Start: start}
}

// Run executes nodes from Start until an action has no successor. The shared
// context is mutated in place; it is the only state carried between nodes.
func (f *Flow) Run(ctx context.Context, s Shared) error {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	node := f.Start
	for node != nil {
		if err := ctx.Err(); err != nil {
			return err
		}

		action, err := node.Run(ctx, s)
		if err != nil {
			return fmt.Errorf("flow %s: %w", f.Name, err)
		}
		if action == "" {
			action = DefaultAction
		}

		next, ok := node.Successor(action)
		if !ok {
			logger.Debug("flow complete", "flow", f.Name, "node", node.Name, "action", action)
			return nil
		}
		logger.Debug("flow transition", "flow", f.Name, "from", node.Name, "action", action, "to", next.Name)
		node = next
	}
	return nil
}

// BatchFlow runs the wrapped flow once per parameter set, sequentially,
// against the same shared context. Each parameter set is visible to the
// flow's nodes under ParamsKey for the duration of its run.
type BatchFlow struct {
	Flow      *Flow
	ParamsKey string
}

// Run executes the flow len(paramSets) times. The params key is removed from
// the shared context afterwards.
func (b *BatchFlow) Run(ctx context.Context, s Shared, paramSets []map[string]any) error {
	defer delete(s, b.ParamsKey)
	for i, ps := range paramSets {
		s[b.ParamsKey] = ps
		if err := b.Flow.Run(ctx, s); err != nil {
			return fmt.Errorf("batch flow: params set %d: %w", i, err)
		}
	}
	return nil
}
