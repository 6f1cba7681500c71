// Package flow is a small workflow engine: nodes with a
// prepare/execute/finalize lifecycle and bounded retry, wired into directed
// graphs by named actions, with sequential and parallel batch variants.
package flow

import (
	"context"
	"fmt"
	"time"
)

// DefaultAction is followed when a node's finalize returns an empty action.
const DefaultAction = "default"

// Node is one unit of work. All run state lives in the Shared context passed
// through the lifecycle; the Node itself is immutable during execution, so a
// single graph can serve concurrent runs.
//
// Lifecycle: Prep reads the shared context and returns the execute input;
// Exec performs the work (it must not touch the shared context — batch and
// parallel variants call it off to the side); Post writes results back and
// returns the action selecting the outgoing edge. Exec is retried up to
// MaxRetries attempts with a fixed Wait between attempts; after the last
// failure Fallback is consulted once, and its result (or error) stands.
type Node struct {
	Name string

	// MaxRetries is the total number of Exec attempts (minimum 1).
	MaxRetries int
	// Wait is the fixed delay between retry attempts.
	Wait time.Duration

	// Params carries static per-node configuration, readable from Prep/Post.
	Params map[string]any

	Prep     func(s Shared) (any, error)
	Exec     func(ctx context.Context, prep any) (any, error)
	Post     func(s Shared, prep, exec any) (string, error)
	Fallback func(prep any, err error) (any, error)

	successors map[string]*Node
	batch      *batchSpec
}

// batchSpec marks a node built by NewBatch/NewParallelBatch.
type batchSpec struct {
	parallel bool
	execItem func(ctx context.Context, item any) (any, error)
}

// Then registers next as the successor for action and returns next, so
// chains read left to right. Edges are set once at graph construction and
// never change during execution.
func (n *Node) Then(action string, next *Node) *Node {
	if n.successors == nil {
		n.successors = make(map[string]*Node)
	}
	n.successors[action] = next
	return next
}

// Next registers next under the default action.
func (n *Node) Next(next *Node) *Node {
	return n.Then(DefaultAction, next)
}

// Successor looks up the node registered for action.
func (n *Node) Successor(action string) (*Node, bool) {
	next, ok := n.successors[action]
	return next, ok
}

// Run executes the full lifecycle of this single node against s and returns
// the action chosen by Post ("" means the default action).
func (n *Node) Run(ctx context.Context, s Shared) (string, error) {
	prep, err := n.prepare(s)
	if err != nil {
		return "", fmt.Errorf("node %s: prepare: %w", n.Name, err)
	}

	var exec any
	if n.batch != nil {
		exec, err = n.execBatch(ctx, prep)
	} else {
		exec, err = n.execWithRetry(ctx, n.Exec, prep)
	}
	if err != nil {
		return "", fmt.Errorf("node %s: execute: %w", n.Name, err)
	}

	if n.Post == nil {
		return "", nil
	}
	action, err := n.Post(s, prep, exec)
	if err != nil {
		return "", fmt.Errorf("node %s: finalize: %w", n.Name, err)
	}
	return action, nil
}

func (n *Node) prepare(s Shared) (any, error) {
	if n.Prep == nil {
		return nil, nil
	}
	return n.Prep(s)
}

// execWithRetry runs fn up to MaxRetries attempts. A nil fn passes prep
// through unchanged. After the final failed attempt the Fallback hook is
// invoked exactly once; without a Fallback the last error is returned.
func (n *Node) execWithRetry(ctx context.Context, fn func(context.Context, any) (any, error), prep any) (any, error) {
	if fn == nil {
		return prep, nil
	}

	attempts := n.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && n.Wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(n.Wait):
			}
		}
		out, err := fn(ctx, prep)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}

	if n.Fallback != nil {
		return n.Fallback(prep, lastErr)
	}
	return nil, lastErr
}
