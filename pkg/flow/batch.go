package flow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// NewBatch builds a node whose execute phase applies execItem to every
// element of the prepared []any sequentially, preserving input order.
// Non-list prepare output yields an empty result list. Retry and fallback
// apply per item.
func NewBatch(name string, execItem func(ctx context.Context, item any) (any, error)) *Node {
	return &Node{
		Name:  name,
		batch: &batchSpec{execItem: execItem},
	}
}

// NewParallelBatch is NewBatch with one goroutine per item. Each item gets
// its own retry loop; results land in a pre-sized slice at the item's
// original index, so output order equals input order regardless of
// completion order.
func NewParallelBatch(name string, execItem func(ctx context.Context, item any) (any, error)) *Node {
	return &Node{
		Name:  name,
		batch: &batchSpec{parallel: true, execItem: execItem},
	}
}

func (n *Node) execBatch(ctx context.Context, prep any) (any, error) {
	items, ok := prep.([]any)
	if !ok || items == nil {
		return []any{}, nil
	}

	itemFn := func(ctx context.Context, item any) (any, error) {
		return n.execWithRetry(ctx, n.batch.execItem, item)
	}

	if !n.batch.parallel {
		out := make([]any, len(items))
		for i, item := range items {
			r, err := itemFn(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	}

	out := make([]any, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			r, err := itemFn(gctx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
