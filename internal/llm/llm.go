// Package llm defines the external collaborator boundary: text generation
// and search. The control loop depends only on these interfaces; production
// adapters and test stubs both live behind them.
package llm

import "context"

// Generator is the text-generation collaborator. Model may be empty to use
// the adapter's default. Failures are returned as errors and are fatal
// unless the caller retries or degrades.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Record is one search hit: a source URL plus whatever summary text the
// search backend carries for it.
type Record struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Searcher is the retrieval collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Record, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt, model string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, model string) (string, error) {
	return f(ctx, prompt, model)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, limit int) ([]Record, error)

func (f SearcherFunc) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	return f(ctx, query, limit)
}
