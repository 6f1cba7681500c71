package research

import (
	"context"
	"fmt"
	"log/slog"

	"deepresearch/internal/llm"
)

const summaryPrompt = `Extract atomic factual claims relevant to the research question from the
source below. Respond with ONLY a JSON object:

{"facts": [{"text": "<one self-contained claim>", "confidence": <0.0-1.0>}, ...]}

Return {"facts": []} if the source is irrelevant.

Research question: %s
Aspect: %s
Source URL: %s
Source content:
%s
`

// summaryResponse is the structured shape expected from the summarizer.
type summaryResponse struct {
	Facts []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"facts"`
}

// Summarizer turns one search record into zero or more facts tagged with
// the aspect that asked for it.
type Summarizer struct {
	gen    llm.Generator
	model  string
	logger *slog.Logger
}

// NewSummarizer wires a summarizer.
func NewSummarizer(gen llm.Generator, model string, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{gen: gen, model: model, logger: logger}
}

// Summarize extracts facts from one record. Malformed structured output is
// locally recovered as an empty summary rather than failing the round;
// only the generation call itself can error (and is retried by the engine).
func (s *Summarizer) Summarize(ctx context.Context, question string, aspect Aspect, rec llm.Record) ([]Fact, error) {
	prompt := fmt.Sprintf(summaryPrompt, question, aspect.Title, rec.URL, rec.Summary)
	out, err := s.gen.Generate(ctx, prompt, s.model)
	if err != nil {
		return nil, fmt.Errorf("research: summarize %s: %w", rec.URL, err)
	}

	resp, perr := llm.ParseJSON[summaryResponse]([]byte(out))
	if perr != nil {
		s.logger.Warn("malformed summary response; treating as empty", "url", rec.URL, "err", perr)
		return nil, nil
	}

	facts := make([]Fact, 0, len(resp.Facts))
	for _, rf := range resp.Facts {
		f := NewFact(rf.Text, []string{rec.URL}, aspect.ID, rf.Confidence)
		if !f.Valid() {
			continue
		}
		facts = append(facts, f)
	}
	return facts, nil
}
