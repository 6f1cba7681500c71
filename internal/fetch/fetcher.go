// Package fetch renders pages in a headless browser to recover source text
// when a search backend returns a bare URL with no summary.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"deepresearch/internal/llm"
)

// maxBodyLen caps extracted page text so one long page cannot dominate the
// summarization prompt.
const maxBodyLen = 8000

// PageFetcher renders URLs headlessly and extracts visible body text. It
// implements the control loop's Enricher.
type PageFetcher struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewPageFetcher builds a fetcher with a per-page timeout.
func NewPageFetcher(timeout time.Duration, logger *slog.Logger) *PageFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageFetcher{Timeout: timeout, Logger: logger}
}

// Enrich fills rec.Summary with rendered page text. A record that already
// has a summary passes through untouched.
func (f *PageFetcher) Enrich(ctx context.Context, rec llm.Record) (llm.Record, error) {
	if rec.Summary != "" {
		return rec, nil
	}
	text, err := f.fetch(ctx, rec.URL)
	if err != nil {
		return rec, fmt.Errorf("fetch: render %s: %w", rec.URL, err)
	}
	rec.Summary = text
	return rec, nil
}

func (f *PageFetcher) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var body string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}

	body = strings.TrimSpace(body)
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen]
	}
	f.Logger.Debug("page rendered", "url", url, "chars", len(body))
	return body, nil
}
