package research

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"deepresearch/internal/budget"
	"deepresearch/internal/format"
)

// ReportInput bundles everything the report renderer needs. Facts are
// expected already ranked and compacted.
type ReportInput struct {
	Question  string
	Plan      *Plan
	Facts     []Fact
	Eval      Evaluation
	Decision  Decision
	Tracker   *budget.Tracker
	Round     int
	Replans   int
	StartedAt time.Time
}

// RenderReport produces the final Markdown report. Sections in fixed order:
// Executive Summary, Key Findings, Detailed Analysis (per aspect),
// Remaining Gaps, Methodology, Sources. Sources are numbered S1..Sn over
// the distinct URLs, sorted, and facts cite them inline.
func RenderReport(in ReportInput) string {
	sources := UnionSources(in.Facts)
	sourceIdx := make(map[string]int, len(sources))
	for i, u := range sources {
		sourceIdx[u] = i + 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report: %s\n\n", in.Question)

	b.WriteString("## Executive Summary\n\n")
	writeExecutiveSummary(&b, in, len(sources))

	b.WriteString("\n## Key Findings\n\n")
	for _, f := range topFacts(in.Facts, 5) {
		fmt.Fprintf(&b, "- %s %s\n", f.Text, citation(f, sourceIdx))
	}

	b.WriteString("\n## Detailed Analysis\n\n")
	byAspect := factsByAspect(in.Facts)
	for _, a := range planAspects(in.Plan) {
		fmt.Fprintf(&b, "### %s\n\n", a.Title)
		group := byAspect[a.ID]
		if len(group) == 0 {
			b.WriteString("No supporting findings were collected for this aspect.\n\n")
			continue
		}
		for _, f := range group {
			fmt.Fprintf(&b, "- (%.2f) %s %s\n", f.Confidence, f.Text, citation(f, sourceIdx))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Remaining Gaps\n\n")
	writeGaps(&b, in)

	b.WriteString("\n## Methodology\n\n")
	writeMethodology(&b, in, len(sources))

	b.WriteString("\n## Sources\n\n")
	for i, u := range sources {
		fmt.Fprintf(&b, "- S%d: %s – %s\n", i+1, u, sourceDescription(u, in.Facts))
	}

	return b.String()
}

func writeExecutiveSummary(b *strings.Builder, in ReportInput, sourceCount int) {
	outcome := "completed"
	if in.Decision.Action == ActionFinalizePartial {
		outcome = "ended with partial coverage"
	}
	fmt.Fprintf(b,
		"The research run %s after %d round(s), collecting %d fact(s) from %d distinct source(s). "+
			"Final coverage %s, confidence %s.\n",
		outcome, in.Round, len(in.Facts), sourceCount,
		format.FmtPercent(in.Eval.CoverageScore), format.FmtPercent(in.Eval.ConfidenceScore))
	if in.Decision.Explanation != "" {
		fmt.Fprintf(b, "Stop reason: %s.\n", in.Decision.Explanation)
	}
}

func writeGaps(b *strings.Builder, in ReportInput) {
	if len(in.Eval.MissingAspects) == 0 && in.Decision.Action == ActionFinalizeFull {
		b.WriteString("No material gaps remain against the research plan.\n")
		return
	}
	titles := aspectTitles(in.Plan)
	for _, id := range in.Eval.MissingAspects {
		title := titles[id]
		if title == "" {
			title = id
		}
		fmt.Fprintf(b, "- %s: insufficient supporting facts were found.\n", title)
	}
	if in.Decision.Action == ActionFinalizePartial {
		b.WriteString("- The run stopped before full coverage; findings above should be read as preliminary.\n")
	}
}

func writeMethodology(b *strings.Builder, in ReportInput, sourceCount int) {
	fmt.Fprintf(b, "Iterative plan-search-summarize-evaluate loop; %d round(s), %d replan(s), %d source(s).\n",
		in.Round, in.Replans, sourceCount)
	b.WriteString("Fact relevance is a heuristic blend of confidence, recency, and keyword overlap (no embedding similarity).\n\n")

	if in.Tracker != nil {
		b.WriteString("| Stage | Tokens |\n|---|---|\n")
		usage := in.Tracker.Usage()
		for _, s := range budget.Stages() {
			fmt.Fprintf(b, "| %s | %s |\n", s, format.FmtTokens(usage[s]))
		}
		fmt.Fprintf(b, "| **total** | %s of %s |\n",
			format.FmtTokens(in.Tracker.Total()), format.FmtTokens(in.Tracker.Budget()))
	}
	if !in.StartedAt.IsZero() {
		fmt.Fprintf(b, "\nElapsed: %s.\n", format.FmtDuration(time.Since(in.StartedAt)))
	}
}

// citation renders the inline [S1, S3] marker for a fact.
func citation(f Fact, idx map[string]int) string {
	var nums []int
	for _, u := range f.SourceURLs {
		if n, ok := idx[u]; ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return ""
	}
	sort.Ints(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("S%d", n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// sourceDescription picks the highest-confidence fact citing the URL as its
// one-line description.
func sourceDescription(url string, facts []Fact) string {
	best := ""
	bestConf := -1.0
	for _, f := range facts {
		for _, u := range f.SourceURLs {
			if u == url && f.Confidence > bestConf {
				best, bestConf = f.Text, f.Confidence
			}
		}
	}
	if best == "" {
		return "cited source"
	}
	return format.Truncate(best, 120)
}

func topFacts(facts []Fact, n int) []Fact {
	sorted := make([]Fact, len(facts))
	copy(sorted, facts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func factsByAspect(facts []Fact) map[string][]Fact {
	out := make(map[string][]Fact)
	for _, f := range facts {
		out[f.AspectID] = append(out[f.AspectID], f)
	}
	return out
}

func planAspects(p *Plan) []Aspect {
	if p == nil {
		return nil
	}
	return p.Aspects
}

func aspectTitles(p *Plan) map[string]string {
	out := make(map[string]string)
	for _, a := range planAspects(p) {
		out[a.ID] = a.Title
	}
	return out
}
