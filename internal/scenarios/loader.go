// Package scenarios ships embedded offline research scenarios: a question
// plus scripted plan, search, summary, and evaluation responses. They power
// the demo command, the mock-run binary, and the MCP server's offline mode
// without any network or model access.
package scenarios

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"deepresearch/internal/llm"
)

//go:embed *.yaml
var scenarioFS embed.FS

// Hit is one canned search record for a query.
type Hit struct {
	URL     string `yaml:"url"`
	Summary string `yaml:"summary"`
}

// Scenario is one fully scripted research run.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Question    string            `yaml:"question"`
	Plan        string            `yaml:"plan"`        // JSON served to the planner prompt
	Evaluations []string          `yaml:"evaluations"` // JSON per round, last repeats
	Hits        map[string][]Hit  `yaml:"hits"`        // query -> records
	Summaries   map[string]string `yaml:"summaries"`   // source URL -> facts JSON
}

// Names lists the embedded scenario names, sorted.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(scenarioFS, ".")
	if err != nil {
		return nil, fmt.Errorf("scenarios: read embedded dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one embedded scenario by name.
func Load(name string) (*Scenario, error) {
	data, err := scenarioFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("scenarios: unknown scenario %q", name)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenarios: parse %s: %w", name, err)
	}
	if s.Question == "" || s.Plan == "" {
		return nil, fmt.Errorf("scenarios: scenario %q missing question or plan", name)
	}
	return &s, nil
}

// Generator builds the scripted generator for this scenario. Prompt markers
// match the planner, summarizer, and evaluator prompt templates.
func (s *Scenario) Generator() *llm.StubGenerator {
	gen := &llm.StubGenerator{
		Rules: []*llm.StubRule{
			{Contains: "research planner", Responses: []string{s.Plan}},
			{Contains: "Score the progress", Responses: s.Evaluations},
		},
	}
	// Stable rule order keeps repeated runs identical.
	urls := make([]string, 0, len(s.Summaries))
	for u := range s.Summaries {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	for _, u := range urls {
		gen.Rules = append(gen.Rules, &llm.StubRule{Contains: u, Responses: []string{s.Summaries[u]}})
	}
	return gen
}

// Searcher builds the fixture searcher for this scenario.
func (s *Scenario) Searcher() *llm.StubSearcher {
	hits := make(map[string][]llm.Record, len(s.Hits))
	for q, hs := range s.Hits {
		recs := make([]llm.Record, len(hs))
		for i, h := range hs {
			recs[i] = llm.Record{URL: h.URL, Summary: h.Summary}
		}
		hits[q] = recs
	}
	return &llm.StubSearcher{Hits: hits}
}
