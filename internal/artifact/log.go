package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Log is the append-only on-disk artifact store for one run. It exclusively
// owns its file: other components only ever append through Store or read
// through the load methods. Every read re-scans the full file — O(n) per
// query, intentionally simple at this system's scale (no in-memory index).
type Log struct {
	mu   sync.Mutex
	path string
}

// OpenLog creates (or reopens) the artifact log for a run, creating the
// parent directory as needed.
func OpenLog(dir, runID string) (*Log, error) {
	runDir := filepath.Join(dir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create run dir: %w", err)
	}
	return &Log{path: filepath.Join(runDir, "artifacts.jsonl")}, nil
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Store validates, envelopes, and appends one artifact as a single JSON line.
func (l *Log) Store(t Type, data any) (*Artifact, error) {
	a, err := New(t, data)
	if err != nil {
		return nil, err
	}
	line, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("artifact: marshal envelope: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("artifact: open log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("artifact: append: %w", err)
	}
	return a, nil
}

// LoadAll reads every artifact in append order. A missing file is an empty log.
func (l *Log) LoadAll() ([]Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: open log: %w", err)
	}
	defer f.Close()

	var out []Artifact
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var a Artifact
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			return nil, fmt.Errorf("artifact: line %d: %w", lineNo, err)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("artifact: scan log: %w", err)
	}
	return out, nil
}

// LoadByType filters LoadAll down to one type.
func (l *Log) LoadByType(t Type) ([]Artifact, error) {
	all, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	var out []Artifact
	for _, a := range all {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out, nil
}

// Query filters artifacts of one type by equality on top-level data fields.
// Criteria values compare against the decoded JSON value (strings, numbers
// as float64, bools).
func (l *Log) Query(t Type, criteria map[string]any) ([]Artifact, error) {
	typed, err := l.LoadByType(t)
	if err != nil {
		return nil, err
	}
	if len(criteria) == 0 {
		return typed, nil
	}
	var out []Artifact
	for _, a := range typed {
		var data map[string]any
		if err := json.Unmarshal(a.Data, &data); err != nil {
			continue // non-object data never matches field criteria
		}
		if matchesCriteria(data, criteria) {
			out = append(out, a)
		}
	}
	return out, nil
}

func matchesCriteria(data, criteria map[string]any) bool {
	for k, want := range criteria {
		got, ok := data[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// UniqueSources scans all fact artifacts and unions their source_urls,
// returned sorted for stable output.
func (l *Log) UniqueSources() ([]string, error) {
	facts, err := l.LoadByType(TypeFact)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, a := range facts {
		var data struct {
			SourceURLs []string `json:"source_urls"`
		}
		if err := a.Decode(&data); err != nil {
			continue
		}
		for _, u := range data.SourceURLs {
			if u != "" {
				seen[u] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}
