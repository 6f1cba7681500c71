package store

import (
	"sort"
	"sync"
	"time"
)

// MemStore is the in-memory Store used by tests and mock runs.
type MemStore struct {
	mu   sync.Mutex
	runs map[string]*Run
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string]*Run)}
}

func (m *MemStore) CreateRun(run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	cp := *run
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.runs[cp.ID] = &cp
	run.CreatedAt = now
	run.UpdatedAt = now
	return nil
}

func (m *MemStore) UpdateRun(run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.runs[run.ID]
	if !ok {
		return ErrRunNotFound
	}
	cp := *run
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	m.runs[cp.ID] = &cp
	return nil
}

func (m *MemStore) GetRun(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemStore) ListRuns() ([]*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *MemStore) Close() error { return nil }
