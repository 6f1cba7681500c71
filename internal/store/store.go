// Package store is the run index: metadata about past and in-flight research
// runs, queried by the status/runs CLI commands and the MCP server. The
// artifact log holds a run's contents; the store only holds its ledger row.
package store

import "errors"

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent dir (e.g. .deepresearch).
const DefaultDBPath = ".deepresearch/runs.db"

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one research run's ledger entry.
type Run struct {
	ID           string
	Question     string
	Status       string
	Round        int
	FactCount    int
	TokensUsed   int
	TokenBudget  int
	ReportPath   string
	ManifestPath string
	CreatedAt    string
	UpdatedAt    string
}

// Store is the run-index facade. The control loop and CLI use only this
// interface; the implementation is SQLite or in-memory.
type Store interface {
	CreateRun(run *Run) error
	UpdateRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns() ([]*Run, error)
	Close() error
}
