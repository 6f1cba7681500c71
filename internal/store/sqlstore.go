package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	question      TEXT NOT NULL,
	status        TEXT NOT NULL,
	round         INTEGER NOT NULL DEFAULT 0,
	fact_count    INTEGER NOT NULL DEFAULT 0,
	tokens_used   INTEGER NOT NULL DEFAULT 0,
	token_budget  INTEGER NOT NULL DEFAULT 0,
	report_path   TEXT,
	manifest_path TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
`

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .deepresearch) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

func (s *SqlStore) CreateRun(run *Run) error {
	now := nowUTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO runs(id, question, status, round, fact_count, tokens_used, token_budget,
		                  report_path, manifest_path, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Question, run.Status, run.Round, run.FactCount, run.TokensUsed,
		run.TokenBudget, run.ReportPath, run.ManifestPath, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SqlStore) UpdateRun(run *Run) error {
	run.UpdatedAt = nowUTC()
	res, err := s.db.Exec(
		`UPDATE runs SET question=?, status=?, round=?, fact_count=?, tokens_used=?,
		                 token_budget=?, report_path=?, manifest_path=?, updated_at=?
		 WHERE id=?`,
		run.Question, run.Status, run.Round, run.FactCount, run.TokensUsed,
		run.TokenBudget, run.ReportPath, run.ManifestPath, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SqlStore) GetRun(id string) (*Run, error) {
	var r Run
	var report, manifest sql.NullString
	err := s.db.QueryRow(
		`SELECT id, question, status, round, fact_count, tokens_used, token_budget,
		        report_path, manifest_path, created_at, updated_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Question, &r.Status, &r.Round, &r.FactCount, &r.TokensUsed,
		&r.TokenBudget, &report, &manifest, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.ReportPath = nullStr(report)
	r.ManifestPath = nullStr(manifest)
	return &r, nil
}

func (s *SqlStore) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, question, status, round, fact_count, tokens_used, token_budget,
		        report_path, manifest_path, created_at, updated_at
		 FROM runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var list []*Run
	for rows.Next() {
		var r Run
		var report, manifest sql.NullString
		if err := rows.Scan(&r.ID, &r.Question, &r.Status, &r.Round, &r.FactCount,
			&r.TokensUsed, &r.TokenBudget, &report, &manifest, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ReportPath = nullStr(report)
		r.ManifestPath = nullStr(manifest)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}
