// Package benchstore persists benchmark harness results in SQLite. The
// scheduler itself keeps no state across runs; only harness measurements
// are stored, so past runs can be compared from the CLI.
package benchstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one recorded benchmark execution.
type Run struct {
	ID          string
	Scenario    string
	Workers     int
	Agents      int
	Frames      int
	Jobs        int64
	Steals      int64
	StealMisses int64
	Duration    time.Duration
	CreatedAt   time.Time
}

// NewRunID mints a short unique run identifier.
func NewRunID() string {
	return "run_" + uuid.New().String()[:8]
}

// Store wraps the SQLite handle.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at dbPath. Use ":memory:" in tests.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL keeps concurrent readers cheap while the bench loop writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "benchstore"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// CreateRun inserts a run record.
func (s *Store) CreateRun(ctx context.Context, r *Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", r.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, workers, agents, frames, jobs, steals, steal_misses, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Scenario, r.Workers, r.Agents, r.Frames, r.Jobs, r.Steals, r.StealMisses,
		r.Duration.Nanoseconds(), r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetRun returns the run with the given ID, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, workers, agents, frames, jobs, steals, steal_misses, duration_ns, created_at
		 FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "limit", limit)
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario, workers, agents, frames, jobs, steals, steal_misses, duration_ns, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var durationNS int64
	var createdAt string

	if err := sc.Scan(&r.ID, &r.Scenario, &r.Workers, &r.Agents, &r.Frames,
		&r.Jobs, &r.Steals, &r.StealMisses, &durationNS, &createdAt); err != nil {
		return nil, err
	}

	r.Duration = time.Duration(durationNS)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.CreatedAt = t
	return &r, nil
}
