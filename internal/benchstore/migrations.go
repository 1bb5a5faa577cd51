package benchstore

import (
	"context"
	"database/sql"
	"fmt"
)

// schema contains the DDL for the benchmark tables. Each statement uses
// IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		scenario     TEXT NOT NULL,
		workers      INTEGER NOT NULL,
		agents       INTEGER NOT NULL,
		frames       INTEGER NOT NULL,
		jobs         INTEGER NOT NULL,
		steals       INTEGER NOT NULL,
		steal_misses INTEGER NOT NULL,
		duration_ns  INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
