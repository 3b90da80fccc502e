package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const DefaultRunsLimit = 20

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS scoring_runs (
		id            TEXT PRIMARY KEY,
		filename      TEXT NOT NULL,
		mode          TEXT NOT NULL,
		policies      INTEGER NOT NULL,
		high_risk     INTEGER NOT NULL,
		premium_label TEXT NOT NULL,
		premium_value DOUBLE PRECISION NOT NULL,
		warnings      INTEGER NOT NULL DEFAULT 0,
		duration_ms   BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Migrate creates scoring_runs when it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create scoring_runs: %w", err)
	}
	return nil
}

func (db *DB) InsertRun(ctx context.Context, run Run) error {
	query := `
		INSERT INTO scoring_runs
			(id, filename, mode, policies, high_risk, premium_label, premium_value, warnings, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	result, err := db.Pool.Exec(ctx, query,
		run.ID,
		run.Filename,
		run.Mode,
		run.Policies,
		run.HighRisk,
		run.PremiumLabel,
		run.PremiumValue,
		run.Warnings,
		run.DurationMs,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if result.RowsAffected() == 0 {
		log.Warn().Str("run_id", run.ID).Msg("Run already recorded")
	}

	return nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRunsLimit
	}

	query := `
		SELECT id, filename, mode, policies, high_risk, premium_label, premium_value, warnings, duration_ms, created_at
		FROM scoring_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.Filename,
			&run.Mode,
			&run.Policies,
			&run.HighRisk,
			&run.PremiumLabel,
			&run.PremiumValue,
			&run.Warnings,
			&run.DurationMs,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}
