package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id        TEXT PRIMARY KEY,
		status        TEXT NOT NULL,
		metadata      JSONB NOT NULL,
		result        JSONB,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_created_at ON jobs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		quiz_id    TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		questions  JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quizzes_user_id ON quizzes (user_id, created_at DESC, quiz_id DESC)`,
}

// EnsureSchema creates the jobs and quizzes tables if they are missing.
// A failure is logged and returned; callers treat it as non-fatal.
func EnsureSchema(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Warn("Failed to ensure schema, continuing without it",
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	logger.Info("Database schema ensured")
	return nil
}
