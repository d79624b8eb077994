package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type jobRow struct {
	JobID        string         `db:"job_id"`
	Status       string         `db:"status"`
	Metadata     []byte         `db:"metadata"`
	Result       []byte         `db:"result"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:        r.JobID,
		Status:    domain.JobStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Error:     r.ErrorMessage.String,
	}

	if err := json.Unmarshal(r.Metadata, &job.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode job metadata: %w", err)
	}

	if len(r.Result) > 0 {
		var quiz domain.Quiz
		if err := json.Unmarshal(r.Result, &quiz); err != nil {
			return nil, fmt.Errorf("failed to decode job result: %w", err)
		}
		job.Result = &quiz
	}

	sanitized := job.Sanitized()
	return &sanitized, nil
}

const jobColumns = `job_id, status, metadata, result, error_message, created_at, updated_at`

// PostgresJobStore keeps jobs in the jobs table
type PostgresJobStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db *sqlx.DB, logger *slog.Logger) *PostgresJobStore {
	return &PostgresJobStore{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a pending job
func (s *PostgresJobStore) CreateJob(ctx context.Context, meta domain.JobMetadata) (string, error) {
	jobID := uuid.NewString()

	metadata, err := json.Marshal(meta)
	if err != nil {
		return jobID, fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	query := `
		INSERT INTO jobs (job_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusPending, string(metadata)); err != nil {
		return jobID, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", jobID),
		slog.String("user_id", meta.UserID),
	)
	return jobID, nil
}

// ClaimJob moves a pending job to processing using a conditional update
func (s *PostgresJobStore) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status = $3
		RETURNING ` + jobColumns

	var row jobRow
	err := s.db.GetContext(ctx, &row, query, domain.JobStatusProcessing, jobID, domain.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
	)
	return row.toDomain()
}

// UpdateJobStatus moves a job forward and stores its result or error
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, update domain.JobUpdate) error {
	from, ok := previousStatus(status)
	if !ok {
		return fmt.Errorf("%w: cannot move to %s", domain.ErrInvalidTransition, status)
	}

	var resultJSON sql.NullString
	if status == domain.JobStatusCompleted && update.Result != nil {
		data, err := json.Marshal(update.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}

	var errorMsg sql.NullString
	if status == domain.JobStatusFailed {
		errorMsg = sql.NullString{String: update.Error, Valid: true}
	}

	query := `
		UPDATE jobs
		SET status = $1,
			result = COALESCE($2::jsonb, result),
			error_message = COALESCE($3, error_message),
			updated_at = NOW()
		WHERE job_id = $4
		  AND status = $5
	`

	res, err := s.db.ExecContext(ctx, query, status, resultJSON, errorMsg, jobID, from)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var current string
		err := s.db.GetContext(ctx, &current, `SELECT status FROM jobs WHERE job_id = $1`, jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read job status: %w", err)
		}
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, status)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", string(status)),
	)
	return nil
}

// GetJob retrieves a job by id
func (s *PostgresJobStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain()
}

// GetPendingJobs lists pending jobs, oldest first
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC, job_id ASC
		LIMIT $2
	`

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, domain.JobStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toDomain()
		if err != nil {
			s.logger.Warn("Skipping undecodable pending job",
				slog.String("job_id", rows[i].JobID),
				slog.String("error", err.Error()),
			)
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
