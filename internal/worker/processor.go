package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/internal/pipeline"
	"github.com/cuongbtq/quizforge/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchLimit caps how many pending jobs one batch drains
	DefaultBatchLimit = 5
	// DefaultConcurrency is the number of jobs of a batch run at once
	DefaultConcurrency = 2
)

// Per-job result statuses reported by a batch
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// QuizBuilder turns job metadata into an unsaved quiz
type QuizBuilder interface {
	Build(ctx context.Context, req pipeline.Request) (*domain.Quiz, error)
}

// JobResult is the outcome of one job in a batch
type JobResult struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	QuizID string `json:"quizId,omitempty"`
}

// BatchReport summarizes one batch run
type BatchReport struct {
	Results   []JobResult `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	// Skipped counts jobs another batch claimed first
	Skipped int `json:"skipped"`
}

// Message renders the human readable batch summary
func (r *BatchReport) Message() string {
	return fmt.Sprintf("Processed %d jobs: %d succeeded, %d failed", len(r.Results), r.Succeeded, r.Failed)
}

// ProcessorConfig holds processor dependencies
type ProcessorConfig struct {
	Logger      *slog.Logger
	Jobs        storage.JobStore
	Quizzes     storage.QuizStore
	Builder     QuizBuilder
	Concurrency int
}

// Processor drains pending jobs through the quiz pipeline
type Processor struct {
	logger      *slog.Logger
	jobs        storage.JobStore
	quizzes     storage.QuizStore
	builder     QuizBuilder
	concurrency int
}

// NewProcessor creates a new Processor
func NewProcessor(cfg *ProcessorConfig) *Processor {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Processor{
		logger:      cfg.Logger,
		jobs:        cfg.Jobs,
		quizzes:     cfg.Quizzes,
		builder:     cfg.Builder,
		concurrency: concurrency,
	}
}

// RunBatch processes at most limit pending jobs. Only a failure to list
// pending jobs is returned as an error; per-job failures land in the report.
func (p *Processor) RunBatch(ctx context.Context, limit int) (*BatchReport, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	pending, err := p.jobs.GetPendingJobs(ctx, limit)
	if err != nil {
		p.logger.Error("Failed to fetch pending jobs",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	p.logger.Info("Starting batch",
		slog.Int("pending", len(pending)),
		slog.Int("limit", limit),
		slog.Int("concurrency", p.concurrency),
	)

	var (
		mu     sync.Mutex
		report = &BatchReport{Results: make([]JobResult, 0, len(pending))}
	)

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for _, job := range pending {
		g.Go(func() error {
			result, claimed := p.processJob(ctx, job.ID)

			mu.Lock()
			defer mu.Unlock()
			if !claimed {
				report.Skipped++
				return nil
			}
			report.Results = append(report.Results, result)
			if result.Status == ResultSuccess {
				report.Succeeded++
			} else {
				report.Failed++
			}
			return nil
		})
	}
	// jobs never return errors to the group
	_ = g.Wait()

	p.logger.Info("Batch finished",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

// processJob claims one job and runs it to a terminal status. The bool is
// false when the job was no longer pending.
func (p *Processor) processJob(ctx context.Context, jobID string) (JobResult, bool) {
	result := JobResult{JobID: jobID}

	job, err := p.jobs.ClaimJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			p.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", jobID),
			)
			return result, false
		}
		p.logger.Error("Failed to claim job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		result.Status = ResultError
		result.Error = err.Error()
		return result, true
	}

	p.logger.Info("Processing job",
		slog.String("job_id", jobID),
		slog.String("title", job.Metadata.Title),
		slog.Int("num_questions", job.Metadata.NumQuestions),
	)

	quiz, err := p.buildAndSave(ctx, job)
	if err != nil {
		p.logger.Error("Job execution failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)

		result.Status = ResultError
		result.Error = err.Error()
		if updateErr := p.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusFailed, domain.JobUpdate{Error: err.Error()}); updateErr != nil {
			p.logger.Error("Failed to update job status to FAILED",
				slog.String("job_id", jobID),
				slog.String("error", updateErr.Error()),
			)
		}
		return result, true
	}

	if err := p.jobs.UpdateJobStatus(ctx, jobID, domain.JobStatusCompleted, domain.JobUpdate{Result: quiz}); err != nil {
		// the quiz is saved but the job stays in processing
		p.logger.Error("Failed to update job status to COMPLETED",
			slog.String("job_id", jobID),
			slog.String("quiz_id", quiz.ID),
			slog.String("error", err.Error()),
		)
		result.Status = ResultError
		result.Error = err.Error()
		result.QuizID = quiz.ID
		return result, true
	}

	p.logger.Info("Job completed successfully",
		slog.String("job_id", jobID),
		slog.String("quiz_id", quiz.ID),
	)
	result.Status = ResultSuccess
	result.QuizID = quiz.ID
	return result, true
}

func (p *Processor) buildAndSave(ctx context.Context, job *domain.Job) (*domain.Quiz, error) {
	meta := job.Metadata

	quiz, err := p.builder.Build(ctx, pipeline.Request{
		Title:        meta.Title,
		Content:      meta.Content,
		NumQuestions: meta.NumQuestions,
		Difficulty:   meta.Difficulty,
		Category:     meta.Category,
		UserID:       meta.UserID,
		Compact:      true,
	})
	if err != nil {
		return nil, err
	}

	saved, err := p.quizzes.SaveQuiz(ctx, quiz)
	if err != nil {
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}
	return saved, nil
}
