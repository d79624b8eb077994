package storage

import (
	"context"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
)

// JobStore persists generation jobs
type JobStore interface {
	// CreateJob writes a pending job and returns its id. The id is returned
	// even when the write fails so callers can still hand it to a poller.
	CreateJob(ctx context.Context, meta domain.JobMetadata) (string, error)
	// ClaimJob moves a job from pending to processing, failing with
	// domain.ErrJobAlreadyClaimed if it is no longer pending.
	ClaimJob(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, update domain.JobUpdate) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	// GetPendingJobs returns at most limit pending jobs, oldest first
	GetPendingJobs(ctx context.Context, limit int) ([]domain.Job, error)
}

// QuizStore persists finished quizzes
type QuizStore interface {
	SaveQuiz(ctx context.Context, quiz *domain.Quiz) (*domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (*domain.Quiz, error)
	// ListQuizzes returns at most filter.Limit of the owner's quizzes, newest
	// first, strictly after filter.Cursor when set
	ListQuizzes(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID, userID string) error
}

// QuizFilter selects one page of an owner's quizzes
type QuizFilter struct {
	UserID string
	Limit  int
	Cursor *QuizCursor
}

// QuizCursor is the keyset position of the last quiz of a page
type QuizCursor struct {
	CreatedAt time.Time
	QuizID    string
}

// before reports whether q sorts after the cursor in newest-first order
func (c *QuizCursor) before(q domain.Quiz) bool {
	if c == nil {
		return true
	}
	if q.CreatedAt.Equal(c.CreatedAt) {
		return q.ID < c.QuizID
	}
	return q.CreatedAt.Before(c.CreatedAt)
}

// previousStatus returns the only status a job may hold before moving to status
func previousStatus(status domain.JobStatus) (domain.JobStatus, bool) {
	switch status {
	case domain.JobStatusProcessing:
		return domain.JobStatusPending, true
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		return domain.JobStatusProcessing, true
	default:
		return "", false
	}
}
