package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryJobStore is a process-local JobStore
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

// NewMemoryJobStore creates an empty MemoryJobStore
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

// CreateJob stores a pending job
func (s *MemoryJobStore) CreateJob(_ context.Context, meta domain.JobMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.NewString()
	s.jobs[id] = &domain.Job{
		ID:        id,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  meta,
	}
	return id, nil
}

// ClaimJob moves a pending job to processing
func (s *MemoryJobStore) ClaimJob(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusPending {
		return nil, domain.ErrJobAlreadyClaimed
	}
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = s.now()

	claimed := *job
	return &claimed, nil
}

// UpdateJobStatus moves a job forward and stores its result or error
func (s *MemoryJobStore) UpdateJobStatus(_ context.Context, jobID string, status domain.JobStatus, update domain.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if !domain.CanTransition(job.Status, status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	job.UpdatedAt = s.now()
	if status == domain.JobStatusCompleted && update.Result != nil {
		job.Result = update.Result
	}
	if status == domain.JobStatusFailed {
		job.Error = update.Error
	}
	return nil
}

// GetJob returns a copy of the job
func (s *MemoryJobStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := job.Sanitized()
	return &copied, nil
}

// GetPendingJobs lists pending jobs, oldest first
func (s *MemoryJobStore) GetPendingJobs(_ context.Context, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := lo.FilterMap(lo.Values(s.jobs), func(j *domain.Job, _ int) (domain.Job, bool) {
		return *j, j.Status == domain.JobStatusPending
	})
	sort.Slice(pending, func(i, k int) bool {
		if pending[i].CreatedAt.Equal(pending[k].CreatedAt) {
			return pending[i].ID < pending[k].ID
		}
		return pending[i].CreatedAt.Before(pending[k].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MemoryQuizStore is a process-local QuizStore
type MemoryQuizStore struct {
	mu      sync.Mutex
	quizzes map[string]domain.Quiz
}

// NewMemoryQuizStore creates an empty MemoryQuizStore
func NewMemoryQuizStore() *MemoryQuizStore {
	return &MemoryQuizStore{quizzes: make(map[string]domain.Quiz)}
}

// SaveQuiz stores the quiz, assigning an id and timestamp when missing
func (s *MemoryQuizStore) SaveQuiz(_ context.Context, quiz *domain.Quiz) (*domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *quiz
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	saved.CreatedAt = domain.StoredTime(saved.CreatedAt)
	s.quizzes[saved.ID] = saved
	return &saved, nil
}

// GetQuiz returns the quiz by id
func (s *MemoryQuizStore) GetQuiz(_ context.Context, quizID string) (*domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return &quiz, nil
}

// ListQuizzes returns one page of the owner's quizzes, newest first
func (s *MemoryQuizStore) ListQuizzes(_ context.Context, filter QuizFilter) ([]domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return applyFilter(lo.Values(s.quizzes), filter), nil
}

// DeleteQuiz removes a quiz owned by userID
func (s *MemoryQuizStore) DeleteQuiz(_ context.Context, quizID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok || quiz.UserID != userID {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func applyFilter(quizzes []domain.Quiz, filter QuizFilter) []domain.Quiz {
	owned := lo.Filter(quizzes, func(q domain.Quiz, _ int) bool {
		return q.UserID == filter.UserID && filter.Cursor.before(q)
	})
	sort.Slice(owned, func(i, k int) bool {
		if owned[i].CreatedAt.Equal(owned[k].CreatedAt) {
			return owned[i].ID > owned[k].ID
		}
		return owned[i].CreatedAt.After(owned[k].CreatedAt)
	})
	if filter.Limit > 0 && len(owned) > filter.Limit {
		owned = owned[:filter.Limit]
	}
	return owned
}
