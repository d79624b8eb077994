package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultAverageDuration is the expected wall time of one job
	DefaultAverageDuration = 30 * time.Second

	// SourceFallback marks a synthesized response
	SourceFallback = "fallback"
	// SourceStore marks a response read from the job store
	SourceStore = "store"
	// SourceCache marks a response served from the local cache
	SourceCache = "cache"
)

// JobReader is the read side of the job store
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// Progress estimates how far an unfinished job is
type Progress struct {
	ElapsedMs            int64 `json:"elapsedMs"`
	EstimatedRemainingMs int64 `json:"estimatedRemainingMs"`
	Percent              int   `json:"percent"`
}

// Response is the body of a status poll
type Response struct {
	JobID     string           `json:"jobId"`
	Status    domain.JobStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Progress  *Progress        `json:"progress,omitempty"`
	Result    *domain.Quiz     `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	Source    string           `json:"_source"`
}

// Config configures a Service
type Config struct {
	Logger          *slog.Logger
	Jobs            JobReader
	AverageDuration time.Duration
	CacheSize       int
	CacheTTL        time.Duration
	Now             func() time.Time
}

// Service answers job status polls. It never fails: store errors and unknown
// ids are reported as a job still processing.
type Service struct {
	logger          *slog.Logger
	jobs            JobReader
	averageDuration time.Duration
	cache           *expirable.LRU[string, Response]
	now             func() time.Time
}

// NewService creates a new status Service
func NewService(cfg *Config) *Service {
	avg := cfg.AverageDuration
	if avg <= 0 {
		avg = DefaultAverageDuration
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 1024
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logger:          cfg.Logger,
		jobs:            cfg.Jobs,
		averageDuration: avg,
		cache:           expirable.NewLRU[string, Response](size, nil, ttl),
		now:             now,
	}
}

// GetStatus returns the status response for jobID
func (s *Service) GetStatus(ctx context.Context, jobID string) Response {
	if cached, ok := s.cache.Get(jobID); ok {
		cached.Source = SourceCache
		return cached
	}

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		s.logger.Warn("Job status unavailable, answering with fallback",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return s.fallback(jobID)
	}

	resp := s.fromJob(job)
	// only terminal answers are stable enough to cache
	if job.Status.IsTerminal() {
		s.cache.Add(jobID, resp)
	}
	return resp
}

func (s *Service) fromJob(job *domain.Job) Response {
	resp := Response{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		Source:    SourceStore,
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		resp.Result = job.Result
	case domain.JobStatusFailed:
		resp.Error = job.Error
	default:
		resp.Progress = s.estimate(s.now().Sub(job.CreatedAt))
	}
	return resp
}

// fallback synthesizes a just-started processing job
func (s *Service) fallback(jobID string) Response {
	now := s.now()
	return Response{
		JobID:     jobID,
		Status:    domain.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  s.estimate(0),
		Source:    SourceFallback,
	}
}

func (s *Service) estimate(elapsed time.Duration) *Progress {
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := max(s.averageDuration-elapsed, 0)

	// an overdue job is reported as nearly done, never finished
	percent := int(elapsed * 100 / s.averageDuration)
	percent = min(percent, 99)

	return &Progress{
		ElapsedMs:            elapsed.Milliseconds(),
		EstimatedRemainingMs: remaining.Milliseconds(),
		Percent:              percent,
	}
}
