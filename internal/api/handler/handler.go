package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/quizforge/internal/api/status"
	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/internal/pipeline"
	"github.com/cuongbtq/quizforge/internal/storage"
	"github.com/cuongbtq/quizforge/internal/worker"
	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the caller's owner id
const UserIDKey = "user_id"

// TriggerPublisher publishes batch trigger messages
type TriggerPublisher interface {
	PublishTrigger(ctx context.Context, msg domain.BatchMessage) error
}

// QuizBuilder builds an unsaved quiz from study material
type QuizBuilder interface {
	Build(ctx context.Context, req pipeline.Request) (*domain.Quiz, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Jobs       storage.JobStore
	Quizzes    storage.QuizStore
	Status     *status.Service
	Batch      worker.BatchRunner
	Builder    QuizBuilder
	Publisher  TriggerPublisher
	BatchLimit int
}

// JobHandler handles job submission, polling and batch triggering
type JobHandler struct {
	logger     *slog.Logger
	jobs       storage.JobStore
	status     *status.Service
	batch      worker.BatchRunner
	publisher  TriggerPublisher
	batchLimit int
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		jobs:       deps.Jobs,
		status:     deps.Status,
		batch:      deps.Batch,
		publisher:  deps.Publisher,
		batchLimit: deps.BatchLimit,
	}
}

// QuizHandler handles synchronous generation and quiz CRUD
type QuizHandler struct {
	logger  *slog.Logger
	quizzes storage.QuizStore
	builder QuizBuilder
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(deps *Dependencies) *QuizHandler {
	return &QuizHandler{
		logger:  deps.Logger,
		quizzes: deps.Quizzes,
		builder: deps.Builder,
	}
}

// currentUser returns the owner id set by the identity middleware
func currentUser(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
