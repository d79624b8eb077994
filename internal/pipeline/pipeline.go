package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/internal/generation"
	"github.com/cuongbtq/quizforge/internal/transform"
	"github.com/cuongbtq/quizforge/internal/validate"
	"github.com/google/uuid"
)

// Generator produces raw facts for a request
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// Request is the input of one quiz build
type Request struct {
	Title        string
	Content      string
	NumQuestions int
	Difficulty   domain.Difficulty
	Category     string
	UserID       string
	Compact      bool
}

// Config configures a Pipeline
type Config struct {
	Logger      *slog.Logger
	Generator   Generator
	Transformer *transform.Transformer
	Validator   *validate.Validator
	Now         func() time.Time
}

// Pipeline runs generation, transformation and validation and assembles a quiz
type Pipeline struct {
	logger      *slog.Logger
	generator   Generator
	transformer *transform.Transformer
	validator   *validate.Validator
	now         func() time.Time
}

// New creates a Pipeline
func New(cfg *Config) *Pipeline {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		logger:      cfg.Logger,
		generator:   cfg.Generator,
		transformer: cfg.Transformer,
		validator:   cfg.Validator,
		now:         now,
	}
}

// Build produces an unsaved quiz. The steps run strictly in order and the
// first failure is returned unchanged.
func (p *Pipeline) Build(ctx context.Context, req Request) (*domain.Quiz, error) {
	difficulty := domain.ParseDifficulty(string(req.Difficulty))

	result, err := p.generator.Generate(ctx, generation.Request{
		Content:      req.Content,
		Title:        req.Title,
		NumQuestions: req.NumQuestions,
		Difficulty:   difficulty,
		Category:     req.Category,
		Compact:      req.Compact,
	})
	if err != nil {
		return nil, err
	}

	if err := p.validator.ValidateFacts(result.Facts, result.Requested); err != nil {
		return nil, err
	}

	// shortfall was already reported by the fact validator
	questions := p.transformer.Transform(result.Facts, len(result.Facts))

	outcome, err := p.validator.ValidateQuestions(questions)
	if err != nil {
		return nil, err
	}

	quiz := &domain.Quiz{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Difficulty: difficulty,
		CreatedAt:  domain.StoredTime(p.now()),
		UserID:     req.UserID,
		Questions:  questions,
	}

	p.logger.Info("Quiz assembled",
		slog.String("quiz_id", quiz.ID),
		slog.Int("requested", result.Requested),
		slog.Int("questions", len(questions)),
		slog.Int("attempts", result.Attempts),
		slog.Bool("repaired", outcome.Repaired),
	)
	return quiz, nil
}
