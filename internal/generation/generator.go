package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/internal/ratelimit"
)

const (
	// halvingThreshold is the largest count that is no longer halved on timeout
	halvingThreshold = 3
	// maxHalvingRetries bounds the number of smaller retries after the first attempt
	maxHalvingRetries = 2
	// defaultTemperature keeps statements varied without drifting off the material
	defaultTemperature = 0.7
)

// Request is one generation call's input
type Request struct {
	Content      string
	Title        string
	NumQuestions int
	Difficulty   domain.Difficulty
	// Category forces a special category by tag; empty means detect from Content
	Category string
	// Compact selects the terse batch prompt built from Title
	Compact bool
}

// Result is the raw output of a successful generation
type Result struct {
	Facts []domain.Fact
	// Requested is the count of the attempt that succeeded, after any halving
	Requested int
	Attempts  int
	Category  string
}

// Config configures a Generator
type Config struct {
	Logger      *slog.Logger
	Backend     Backend
	Limiter     *ratelimit.Limiter
	CallTimeout time.Duration
	Temperature float64
}

// Generator turns content into true/false facts through the backend
type Generator struct {
	logger      *slog.Logger
	backend     Backend
	limiter     *ratelimit.Limiter
	callTimeout time.Duration
	temperature float64
}

// NewGenerator creates a new Generator
func NewGenerator(cfg *Config) *Generator {
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Generator{
		logger:      cfg.Logger,
		backend:     cfg.Backend,
		limiter:     cfg.Limiter,
		callTimeout: cfg.CallTimeout,
		temperature: temperature,
	}
}

// Generate produces facts for req. Timeout-shaped failures with more than
// halvingThreshold questions are retried with half the count, at most
// maxHalvingRetries times.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	count := domain.ClampQuestionCount(req.NumQuestions)
	category := g.resolveCategory(req)

	for attempt := 1; ; attempt++ {
		prompt := g.buildPrompt(req, count, category)

		facts, err := g.invoke(ctx, prompt, count)
		if err == nil {
			result := &Result{
				Facts:     facts,
				Requested: count,
				Attempts:  attempt,
			}
			if category != nil {
				result.Category = category.Tag
			}
			return result, nil
		}

		if attempt > maxHalvingRetries || count <= halvingThreshold || !IsTimeout(err) {
			return nil, err
		}

		g.logger.Warn("Generation timed out, retrying with fewer questions",
			slog.Int("attempt", attempt),
			slog.Int("num_questions", count),
			slog.Int("retry_num_questions", count/2),
			slog.String("error", err.Error()),
		)
		count /= 2
	}
}

func (g *Generator) resolveCategory(req Request) *Category {
	if req.Compact {
		return nil
	}
	if req.Category != "" {
		if c, ok := LookupCategory(req.Category); ok {
			return &c
		}
		g.logger.Warn("Unknown category override ignored",
			slog.String("category", req.Category),
		)
	}
	if c, ok := DetectCategory(req.Content); ok {
		g.logger.Info("Special category detected",
			slog.String("category", c.Tag),
		)
		return &c
	}
	return nil
}

func (g *Generator) buildPrompt(req Request, count int, category *Category) string {
	if req.Compact {
		return BuildCompactPrompt(req.Title, req.Content, count, req.Difficulty)
	}
	return BuildPrompt(req.Content, count, req.Difficulty, category)
}

// invoke runs one rate-limited backend call and parses its facts
func (g *Generator) invoke(ctx context.Context, prompt string, count int) ([]domain.Fact, error) {
	reservation, err := g.limiter.Reserve()
	if err != nil {
		g.logger.Warn("Generation refused by rate limiter",
			slog.String("error", err.Error()),
		)
		return nil, domain.NewGenerationBackendError("rate limited", err)
	}

	callCtx := ctx
	if g.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
	}

	maxTokens := TokenBudget(count)
	g.logger.Debug("Calling generation backend",
		slog.Int("num_questions", count),
		slog.Int("max_tokens", maxTokens),
		slog.Int("prompt_size", len(prompt)),
	)

	text, err := g.backend.Invoke(callCtx, prompt, maxTokens, g.temperature)
	if err != nil {
		reservation.Failed()
		return nil, domain.NewGenerationBackendError("backend call failed", err)
	}

	facts, err := ParseFacts(text)
	if err != nil {
		reservation.Failed()
		return nil, err
	}

	reservation.Succeeded()
	g.logger.Info("Generation backend returned facts",
		slog.Int("requested", count),
		slog.Int("received", len(facts)),
	)
	return facts, nil
}

// IsTimeout reports whether err looks like an exceeded time budget
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded")
}
