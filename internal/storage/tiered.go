package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TieredQuizStore puts a bounded local cache in front of a durable QuizStore.
// The durable store wins whenever it answers; the cache only serves reads
// while the durable store is failing or has not seen the quiz.
type TieredQuizStore struct {
	durable QuizStore
	cache   *expirable.LRU[string, domain.Quiz]
	logger  *slog.Logger
}

// NewTieredQuizStore creates a tiered store holding at most size quizzes for ttl
func NewTieredQuizStore(durable QuizStore, size int, ttl time.Duration, logger *slog.Logger) *TieredQuizStore {
	if size <= 0 {
		size = 256
	}
	return &TieredQuizStore{
		durable: durable,
		cache:   expirable.NewLRU[string, domain.Quiz](size, nil, ttl),
		logger:  logger,
	}
}

// SaveQuiz writes to the durable store and caches the result. When the durable
// write fails the quiz is still cached under a fresh id and returned.
func (s *TieredQuizStore) SaveQuiz(ctx context.Context, quiz *domain.Quiz) (*domain.Quiz, error) {
	saved, err := s.durable.SaveQuiz(ctx, quiz)
	if err == nil {
		s.cache.Add(saved.ID, *saved)
		return saved, nil
	}

	s.logger.Warn("Durable quiz save failed, keeping quiz in local cache",
		slog.String("error", err.Error()),
	)

	local, _ := NewMemoryQuizStore().SaveQuiz(ctx, quiz)
	s.cache.Add(local.ID, *local)
	return local, nil
}

// GetQuiz prefers the durable store and falls back to the cache
func (s *TieredQuizStore) GetQuiz(ctx context.Context, quizID string) (*domain.Quiz, error) {
	quiz, err := s.durable.GetQuiz(ctx, quizID)
	if err == nil {
		s.cache.Add(quiz.ID, *quiz)
		return quiz, nil
	}

	if cached, ok := s.cache.Get(quizID); ok {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			s.logger.Warn("Serving quiz from local cache",
				slog.String("quiz_id", quizID),
				slog.String("error", err.Error()),
			)
		}
		return &cached, nil
	}
	return nil, err
}

// ListQuizzes merges cached quizzes the durable store does not have
func (s *TieredQuizStore) ListQuizzes(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error) {
	durable, err := s.durable.ListQuizzes(ctx, filter)
	if err != nil {
		s.logger.Warn("Listing quizzes from local cache only",
			slog.String("user_id", filter.UserID),
			slog.String("error", err.Error()),
		)
		return applyFilter(s.cache.Values(), filter), nil
	}

	seen := make(map[string]bool, len(durable))
	for _, q := range durable {
		seen[q.ID] = true
	}
	// the cursor quiz belongs to an earlier page whatever its cached timestamp
	if filter.Cursor != nil {
		seen[filter.Cursor.QuizID] = true
	}
	merged := durable
	for _, q := range s.cache.Values() {
		if !seen[q.ID] {
			merged = append(merged, q)
		}
	}
	return applyFilter(merged, filter), nil
}

// DeleteQuiz removes the quiz from both tiers
func (s *TieredQuizStore) DeleteQuiz(ctx context.Context, quizID, userID string) error {
	cached, inCache := s.cache.Get(quizID)
	if inCache && cached.UserID == userID {
		s.cache.Remove(quizID)
	}

	err := s.durable.DeleteQuiz(ctx, quizID, userID)
	if err != nil && errors.Is(err, domain.ErrQuizNotFound) && inCache && cached.UserID == userID {
		return nil
	}
	return err
}
