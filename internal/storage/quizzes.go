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

type quizRow struct {
	QuizID     string    `db:"quiz_id"`
	UserID     string    `db:"user_id"`
	Title      string    `db:"title"`
	Difficulty string    `db:"difficulty"`
	Questions  []byte    `db:"questions"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *quizRow) toDomain() (*domain.Quiz, error) {
	quiz := &domain.Quiz{
		ID:         r.QuizID,
		UserID:     r.UserID,
		Title:      r.Title,
		Difficulty: domain.Difficulty(r.Difficulty),
		CreatedAt:  r.CreatedAt,
	}
	if err := json.Unmarshal(r.Questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
	}
	return quiz, nil
}

// PostgresQuizStore keeps quizzes in the quizzes table
type PostgresQuizStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresQuizStore creates a new PostgresQuizStore
func NewPostgresQuizStore(db *sqlx.DB, logger *slog.Logger) *PostgresQuizStore {
	return &PostgresQuizStore{
		db:     db,
		logger: logger,
	}
}

// SaveQuiz upserts a quiz, assigning an id and timestamp when missing
func (s *PostgresQuizStore) SaveQuiz(ctx context.Context, quiz *domain.Quiz) (*domain.Quiz, error) {
	saved := *quiz
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	saved.CreatedAt = domain.StoredTime(saved.CreatedAt)

	questions, err := json.Marshal(saved.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `
		INSERT INTO quizzes (quiz_id, user_id, title, difficulty, questions, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (quiz_id) DO UPDATE
		SET title = EXCLUDED.title,
		    difficulty = EXCLUDED.difficulty,
		    questions = EXCLUDED.questions
	`

	_, err = s.db.ExecContext(ctx, query,
		saved.ID,
		saved.UserID,
		saved.Title,
		saved.Difficulty,
		string(questions),
		saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}

	s.logger.Info("Quiz saved",
		slog.String("quiz_id", saved.ID),
		slog.String("user_id", saved.UserID),
		slog.Int("questions", len(saved.Questions)),
	)
	return &saved, nil
}

// GetQuiz retrieves a quiz by id
func (s *PostgresQuizStore) GetQuiz(ctx context.Context, quizID string) (*domain.Quiz, error) {
	query := `
		SELECT quiz_id, user_id, title, difficulty, questions, created_at
		FROM quizzes
		WHERE quiz_id = $1
	`

	var row quizRow
	if err := s.db.GetContext(ctx, &row, query, quizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return row.toDomain()
}

// ListQuizzes returns one page of the owner's quizzes, newest first
func (s *PostgresQuizStore) ListQuizzes(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error) {
	query := `
		SELECT quiz_id, user_id, title, difficulty, questions, created_at
		FROM quizzes
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, quiz_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.QuizID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, quiz_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.Limit)

	var rows []quizRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	quizzes := make([]domain.Quiz, 0, len(rows))
	for i := range rows {
		quiz, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *quiz)
	}
	return quizzes, nil
}

// DeleteQuiz removes a quiz owned by userID
func (s *PostgresQuizStore) DeleteQuiz(ctx context.Context, quizID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE quiz_id = $1 AND user_id = $2`, quizID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
