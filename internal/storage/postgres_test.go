package storage

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var jobColumnNames = []string{"job_id", "status", "metadata", "result", "error_message", "created_at", "updated_at"}

func TestPostgresJobStore_CreateJob(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresJobStore(db, discardLogger())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WithArgs(sqlmock.AnyArg(), "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.CreateJob(context.Background(), domain.JobMetadata{Title: "t", NumQuestions: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_CreateJobReturnsIDOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresJobStore(db, discardLogger())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WillReturnError(errors.New("disk full"))

	id, err := store.CreateJob(context.Background(), domain.JobMetadata{Title: "t"})
	require.Error(t, err)
	assert.NotEmpty(t, id)
}

func TestPostgresJobStore_ClaimJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "claims pending job",
			setup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(jobColumnNames).
					AddRow("job-1", "processing", []byte(`{"title":"t","numQuestions":5}`), nil, nil, now, now)
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).
					WithArgs("processing", "job-1", "pending").
					WillReturnRows(rows)
			},
		},
		{
			name: "already claimed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).
					WithArgs("processing", "job-1", "pending").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrJobAlreadyClaimed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewPostgresJobStore(db, discardLogger())
			tt.setup(mock)

			job, err := store.ClaimJob(context.Background(), "job-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.JobStatusProcessing, job.Status)
			assert.Equal(t, "t", job.Metadata.Title)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresJobStore_UpdateJobStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.JobStatus
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name:   "processing to failed",
			status: domain.JobStatusFailed,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs")).
					WithArgs("failed", nil, "boom", "job-1", "processing").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:   "backward write is refused",
			status: domain.JobStatusCompleted,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM jobs")).
					WithArgs("job-1").
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name:   "missing job",
			status: domain.JobStatusProcessing,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM jobs")).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrJobNotFound,
		},
		{
			name:    "pending is never a target",
			status:  domain.JobStatusPending,
			setup:   func(sqlmock.Sqlmock) {},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			store := NewPostgresJobStore(db, discardLogger())
			tt.setup(mock)

			err := store.UpdateJobStatus(context.Background(), "job-1", tt.status, domain.JobUpdate{Error: "boom"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresJobStore_GetJobSanitizesRow(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresJobStore(db, discardLogger())
	now := time.Now()

	// a stale error message on a completed row must not leak
	rows := sqlmock.NewRows(jobColumnNames).
		AddRow("job-1", "completed", []byte(`{"title":"t"}`), []byte(`{"id":"quiz-1","title":"t"}`), "old error", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE job_id = $1")).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, job.Result)
	assert.Equal(t, "quiz-1", job.Result.ID)
	assert.Empty(t, job.Error)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE job_id = $1")).
		WillReturnError(sql.ErrNoRows)
	_, err = store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestPostgresJobStore_GetPendingJobs(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresJobStore(db, discardLogger())
	now := time.Now()

	rows := sqlmock.NewRows(jobColumnNames).
		AddRow("job-1", "pending", []byte(`{"title":"a"}`), nil, nil, now, now).
		AddRow("job-2", "pending", []byte(`not json`), nil, nil, now, now).
		AddRow("job-3", "pending", []byte(`{"title":"c"}`), nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC")).
		WithArgs("pending", 10).
		WillReturnRows(rows)

	jobs, err := store.GetPendingJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, "job-3", jobs[1].ID)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC")).
		WillReturnError(errors.New("connection reset"))
	_, err = store.GetPendingJobs(context.Background(), 10)
	assert.Error(t, err)
}

func TestPostgresQuizStore(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	store := NewPostgresQuizStore(db, discardLogger())
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quizzes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	saved, err := store.SaveQuiz(ctx, &domain.Quiz{Title: "t", UserID: "u"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	quizColumns := []string{"quiz_id", "user_id", "title", "difficulty", "questions", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM quizzes")).
		WithArgs("quiz-1").
		WillReturnRows(sqlmock.NewRows(quizColumns).
			AddRow("quiz-1", "u", "t", "easy", []byte(`[{"id":"q1","text":"x"}]`), now))
	quiz, err := store.GetQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DifficultyEasy, quiz.Difficulty)
	require.Len(t, quiz.Questions, 1)

	mock.ExpectQuery(regexp.QuoteMeta("FROM quizzes")).
		WillReturnError(sql.ErrNoRows)
	_, err = store.GetQuiz(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quizzes")).
		WithArgs("quiz-1", "other").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.DeleteQuiz(ctx, "quiz-1", "other")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuizStore_SaveTrimsTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresQuizStore(db, discardLogger())
	created := time.Date(2025, 3, 1, 9, 0, 0, 123456789, time.UTC)
	want := time.Date(2025, 3, 1, 9, 0, 0, 123456000, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quizzes")).
		WithArgs("quiz-1", "u", "t", "easy", sqlmock.AnyArg(), want).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := store.SaveQuiz(context.Background(), &domain.Quiz{
		ID: "quiz-1", UserID: "u", Title: "t", Difficulty: domain.DifficultyEasy, CreatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, want, saved.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)

	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), db, discardLogger()))

	mock.ExpectExec("CREATE").WillReturnError(errors.New("permission denied"))
	assert.Error(t, EnsureSchema(context.Background(), db, discardLogger()))
}

func TestPostgresQuizStore_ListQuizzesWithCursor(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresQuizStore(db, discardLogger())
	now := time.Now()

	quizColumns := []string{"quiz_id", "user_id", "title", "difficulty", "questions", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("AND (created_at, quiz_id) < ($2, $3) ORDER BY created_at DESC, quiz_id DESC LIMIT $4")).
		WithArgs("u", now, "quiz-9", 3).
		WillReturnRows(sqlmock.NewRows(quizColumns).
			AddRow("quiz-8", "u", "a", "medium", []byte(`[]`), now.Add(-time.Minute)))

	quizzes, err := store.ListQuizzes(context.Background(), QuizFilter{
		UserID: "u",
		Limit:  3,
		Cursor: &QuizCursor{CreatedAt: now, QuizID: "quiz-9"},
	})
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, "quiz-8", quizzes[0].ID)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
		WithArgs("u", 3).
		WillReturnRows(sqlmock.NewRows(quizColumns))

	quizzes, err = store.ListQuizzes(context.Background(), QuizFilter{UserID: "u", Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, quizzes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
