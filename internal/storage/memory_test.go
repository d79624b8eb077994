package storage

import (
	"context"
	"testing"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryJobStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	id, err := store.CreateJob(ctx, domain.JobMetadata{Title: "Cells", NumQuestions: 5, UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, "Cells", job.Metadata.Title)

	claimed, err := store.ClaimJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, claimed.Status)

	_, err = store.ClaimJob(ctx, id)
	assert.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)

	quiz := &domain.Quiz{ID: "q1", Title: "Cells"}
	require.NoError(t, store.UpdateJobStatus(ctx, id, domain.JobStatusCompleted, domain.JobUpdate{Result: quiz, Error: "ignored"}))

	job, err = store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "q1", job.Result.ID)
	assert.Empty(t, job.Error)
	assert.False(t, job.UpdatedAt.Before(job.CreatedAt))
}

func TestMemoryJobStore_RejectsBackwardTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	id, err := store.CreateJob(ctx, domain.JobMetadata{Title: "t"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		status domain.JobStatus
	}{
		{name: "pending to completed", status: domain.JobStatusCompleted},
		{name: "pending to failed", status: domain.JobStatusFailed},
		{name: "pending to pending", status: domain.JobStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.UpdateJobStatus(ctx, id, tt.status, domain.JobUpdate{})
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		})
	}

	_, err = store.ClaimJob(ctx, id)
	require.NoError(t, err)
	require.NoError(t, store.UpdateJobStatus(ctx, id, domain.JobStatusFailed, domain.JobUpdate{Error: "boom"}))

	err = store.UpdateJobStatus(ctx, id, domain.JobStatusProcessing, domain.JobUpdate{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	job, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)
	assert.Nil(t, job.Result)
}

func TestMemoryJobStore_MissingJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	_, err := store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	err = store.UpdateJobStatus(ctx, "missing", domain.JobStatusProcessing, domain.JobUpdate{})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = store.ClaimJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)
}

func TestMemoryJobStore_GetPendingJobsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, _ := store.CreateJob(ctx, domain.JobMetadata{Title: "first"})
	second, _ := store.CreateJob(ctx, domain.JobMetadata{Title: "second"})
	third, _ := store.CreateJob(ctx, domain.JobMetadata{Title: "third"})

	_, err := store.ClaimJob(ctx, second)
	require.NoError(t, err)

	pending, err := store.GetPendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, third, pending[1].ID)

	limited, err := store.GetPendingJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first, limited[0].ID)
}

func TestMemoryQuizStore_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryQuizStore()

	older, err := store.SaveQuiz(ctx, &domain.Quiz{Title: "older", UserID: "alice", CreatedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	newer, err := store.SaveQuiz(ctx, &domain.Quiz{Title: "newer", UserID: "alice"})
	require.NoError(t, err)
	_, err = store.SaveQuiz(ctx, &domain.Quiz{Title: "bob's", UserID: "bob"})
	require.NoError(t, err)

	assert.NotEmpty(t, older.ID)
	assert.False(t, newer.CreatedAt.IsZero())

	list, err := store.ListQuizzes(ctx, QuizFilter{UserID: "alice", Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	page, err := store.ListQuizzes(ctx, QuizFilter{
		UserID: "alice",
		Limit:  10,
		Cursor: &QuizCursor{CreatedAt: newer.CreatedAt, QuizID: newer.ID},
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)

	err = store.DeleteQuiz(ctx, newer.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)

	require.NoError(t, store.DeleteQuiz(ctx, newer.ID, "alice"))
	_, err = store.GetQuiz(ctx, newer.ID)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}
