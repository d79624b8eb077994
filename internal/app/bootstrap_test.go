package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/quizforge/internal/config"
	"github.com/cuongbtq/quizforge/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewStores(t *testing.T) {
	t.Run("memory without a database", func(t *testing.T) {
		stores := NewStores(nil, &config.StorageConfig{}, discardLogger())

		assert.IsType(t, &storage.MemoryJobStore{}, stores.Jobs)
		assert.IsType(t, &storage.MemoryQuizStore{}, stores.Quizzes)
	})

	t.Run("postgres behind the cache tier", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		stores := NewStores(sqlx.NewDb(db, "postgres"), &config.StorageConfig{
			QuizCacheSize: 8,
			QuizCacheTTL:  time.Minute,
		}, discardLogger())

		assert.IsType(t, &storage.PostgresJobStore{}, stores.Jobs)
		assert.IsType(t, &storage.TieredQuizStore{}, stores.Quizzes)
	})
}

func TestNewPipeline(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr string
	}{
		{name: "anthropic", cfg: config.LLMConfig{Provider: "anthropic", APIKey: "k"}},
		{name: "openai", cfg: config.LLMConfig{Provider: "openai", APIKey: "k", RateWindow: time.Second}},
		{name: "unknown provider", cfg: config.LLMConfig{Provider: "bard", APIKey: "k"}, wantErr: "unknown llm provider"},
		{name: "missing key", cfg: config.LLMConfig{Provider: "anthropic"}, wantErr: "api key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipeline(&tt.cfg, discardLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.True(t, l.Enabled(t.Context(), slog.LevelDebug))
}

func TestPostgresConfig_MigratesSchema(t *testing.T) {
	cfg := postgresConfig(&config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "quiz",
		Database: "quizforge",
		SSLMode:  "disable",
	}, discardLogger())
	assert.Equal(t, "host=db port=5432 user=quiz password= dbname=quizforge sslmode=disable", cfg.DSN())
	require.NotNil(t, cfg.Migrate)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").WillReturnError(errors.New("permission denied"))

	assert.Error(t, cfg.Migrate(context.Background(), sqlx.NewDb(db, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
