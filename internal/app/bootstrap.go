// Package app wires configuration into the clients, stores and pipeline
// shared by the api and worker services.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/quizforge/internal/config"
	"github.com/cuongbtq/quizforge/internal/generation"
	"github.com/cuongbtq/quizforge/internal/pipeline"
	"github.com/cuongbtq/quizforge/internal/ratelimit"
	"github.com/cuongbtq/quizforge/internal/storage"
	"github.com/cuongbtq/quizforge/internal/transform"
	"github.com/cuongbtq/quizforge/internal/validate"
	"github.com/cuongbtq/quizforge/shared/logger"
	"github.com/cuongbtq/quizforge/shared/postgresql"
	"github.com/cuongbtq/quizforge/shared/rabbitmq"
	"github.com/jmoiron/sqlx"
)

// NewLogger builds the service logger from the logging section
func NewLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   timeFormat,
	})
}

// NewPostgreSQL connects the durable store and ensures its schema
func NewPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(postgresConfig(cfg, logger), logger)
}

// ConnectPostgreSQL is NewPostgreSQL for the api, which runs on memory
// stores when the database is down. The result may be nil.
func ConnectPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) *postgresql.Client {
	return postgresql.Connect(postgresConfig(cfg, logger), logger)
}

func postgresConfig(cfg *config.DatabaseConfig, logger *slog.Logger) *postgresql.Config {
	return &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		Migrate: func(ctx context.Context, db *sqlx.DB) error {
			return storage.EnsureSchema(ctx, db, logger)
		},
	}
}

// NewRabbitMQ connects the batch trigger exchange and queue
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// Stores groups the job and quiz stores a service reads and writes
type Stores struct {
	Jobs    storage.JobStore
	Quizzes storage.QuizStore
}

// NewStores builds Postgres-backed stores, with the quiz store behind the
// in-memory cache tier. A nil db yields memory-only stores.
func NewStores(db *sqlx.DB, cfg *config.StorageConfig, logger *slog.Logger) *Stores {
	if db == nil {
		logger.Warn("No durable store configured, using in-memory stores")
		return &Stores{
			Jobs:    storage.NewMemoryJobStore(),
			Quizzes: storage.NewMemoryQuizStore(),
		}
	}

	return &Stores{
		Jobs: storage.NewPostgresJobStore(db, logger.With(slog.String("component", "job_store"))),
		Quizzes: storage.NewTieredQuizStore(
			storage.NewPostgresQuizStore(db, logger.With(slog.String("component", "quiz_store"))),
			cfg.QuizCacheSize,
			cfg.QuizCacheTTL,
			logger,
		),
	}
}

// NewPipeline builds the generation pipeline behind a single rate gate
func NewPipeline(cfg *config.LLMConfig, logger *slog.Logger) (*pipeline.Pipeline, error) {
	backend, err := generation.NewBackend(generation.BackendConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
	})
	if err != nil {
		return nil, err
	}

	generator := generation.NewGenerator(&generation.Config{
		Logger:      logger.With(slog.String("component", "generator")),
		Backend:     backend,
		Limiter:     ratelimit.New(cfg.RateWindow),
		CallTimeout: cfg.CallTimeout,
		Temperature: cfg.Temperature,
	})

	return pipeline.New(&pipeline.Config{
		Logger:      logger.With(slog.String("component", "pipeline")),
		Generator:   generator,
		Transformer: transform.New(logger),
		Validator:   validate.New(logger),
	}), nil
}
