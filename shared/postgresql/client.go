package postgresql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrUnavailable is reported by a client running without a database
var ErrUnavailable = errors.New("quiz database unavailable")

const (
	pingTimeout    = 5 * time.Second
	healthTimeout  = 2 * time.Second
	defaultMigrate = 10 * time.Second
)

// Migrator prepares the job and quiz tables on a fresh pool
type Migrator func(ctx context.Context, db *sqlx.DB) error

// Config holds PostgreSQL connection configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Migrate runs once after connecting. Its failure is logged and the
	// pool is kept, since the tables may already exist.
	Migrate        Migrator
	MigrateTimeout time.Duration
}

// DSN renders the lib/pq key/value connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Client owns the connection pool behind the job and quiz stores.
// A nil *Client is a valid degraded client: it has no pool and reports
// ErrUnavailable from its health check.
type Client struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewClient dials the database, applies pool limits and runs the migrator
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	logger.Info("Opening quiz database",
		slog.String("host", config.Host),
		slog.Int("port", config.Port),
		slog.String("database", config.Database),
	)

	db, err := sqlx.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open quiz database: %w", err)
	}

	client, err := newClient(db, config, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return client, nil
}

// Connect is NewClient for services that keep serving without a database.
// On failure it logs and returns a nil client, which callers use as is.
func Connect(config *Config, logger *slog.Logger) *Client {
	client, err := NewClient(config, logger)
	if err != nil {
		logger.Warn("Quiz database unavailable, running without durable storage",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return client
}

func newClient(db *sqlx.DB, config *Config, logger *slog.Logger) (*Client, error) {
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("quiz database did not answer ping: %w", err)
	}

	if config.Migrate != nil {
		timeout := config.MigrateTimeout
		if timeout <= 0 {
			timeout = defaultMigrate
		}
		mctx, mcancel := context.WithTimeout(context.Background(), timeout)
		err := config.Migrate(mctx, db)
		mcancel()
		if err != nil {
			logger.Warn("Schema migration failed, keeping connection",
				slog.String("error", err.Error()),
			)
		}
	}

	logger.Info("Quiz database ready",
		slog.Int("max_open_conns", config.MaxOpenConns),
		slog.Int("max_idle_conns", config.MaxIdleConns),
	)
	return &Client{db: db, logger: logger}, nil
}

// GetDB returns the pool, or nil for a degraded client
func (c *Client) GetDB() *sqlx.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close releases the pool
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close quiz database", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("Quiz database closed")
	return nil
}

// HealthCheck runs a trivial query against the pool
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var one int
	if err := c.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
