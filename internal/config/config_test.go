package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", "")
			t.Setenv("CRON_SECRET", "")
			t.Setenv("SESSION_SECRET", "")
			t.Setenv("LLM_PROVIDER", "")

			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "localhost", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
			assert.Equal(t, "quizforge_db", cfg.Database.Database)
			assert.Equal(t, "quiz_batches", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "quiz_batch_triggers", cfg.RabbitMQ.Queue.Name)
			assert.Equal(t, "quizforge-api", cfg.App.Name)
			assert.Equal(t, 65*time.Second, cfg.LLM.RateWindow)
			assert.Equal(t, 5, cfg.Batch.Limit)
			assert.Equal(t, 30*time.Second, cfg.Status.AverageDuration)
			assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
			require.NoError(t, cfg.ValidateAPIConfig())
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("ANTHROPIC_API_KEY", "ignored")
	t.Setenv("CRON_SECRET", "env-cron")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "env-cron", cfg.Batch.CronSecret)
	// empty variables leave the file value alone
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Session.Secret)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "quizforge_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "quiz_batches"},
			Queue:    QueueConfig{Name: "quiz_batch_triggers"},
		},
		Worker: WorkerConfig{Concurrency: 2, ShutdownTimeout: 30 * time.Second},
		LLM:    LLMConfig{Provider: "anthropic", APIKey: "key", RateWindow: 65 * time.Second},
		Batch:  BatchConfig{Limit: 5, CronSecret: "cron"},
		Session: SessionConfig{
			Secret: "0123456789abcdef0123456789abcdef",
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name:      "invalid server port",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "missing database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			errString: "database name is required",
		},
		{
			name:      "missing exchange",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.LLM.Provider = "gemini" },
			errString: "unsupported llm provider",
		},
		{
			name:      "missing api key",
			mutate:    func(c *Config) { c.LLM.APIKey = "" },
			errString: "llm api_key is required",
		},
		{
			name:      "missing cron secret",
			mutate:    func(c *Config) { c.Batch.CronSecret = "" },
			errString: "cron_secret is required",
		},
		{
			name:      "short session secret",
			mutate:    func(c *Config) { c.Session.Secret = "short" },
			errString: "session secret must be at least 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name: "server port not required",
			mutate: func(c *Config) {
				c.Server.Port = 0
				c.Batch.CronSecret = ""
			},
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "missing shutdown timeout",
			mutate:    func(c *Config) { c.Worker.ShutdownTimeout = 0 },
			errString: "shutdown_timeout must be greater than 0",
		},
		{
			name:      "negative batch limit",
			mutate:    func(c *Config) { c.Batch.Limit = -1 },
			errString: "must not be negative",
		},
		{
			name:      "invalid rabbitmq port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = 0 },
			errString: "invalid rabbitmq port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}
