package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/quizforge/internal/api/handler"
	"github.com/cuongbtq/quizforge/internal/api/router"
	"github.com/cuongbtq/quizforge/internal/api/status"
	"github.com/cuongbtq/quizforge/internal/app"
	"github.com/cuongbtq/quizforge/internal/config"
	"github.com/cuongbtq/quizforge/internal/worker"
	"github.com/cuongbtq/quizforge/shared/postgresql"
	"github.com/cuongbtq/quizforge/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := app.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("llm_provider", cfg.LLM.Provider),
	)

	// nil when postgres is down at boot; the stores then live in memory
	dbClient := app.ConnectPostgreSQL(&cfg.Database, appLogger.Component("postgres"))

	// triggers are best effort; the cron endpoint still drains pending jobs
	rabbitClient, err := app.NewRabbitMQ(&cfg.RabbitMQ, appLogger.Component("rabbitmq"))
	if err != nil {
		appLogger.Warn("RabbitMQ unavailable, batch triggers disabled",
			slog.Any("error", err),
		)
	}

	quizPipeline, err := app.NewPipeline(&cfg.LLM, appLogger.Component("generation"))
	if err != nil {
		return fmt.Errorf("failed to initialize generation pipeline: %w", err)
	}

	stores := app.NewStores(dbClient.GetDB(), &cfg.Storage, appLogger.Logger)

	deps := &handler.Dependencies{
		Logger:  appLogger.Component("api"),
		Jobs:    stores.Jobs,
		Quizzes: stores.Quizzes,
		Status: status.NewService(&status.Config{
			Logger:          appLogger.Component("status"),
			Jobs:            stores.Jobs,
			AverageDuration: cfg.Status.AverageDuration,
			CacheSize:       cfg.Status.CacheSize,
			CacheTTL:        cfg.Status.CacheTTL,
		}),
		Batch: worker.NewProcessor(&worker.ProcessorConfig{
			Logger:      appLogger.Component("processor"),
			Jobs:        stores.Jobs,
			Quizzes:     stores.Quizzes,
			Builder:     quizPipeline,
			Concurrency: cfg.Batch.Concurrency,
		}),
		Builder:    quizPipeline,
		BatchLimit: cfg.Batch.Limit,
	}
	// a nil *rabbitmq.Client must not become a non-nil interface
	if rabbitClient != nil {
		deps.Publisher = rabbitClient
	}

	r := initRouter(cfg, deps, dbClient, rabbitClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer func() {
		cancel()
		closeClients(dbClient, rabbitClient)
	}()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter sets the gin mode and builds the router
func initRouter(cfg *config.Config, deps *handler.Dependencies, dbClient *postgresql.Client, rabbitClient *rabbitmq.Client) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	routerCfg := &router.Config{
		ServiceName:    cfg.App.Name,
		CronSecret:     cfg.Batch.CronSecret,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Sessions:       router.NewSessionStore(cfg.Session.Secret, cfg.Session.Secure),
		// both clients answer for themselves when nil
		HealthCheck:       dbClient.HealthCheck,
		TriggersConnected: rabbitClient.IsConnected,
	}

	return router.SetupRouter(deps, routerCfg)
}

func closeClients(dbClient *postgresql.Client, rabbitClient *rabbitmq.Client) {
	dbClient.Close()
	rabbitClient.Close()
}
