package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/quizforge/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// Config holds router-level settings
type Config struct {
	ServiceName    string
	CronSecret     string
	AllowedOrigins []string
	Sessions       sessions.Store
	// HealthCheck reports durable store reachability; nil skips it
	HealthCheck func(ctx context.Context) error
	// TriggersConnected reports whether batch triggers can be published
	TriggersConnected func() bool
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, cfg *Config) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	// degraded still answers 200: the api serves from cache and the cron path
	r.GET("/health", func(c *gin.Context) {
		resp := gin.H{
			"status":  "healthy",
			"service": cfg.ServiceName,
		}
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(c.Request.Context()); err != nil {
				resp["status"] = "degraded"
				resp["error"] = err.Error()
			}
		}
		if cfg.TriggersConnected != nil {
			connected := cfg.TriggersConnected()
			resp["triggers"] = connected
			if !connected {
				resp["status"] = "degraded"
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	jobHandler := handler.NewJobHandler(deps)
	quizHandler := handler.NewQuizHandler(deps)

	v1 := r.Group("/api/v1")
	{
		// cron-triggered, no user identity
		v1.GET("/batch/run", CronAuthMiddleware(cfg.CronSecret), jobHandler.RunPendingBatch)

		// polling needs no identity either
		v1.GET("/jobs/:jobId/status", jobHandler.GetJobStatus)

		owned := v1.Group("", IdentityMiddleware(cfg.Sessions, deps.Logger))
		{
			owned.POST("/jobs", jobHandler.SubmitJob)

			owned.POST("/quizzes/generate", quizHandler.GenerateQuiz)
			owned.GET("/quizzes", quizHandler.ListQuizzes)
			owned.GET("/quizzes/:quizId", quizHandler.GetQuiz)
			owned.DELETE("/quizzes/:quizId", quizHandler.DeleteQuiz)
		}
	}

	deps.Logger.Info("Router configured", slog.String("service", cfg.ServiceName))
	return r
}
