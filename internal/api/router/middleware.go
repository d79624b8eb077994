package router

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/quizforge/internal/api/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	// UserIDHeader is set by an upstream auth proxy for signed-in users
	UserIDHeader = "X-User-ID"
	// CronSecretHeader carries the shared secret of the batch trigger
	CronSecretHeader = "X-Cron-Secret"

	sessionName  = "quizforge_session"
	sessionIDKey = "anon_id"
)

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("body_size", c.Writer.Size()),
		)

		for _, e := range c.Errors {
			logger.Error("Request error",
				slog.String("error", e.Error()),
				slog.Uint64("type", uint64(e.Type)),
			)
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		// without an explicit list no cross-origin access is granted
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", UserIDHeader, CronSecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// CronAuthMiddleware rejects requests without the shared cron secret. An
// empty secret rejects everything.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(CronSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// IdentityMiddleware resolves the owner id of the request: the auth proxy's
// user id when present, otherwise an anonymous id kept in a session cookie.
func IdentityMiddleware(store sessions.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
			c.Set(handler.UserIDKey, userID)
			c.Next()
			return
		}

		// a cookie that fails to decode yields a fresh session
		session, err := store.Get(c.Request, sessionName)
		if err != nil {
			logger.Debug("Discarding unreadable session cookie", slog.String("error", err.Error()))
		}

		anonID, _ := session.Values[sessionIDKey].(string)
		if anonID == "" {
			anonID = "anon-" + uuid.NewString()
			session.Values[sessionIDKey] = anonID
			if err := session.Save(c.Request, c.Writer); err != nil {
				logger.Warn("Failed to save session", slog.String("error", err.Error()))
			}
		}

		c.Set(handler.UserIDKey, anonID)
		c.Next()
	}
}

// NewSessionStore creates the cookie store backing anonymous identities
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
