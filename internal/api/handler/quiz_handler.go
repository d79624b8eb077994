package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/cuongbtq/quizforge/internal/api/dto"
	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/internal/pipeline"
	"github.com/cuongbtq/quizforge/internal/storage"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxDerivedTitle = 60
)

// GenerateQuiz handles POST /api/v1/quizzes/generate
// Builds and saves a quiz within the request
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req dto.GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "content is required"})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = deriveTitle(req.Content)
	}

	quiz, err := h.builder.Build(c.Request.Context(), pipeline.Request{
		Title:        title,
		Content:      req.Content,
		NumQuestions: req.NumQuestions,
		Difficulty:   domain.Difficulty(req.Difficulty),
		Category:     req.Category,
		UserID:       currentUser(c),
	})
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}

	saved, err := h.quizzes.SaveQuiz(c.Request.Context(), quiz)
	if err != nil {
		h.logger.Error("Failed to save quiz", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to save quiz"})
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *QuizHandler) writeGenerationError(c *gin.Context, err error) {
	h.logger.Warn("Quiz generation failed", slog.String("error", err.Error()))

	var rateLimited *domain.RateLimitedError
	var validationErr *domain.ValidationError
	var backendErr *domain.GenerationBackendError

	switch {
	case errors.As(err, &rateLimited):
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:             rateLimited.Error(),
			RetryAfterSeconds: int(math.Ceil(rateLimited.RetryAfter.Seconds())),
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: validationErr.Error()})
	case errors.As(err, &backendErr):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: backendErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to generate quiz"})
	}
}

// deriveTitle uses the first line of the material, shortened
func deriveTitle(content string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(content), "\n", 2)[0])
	runes := []rune(line)
	if len(runes) > maxDerivedTitle {
		return strings.TrimSpace(string(runes[:maxDerivedTitle])) + "..."
	}
	return line
}

// GetQuiz handles GET /api/v1/quizzes/:quizId
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.Param("quizId")

	quiz, err := h.quizzes.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Quiz not found"})
			return
		}
		h.logger.Error("Failed to get quiz",
			slog.String("quiz_id", quizID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get quiz"})
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes handles GET /api/v1/quizzes
// Lists the caller's quizzes with cursor pagination
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	var req dto.ListQuizzesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeQuizCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cursor"})
		return
	}

	// one extra row tells whether another page exists
	quizzes, err := h.quizzes.ListQuizzes(c.Request.Context(), storage.QuizFilter{
		UserID: currentUser(c),
		Limit:  req.PageSize + 1,
		Cursor: cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list quizzes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list quizzes"})
		return
	}

	resp := dto.ListQuizzesResponse{Quizzes: quizzes}
	if len(quizzes) > req.PageSize {
		resp.Quizzes = quizzes[:req.PageSize]
		last := resp.Quizzes[len(resp.Quizzes)-1]
		resp.NextCursor = EncodeQuizCursor(&storage.QuizCursor{
			CreatedAt: last.CreatedAt,
			QuizID:    last.ID,
		})
	}
	if resp.Quizzes == nil {
		resp.Quizzes = []domain.Quiz{}
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteQuiz handles DELETE /api/v1/quizzes/:quizId
// Only the owner may delete; anyone else sees 404
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.Param("quizId")

	if err := h.quizzes.DeleteQuiz(c.Request.Context(), quizID, currentUser(c)); err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Quiz not found"})
			return
		}
		h.logger.Error("Failed to delete quiz",
			slog.String("quiz_id", quizID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete quiz"})
		return
	}

	c.Status(http.StatusNoContent)
}
