package dto

import "github.com/cuongbtq/quizforge/internal/domain"

type GenerateQuizRequest struct {
	Content      string `json:"content" binding:"required"`
	Title        string `json:"title"`
	NumQuestions int    `json:"numQuestions"`
	Difficulty   string `json:"difficulty"`
	Category     string `json:"category"`
}

type ListQuizzesRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListQuizzesResponse struct {
	Quizzes    []domain.Quiz `json:"quizzes"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type ErrorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}
