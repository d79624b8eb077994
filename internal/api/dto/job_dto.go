package dto

import "encoding/json"

// SubmitJobRequest asks for a new quiz similar to OriginalQuiz
type SubmitJobRequest struct {
	Title        string        `json:"title" binding:"required"`
	NumQuestions int           `json:"numQuestions"`
	Difficulty   string        `json:"difficulty"`
	OriginalQuiz *OriginalQuiz `json:"originalQuiz" binding:"required"`
	Content      string        `json:"content"`
	Category     string        `json:"category"`
}

// OriginalQuiz is the reference quiz of a submission. Questions are kept raw;
// only their count is used.
type OriginalQuiz struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Questions []json.RawMessage `json:"questions"`
}

type SubmitJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

type RunBatchRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

type RunBatchResponse struct {
	Message string           `json:"message"`
	Results []BatchJobResult `json:"results"`
}

type BatchJobResult struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	QuizID string `json:"quizId,omitempty"`
}
