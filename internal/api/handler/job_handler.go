package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/quizforge/internal/api/dto"
	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const publishTimeout = 3 * time.Second

// SubmitJob handles POST /api/v1/jobs
// Records a pending job and returns its id without waiting for generation
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		h.logger.Warn("Invalid job submission", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "title and originalQuiz are required",
		})
		return
	}

	numQuestions := req.NumQuestions
	if numQuestions <= 0 {
		numQuestions = len(req.OriginalQuiz.Questions)
	}

	meta := domain.JobMetadata{
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		NumQuestions:   domain.ClampQuestionCount(numQuestions),
		Difficulty:     domain.ParseDifficulty(req.Difficulty),
		UserID:         currentUser(c),
		OriginalQuizID: req.OriginalQuiz.ID,
		Category:       req.Category,
	}

	// the id is handed out even if the write failed; polling falls back
	jobID, err := h.jobs.CreateJob(c.Request.Context(), meta)
	if err != nil {
		h.logger.Error("Failed to persist job, returning id anyway",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	} else {
		h.publishTrigger(c.Request.Context(), jobID)
	}

	c.JSON(http.StatusAccepted, dto.SubmitJobResponse{
		JobID:  jobID,
		Status: string(domain.JobStatusPending),
	})
}

// publishTrigger asks the worker to run a batch. Failures are only logged;
// the cron trigger picks the job up later.
func (h *JobHandler) publishTrigger(ctx context.Context, jobID string) {
	if h.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := domain.BatchMessage{Reason: "job_submitted", JobID: jobID}
	if err := h.publisher.PublishTrigger(ctx, msg); err != nil {
		h.logger.Warn("Failed to publish batch trigger",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// GetJobStatus handles GET /api/v1/jobs/:jobId/status
// Always answers 200; store failures are reported as a job still processing
func (h *JobHandler) GetJobStatus(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobId"))
	if jobID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "jobId is required"})
		return
	}

	c.JSON(http.StatusOK, h.status.GetStatus(c.Request.Context(), jobID))
}

// RunPendingBatch handles GET /api/v1/batch/run
// Drains one batch of pending jobs; guarded by the cron secret middleware
func (h *JobHandler) RunPendingBatch(c *gin.Context) {
	var req dto.RunBatchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be between 1 and 50"})
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = h.batchLimit
	}

	report, err := h.batch.RunBatch(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Batch processing failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Batch processing failed",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.RunBatchResponse{
		Message: report.Message(),
		Results: lo.Map(report.Results, func(r worker.JobResult, _ int) dto.BatchJobResult {
			return dto.BatchJobResult{
				JobID:  r.JobID,
				Status: r.Status,
				Error:  r.Error,
				QuizID: r.QuizID,
			}
		}),
	})
}
