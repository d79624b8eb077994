package domain

import "time"

// JobMetadata is the immutable input snapshot of a job
type JobMetadata struct {
	Title          string     `json:"title"`
	Content        string     `json:"content,omitempty"`
	NumQuestions   int        `json:"numQuestions"`
	Difficulty     Difficulty `json:"difficulty"`
	UserID         string     `json:"userId"`
	OriginalQuizID string     `json:"originalQuizId,omitempty"`
	Category       string     `json:"category,omitempty"`
}

// Job is a unit of asynchronous quiz generation work
type Job struct {
	ID        string      `json:"id"`
	Status    JobStatus   `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Metadata  JobMetadata `json:"metadata"`
	Result    *Quiz       `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// JobUpdate carries the optional fields of a status write
type JobUpdate struct {
	Result *Quiz
	Error  string
}

// Sanitized returns a copy that only exposes Result when completed and Error when failed
func (j Job) Sanitized() Job {
	if j.Status != JobStatusCompleted {
		j.Result = nil
	}
	if j.Status != JobStatusFailed {
		j.Error = ""
	}
	return j
}

// BatchMessage is the trigger published to the batch queue
type BatchMessage struct {
	Reason string `json:"reason"`
	JobID  string `json:"job_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}
