package domain

import "strings"

// JobStatus is the lifecycle state of a generation job
type JobStatus string

// Job status constants
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is one of the known statuses
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one status to another.
// Only forward edges of pending -> processing -> {completed|failed} are allowed.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusProcessing
	case JobStatusProcessing:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// Difficulty of a generated quiz
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free text to a Difficulty, defaulting to medium
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

const (
	// MinQuestions is the smallest quiz a job may request
	MinQuestions = 1
	// MaxQuestions is the largest quiz a job may request
	MaxQuestions = 20
	// DefaultQuestions is used when a request does not say how many questions it wants
	DefaultQuestions = 5
)

// ClampQuestionCount keeps a requested count inside [MinQuestions, MaxQuestions]
func ClampQuestionCount(n int) int {
	if n <= 0 {
		return DefaultQuestions
	}
	if n > MaxQuestions {
		return MaxQuestions
	}
	return n
}
