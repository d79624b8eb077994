package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyClaimed is returned when a claim finds the job no longer pending
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in pending status")

	// ErrInvalidTransition is returned for any backward or skipping status write
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrQuizNotFound is returned when a quiz cannot be found in the store
	ErrQuizNotFound = errors.New("quiz not found")
)

// ValidationError reports malformed generation output that cannot be repaired
type ValidationError struct {
	Stage  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s validation failed at item %d: %s", e.Stage, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Stage, e.Reason)
}

// RateLimitedError is returned when the generation backend is still cooling down
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry in %s", e.RetryAfter.Round(time.Second))
}

// GenerationBackendError wraps any failure to obtain usable output from the LLM
type GenerationBackendError struct {
	Reason string
	Err    error
}

func (e *GenerationBackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation backend: %s: %v", e.Reason, e.Err)
	}
	return "generation backend: " + e.Reason
}

func (e *GenerationBackendError) Unwrap() error {
	return e.Err
}

// NewGenerationBackendError creates a new backend error
func NewGenerationBackendError(reason string, err error) error {
	return &GenerationBackendError{Reason: reason, Err: err}
}
