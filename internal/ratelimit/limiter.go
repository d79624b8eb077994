package ratelimit

import (
	"sync"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
)

// DefaultWindow is the minimum spacing between two generation calls
const DefaultWindow = 65 * time.Second

// Limiter is a single process-wide cooldown gate in front of the generation backend.
// It never sleeps: a call inside the window, or while another call is in flight,
// is refused with a RateLimitedError.
// State lives in memory only, so it resets on restart and is not shared between processes.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	lastCall time.Time
	inFlight bool
	now      func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter with the given window; a non-positive window uses DefaultWindow
func New(window time.Duration, opts ...Option) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the configured interval
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Reservation is a granted slot for one backend call
type Reservation struct {
	limiter *Limiter
	start   time.Time
	done    bool
}

// Start returns the time the slot was granted at
func (r *Reservation) Start() time.Time {
	return r.start
}

// Succeeded records the reservation's start as the last successful call
func (r *Reservation) Succeeded() {
	r.finish(true)
}

// Failed releases the slot without moving the last call marker
func (r *Reservation) Failed() {
	r.finish(false)
}

func (r *Reservation) finish(success bool) {
	l := r.limiter
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.done {
		return
	}
	r.done = true
	l.inFlight = false
	if success && r.start.After(l.lastCall) {
		l.lastCall = r.start
	}
}

// Reserve grants a slot when no call is in flight and the window since the last
// successful call has elapsed. A refusal returns *domain.RateLimitedError and
// leaves the marker untouched. The caller must finish the reservation.
func (l *Limiter) Reserve() (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now()
	if l.inFlight {
		return nil, &domain.RateLimitedError{RetryAfter: l.window}
	}
	if !l.lastCall.IsZero() {
		if elapsed := at.Sub(l.lastCall); elapsed < l.window {
			return nil, &domain.RateLimitedError{RetryAfter: l.window - elapsed}
		}
	}
	l.inFlight = true
	return &Reservation{limiter: l, start: at}, nil
}

// LastCall returns the marker, zero if no call succeeded yet
func (l *Limiter) LastCall() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.lastCall
}
