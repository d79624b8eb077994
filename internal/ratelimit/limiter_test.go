package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(window, WithClock(clock.Now)), clock
}

func TestNew_DefaultWindow(t *testing.T) {
	l := New(0)
	assert.Equal(t, DefaultWindow, l.Window())
	assert.True(t, l.LastCall().IsZero())
}

func TestReserve_FirstCallAllowed(t *testing.T) {
	l, clock := newTestLimiter(time.Minute)

	r, err := l.Reserve()
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), r.Start())

	r.Succeeded()
	assert.Equal(t, clock.Now(), l.LastCall())
}

func TestReserve_SecondCallInsideWindowRefused(t *testing.T) {
	l, clock := newTestLimiter(65 * time.Second)

	r, err := l.Reserve()
	require.NoError(t, err)
	first := r.Start()
	r.Succeeded()

	clock.Advance(10 * time.Second)
	_, err = l.Reserve()
	require.Error(t, err)

	var rl *domain.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 55*time.Second, rl.RetryAfter)

	// refusal never advances the marker
	assert.Equal(t, first, l.LastCall())
}

func TestReserve_AfterWindowAllowed(t *testing.T) {
	l, clock := newTestLimiter(65 * time.Second)

	r, err := l.Reserve()
	require.NoError(t, err)
	r.Succeeded()

	clock.Advance(65 * time.Second)
	r, err = l.Reserve()
	require.NoError(t, err)
	r.Succeeded()
	assert.Equal(t, clock.Now(), l.LastCall())
}

func TestReserve_MarkerUsesStartTime(t *testing.T) {
	l, clock := newTestLimiter(time.Minute)

	r, err := l.Reserve()
	require.NoError(t, err)
	start := clock.Now()

	// the call takes a while before it succeeds
	clock.Advance(20 * time.Second)
	r.Succeeded()

	assert.Equal(t, start, l.LastCall())
}

func TestReserve_InFlightRefused(t *testing.T) {
	l, _ := newTestLimiter(time.Minute)

	r, err := l.Reserve()
	require.NoError(t, err)

	_, err = l.Reserve()
	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)

	r.Failed()
	_, err = l.Reserve()
	assert.NoError(t, err)
}

func TestReservation_FailedKeepsMarker(t *testing.T) {
	l, _ := newTestLimiter(time.Minute)

	r, err := l.Reserve()
	require.NoError(t, err)
	r.Failed()
	assert.True(t, l.LastCall().IsZero())

	// finishing twice is a no-op
	r.Succeeded()
	assert.True(t, l.LastCall().IsZero())
}
