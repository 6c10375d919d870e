package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	errs "igextract/pkg/errors"
)

// BackoffStrategy defines the interface for different backoff strategies.
// Attempts are counted from 1.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter
type ExponentialBackoff struct {
	// BaseDelay is the delay after the first attempt
	BaseDelay time.Duration
	// MaxDelay caps the delay; zero means no cap
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
	// JitterFactor adds randomness (0.0 to 1.0)
	JitterFactor float64
}

// NextDelay returns BaseDelay * Multiplier^(attempt-1)
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	return finish(delay, eb.MaxDelay, eb.JitterFactor)
}

// LinearBackoff implements linear backoff strategy
type LinearBackoff struct {
	// BaseDelay is the delay after the first attempt
	BaseDelay time.Duration
	// MaxDelay caps the delay; zero means no cap
	MaxDelay time.Duration
	// Increment is the amount to increase delay by each attempt
	Increment time.Duration
	// JitterFactor adds randomness (0.0 to 1.0)
	JitterFactor float64
}

// NextDelay returns BaseDelay + Increment*(attempt-1)
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(lb.BaseDelay + lb.Increment*time.Duration(attempt-1))
	return finish(delay, lb.MaxDelay, lb.JitterFactor)
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

func finish(delay float64, max time.Duration, jitterFactor float64) time.Duration {
	if max > 0 && delay > float64(max) {
		delay = float64(max)
	}
	if jitterFactor > 0 {
		jitter := delay * jitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ErrorTypeBackoff provides different backoff strategies based on error types
type ErrorTypeBackoff struct {
	// RateLimitBackoff for 429 responses
	RateLimitBackoff BackoffStrategy
	// TransientBackoff for network errors, 5xx and malformed bodies
	TransientBackoff BackoffStrategy
	// DefaultBackoff for everything else
	DefaultBackoff BackoffStrategy
}

// NewErrorTypeBackoff waits rateLimitStep*attempt after a rate limit and
// transientBase*2^(attempt-1) after other retryable failures.
func NewErrorTypeBackoff(rateLimitStep, transientBase time.Duration) *ErrorTypeBackoff {
	transient := &ExponentialBackoff{BaseDelay: transientBase, Multiplier: 2.0}
	return &ErrorTypeBackoff{
		RateLimitBackoff: &LinearBackoff{BaseDelay: rateLimitStep, Increment: rateLimitStep},
		TransientBackoff: transient,
		DefaultBackoff:   transient,
	}
}

// GetBackoffForError returns the strategy for an error type
func (etb *ErrorTypeBackoff) GetBackoffForError(errorType errs.ErrorType) BackoffStrategy {
	switch errorType {
	case errs.ErrorTypeRateLimit:
		return etb.RateLimitBackoff
	case errs.ErrorTypeTransient, errs.ErrorTypeMalformed:
		return etb.TransientBackoff
	default:
		return etb.DefaultBackoff
	}
}

// DelayFor picks the delay for err on the given attempt
func (etb *ErrorTypeBackoff) DelayFor(err error, attempt int) time.Duration {
	return etb.GetBackoffForError(errs.TypeOf(err)).NextDelay(attempt)
}

// Sleeper waits for a duration or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps on a clockwork clock
type ClockSleeper struct {
	Clock clockwork.Clock
}

// NewClockSleeper returns a sleeper on clock, or on the real clock when nil
func NewClockSleeper(clock clockwork.Clock) *ClockSleeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockSleeper{Clock: clock}
}

// Sleep waits for d on the clock or until context is cancelled
func (s *ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-s.Clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
