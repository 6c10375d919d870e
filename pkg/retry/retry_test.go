package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "igextract/pkg/errors"
	"igextract/pkg/logger"
)

// recordingSleeper returns immediately and records requested delays
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 20; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := &LinearBackoff{BaseDelay: 5 * time.Second, Increment: 5 * time.Second, MaxDelay: 12 * time.Second}

	assert.Equal(t, 5*time.Second, backoff.NextDelay(1))
	assert.Equal(t, 10*time.Second, backoff.NextDelay(2))
	assert.Equal(t, 12*time.Second, backoff.NextDelay(3))
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: time.Second}
	assert.Zero(t, backoff.NextDelay(0))
	assert.Equal(t, time.Second, backoff.NextDelay(4))
}

func TestErrorTypeBackoff(t *testing.T) {
	backoff := NewErrorTypeBackoff(5*time.Second, time.Second)

	rateLimited := errs.New(errs.ErrorTypeRateLimit, "429")
	transient := errs.New(errs.ErrorTypeTransient, "503")
	malformed := errs.New(errs.ErrorTypeMalformed, "no user")

	assert.Equal(t, 5*time.Second, backoff.DelayFor(rateLimited, 1))
	assert.Equal(t, 15*time.Second, backoff.DelayFor(rateLimited, 3))
	assert.Equal(t, 1*time.Second, backoff.DelayFor(transient, 1))
	assert.Equal(t, 4*time.Second, backoff.DelayFor(transient, 3))
	assert.Equal(t, 2*time.Second, backoff.DelayFor(malformed, 2))
	assert.Equal(t, 2*time.Second, backoff.DelayFor(errors.New("plain"), 2))
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, "404")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "429")))
	assert.True(t, DefaultRetryIf(errors.New("unknown")))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeTransient, "flaky")
		}
		return nil
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ExponentialBackoff{BaseDelay: time.Second, Multiplier: 2},
		Sleeper:     sleeper,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.ErrorTypeNotFound, "gone")
	}, &Config{MaxAttempts: 3, Sleeper: sleeper})

	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestDoExhaustion(t *testing.T) {
	sleeper := &recordingSleeper{}
	log := logger.NewTestLogger()
	last := errs.New(errs.ErrorTypeTransient, "still down")

	err := Do(context.Background(), func(ctx context.Context) error {
		return last
	}, &Config{
		MaxAttempts: 3,
		DelayFor:    NewErrorTypeBackoff(5*time.Second, time.Second).DelayFor,
		Sleeper:     sleeper,
		Logger:      log,
	})

	assert.True(t, errs.IsType(err, errs.ErrorTypeExhausted))
	assert.ErrorIs(t, err, last)
	// No wait after the final attempt
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
	assert.True(t, log.HasMessage("max retry attempts exceeded"))
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
}

func TestDoWaitOnFinal(t *testing.T) {
	sleeper := &recordingSleeper{}
	var retried []int

	err := Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeRateLimit, "slow down")
	}, &Config{
		MaxAttempts: 3,
		DelayFor:    NewErrorTypeBackoff(5*time.Second, time.Second).DelayFor,
		WaitOnFinal: func(err error) bool { return errs.IsType(err, errs.ErrorTypeRateLimit) },
		OnRetry:     func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) },
		Sleeper:     sleeper,
	})

	assert.True(t, errs.IsType(err, errs.ErrorTypeExhausted))
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}, sleeper.delays)
	assert.Equal(t, []int{1, 2, 3}, retried)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errs.New(errs.ErrorTypeTransient, "flaky")
	}, &Config{MaxAttempts: 5, Sleeper: &recordingSleeper{}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ErrorTypeMalformed, "partial")
		}
		return "profile", nil
	}, &Config{MaxAttempts: 2, Sleeper: &recordingSleeper{}})

	require.NoError(t, err)
	assert.Equal(t, "profile", result)
}

func TestClockSleeperWithFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sleeper := NewClockSleeper(clock)

	done := make(chan error, 1)
	go func() {
		done <- Do(context.Background(), func(ctx context.Context) error {
			return errs.New(errs.ErrorTypeRateLimit, "slow down")
		}, &Config{
			MaxAttempts: 3,
			DelayFor:    NewErrorTypeBackoff(5*time.Second, time.Second).DelayFor,
			WaitOnFinal: func(error) bool { return true },
			Sleeper:     sleeper,
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, step := range []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second} {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(step)
	}

	select {
	case err := <-done:
		assert.True(t, errs.IsType(err, errs.ErrorTypeExhausted))
	case <-ctx.Done():
		t.Fatal("retry loop did not finish")
	}
}

func TestClockSleeperCancelled(t *testing.T) {
	sleeper := NewClockSleeper(clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleeper.Sleep(ctx, time.Hour), context.Canceled)
}

func TestWaitZeroDelay(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
}
