package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "igextract/pkg/errors"
	"igextract/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts
	MaxAttempts int
	// Backoff is used when DelayFor is nil
	Backoff BackoffStrategy
	// DelayFor picks a delay from the failing error
	DelayFor func(err error, attempt int) time.Duration
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// WaitOnFinal reports whether to still wait after the last attempt fails
	WaitOnFinal func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleeper performs the waits
	Sleeper Sleeper
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ExponentialBackoff{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2.0, JitterFactor: 0.1},
		RetryIf:     DefaultRetryIf,
		Sleeper:     NewClockSleeper(nil),
		Logger:      logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries typed errors the taxonomy marks retryable and
// never retries context errors.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	return true
}

// Do executes an operation with retry logic. When every attempt fails the
// returned error has type ErrorTypeExhausted and wraps the last failure.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	cfg = withDefaults(cfg)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}

		final := attempt == cfg.MaxAttempts
		if final && (cfg.WaitOnFinal == nil || !cfg.WaitOnFinal(err)) {
			break
		}

		delay := cfg.delay(err, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": cfg.MaxAttempts,
		})

		if err := cfg.Sleeper.Sleep(ctx, delay); err != nil {
			cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt,
				"reason":  err.Error(),
			})
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"attempts":   cfg.MaxAttempts,
		"last_error": errString(lastErr),
	})
	return &errs.Error{
		Type:    errs.ErrorTypeExhausted,
		Message: fmt.Sprintf("max retry attempts (%d) exceeded", cfg.MaxAttempts),
		Err:     lastErr,
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)

	return result, err
}

func withDefaults(cfg *Config) *Config {
	defaults := DefaultConfig()
	if cfg == nil {
		return defaults
	}

	merged := *cfg
	if merged.MaxAttempts <= 0 {
		merged.MaxAttempts = 1
	}
	if merged.Backoff == nil {
		merged.Backoff = defaults.Backoff
	}
	if merged.RetryIf == nil {
		merged.RetryIf = defaults.RetryIf
	}
	if merged.Sleeper == nil {
		merged.Sleeper = defaults.Sleeper
	}
	if merged.Logger == nil {
		merged.Logger = defaults.Logger
	}
	return &merged
}

func (cfg *Config) delay(err error, attempt int) time.Duration {
	if cfg.DelayFor != nil {
		return cfg.DelayFor(err, attempt)
	}
	return cfg.Backoff.NextDelay(attempt)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
