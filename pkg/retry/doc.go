// Package retry provides backoff strategies and a retry loop for fetch
// operations that may fail with rate limits or transient errors.
//
// Delays can be chosen per error type with ErrorTypeBackoff, and all waiting
// goes through a Sleeper so tests can drive time with a fake clock:
//
//	backoff := retry.NewErrorTypeBackoff(5*time.Second, time.Second)
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return fetch(ctx)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		DelayFor:    backoff.DelayFor,
//		WaitOnFinal: func(err error) bool { return errors.IsType(err, errors.ErrorTypeRateLimit) },
//		Sleeper:     retry.NewClockSleeper(clock),
//	})
package retry
