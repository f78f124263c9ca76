package llm

import (
	"context"
	"time"
)

// Retry policy defaults for outbound capability calls.
const (
	// DefaultMaxAttempts bounds retries of a single external call.
	DefaultMaxAttempts = 3
	// DefaultAttemptTimeout is the per-attempt deadline.
	DefaultAttemptTimeout = 90 * time.Second
	// defaultBackoffBase is the first retry delay; it doubles per attempt.
	defaultBackoffBase = 2 * time.Second
)

// RetryPolicy controls how an external call is retried.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
}

// DefaultRetryPolicy returns the standard policy from the concurrency model:
// up to three attempts with exponential backoff, retrying only transient
// failure classes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
		BackoffBase:    defaultBackoffBase,
	}
}

// WithRetry runs fn under the policy: each attempt gets its own timeout,
// and only transient errors (timeout, rate-limit) trigger another attempt.
// It returns the number of attempts actually made alongside the final
// error, so callers can record the retry count on the run.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) (attempts int, err error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	for attempts = 1; ; attempts++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}
		err = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			return attempts, nil
		}
		err = Classify(err)
		if !IsTransient(err) || attempts >= policy.MaxAttempts {
			return attempts, err
		}

		backoff := policy.BackoffBase << (attempts - 1)
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
