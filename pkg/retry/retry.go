// Package retry provides a small named retry policy. The allocator's
// duplicate-card retry and the delivery session's send retry share one policy
// shape so both call sites stay independently testable.
package retry

import (
	"context"
	"time"
)

// Policy bounds an operation to MaxAttempts tries, sleeping Backoff(attempt)
// between failures. Retryable decides whether an error is worth another try;
// a nil Retryable retries every error.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
}

// Linear returns a backoff growing by step per attempt: step, 2*step, 3*step.
func Linear(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Exponential returns a backoff doubling from base: base, 2*base, 4*base.
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// None disables sleeping between attempts. Used by tests.
func None() func(int) time.Duration {
	return func(int) time.Duration { return 0 }
}

// Do runs op until it succeeds, the error is not retryable, the attempts are
// exhausted, or ctx is cancelled. The attempt number passed to op is 1-based.
// The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if wait := p.backoff(attempt); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (p Policy) backoff(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}
