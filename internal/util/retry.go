package util

import (
	"context"
	"math/rand"
	"time"
)

// DefaultBackoff is the starting delay the data-loading and alerting paths
// pass to Retry.
const DefaultBackoff = 500 * time.Millisecond

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay, plus up to 25% jitter so concurrent workers retrying against the
// same upstream do not re-collide in lockstep. It returns nil on the first
// successful call, or the last error if all attempts fail. Context
// cancellation is honored between retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay + jitter(delay)):
			}
			delay *= 2
		}
	}

	return err
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)/4 + 1))
}
