package audit

import (
	"context"
	"math/rand/v2"
	"time"
)

// retry executes fn up to maxAttempts times with jittered exponential backoff.
// The delay doubles on each attempt and gets 0-50% random jitter.
func retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}
		jitter := time.Duration(rand.Int64N(int64(delay/2) + 1))
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
	return lastErr
}
