package api

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Retry runs fn up to maxRetries+1 times with exponential backoff and
// jitter. Auth failures and other client errors (4xx) are never retried;
// network errors and server errors are. Opt-in: destructive operations
// stay single-attempt.
func Retry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		delay := baseDelay*(1<<attempt) + time.Duration(rand.Int63n(int64(baseDelay)))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func retryable(err error) bool {
	if IsAuthError(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return false
	}
	return true
}
