package embed

import (
	"context"
	"fmt"
	"time"
)

const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxDelay     = 2 * time.Second
	retryMultiplier   = 2.0
)

// withRetry executes fn with exponential backoff, up to maxRetries retries
// beyond the initial attempt. Context cancellation aborts immediately.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	delay := retryInitialDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err != nil {
			lastErr = err
			if attempt >= maxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * retryMultiplier)
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
