package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Retrier re-runs a remote write with a doubling backoff. Each attempt gets
// its own timeout; cancelling ctx aborts the remaining attempts.
type Retrier struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

func NewRetrier(maxAttempts int) Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	return Retrier{
		MaxAttempts:    maxAttempts,
		BaseDelay:      1 * time.Second,
		AttemptTimeout: 50 * time.Second,
	}
}

// Do runs op until it succeeds or the attempts are used up.
func (r Retrier) Do(ctx context.Context, key string, op func(ctx context.Context) error) error {
	maxRetries := r.MaxAttempts
	if maxRetries <= 0 {
		maxRetries = 1
	}
	backoff := r.BaseDelay
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			attemptCtx := ctx
			if r.AttemptTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, r.AttemptTimeout)
				defer cancel()
			}
			return op(attemptCtx)
		}()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		lastErr = err
		if i == maxRetries-1 {
			break
		}
		slog.Warn(
			"Upload failed, will retry.",
			"key", key,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "key", key, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "key", key, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", key, lastErr)
}
