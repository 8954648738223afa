package sync

import (
	"context"
	"time"

	"taskmind-backend/pkg/ai"
)

const (
	maxAttempts = 3
	baseBackoff = 2 * time.Second
)

// retryTransient runs fn up to maxAttempts times with exponential backoff.
// Parse errors abort immediately: a deterministic parse failure cannot
// self-heal by retrying, only transport failures can.
func retryTransient(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(baseBackoff << (attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if ai.IsParseError(err) {
			return err
		}
	}
	return err
}
