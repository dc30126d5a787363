// Package retry provides a minimal fixed-backoff retry helper.
package retry

import (
	"context"
	"time"
)

// Do invokes fn up to attempts times, sleeping backoff between attempts. It
// returns nil on the first success, the last error once attempts are
// exhausted, or the context error if the context ends while waiting.
func Do(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}
