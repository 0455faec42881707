package retry

import (
	"context"
	"time"
)

// Policy bounds how often and how patiently a transient failure is retried.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Default matches the storage layer's tolerance for lock contention.
var Default = Policy{MaxAttempts: 4, Backoff: 50 * time.Millisecond}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts
// run out. The backoff doubles after every failed attempt and waiting stops as
// soon as ctx is done.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			return lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		backoff *= 2
	}

	return lastErr
}
