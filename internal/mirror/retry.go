package mirror

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy bounds how the executor retries transient remote failures.
// Exhausting the attempts does not fail an entry; it degrades back to
// pending so a later resume can pick it up.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches typical remote rate-limit behavior: a few
// quick, jittered attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn, retrying transient errors with exponential backoff. Permanent
// and conflict errors return immediately, as does context cancellation.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return err
		}

		// full jitter on the current backoff window
		sleep := time.Duration(rand.Int63n(int64(delay) + 1))
		slog.Debug("retrying after transient error", "op", op, "attempt", attempt, "backoff", sleep, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
