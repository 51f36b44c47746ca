package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roach88/scanledger/internal/images"
	"github.com/roach88/scanledger/internal/remote"
)

// linearBackoff waits base, 2*base, 3*base... between attempts.
func linearBackoff(base time.Duration, maxAttempts int) retry.Backoff {
	var n int64
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * base, false
	})
	return retry.WithMaxRetries(uint64(maxAttempts-1), next)
}

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, remote.ErrInvalidRecord) ||
		errors.Is(err, images.ErrNoImage) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// attempt runs fn under the configured backoff and returns the number of
// calls made along with the final error.
func (s *Syncer) attempt(ctx context.Context, fn func(context.Context) error) (int, error) {
	calls := 0
	err := retry.Do(ctx, linearBackoff(s.cfg.RetryBase, s.cfg.MaxAttempts), func(ctx context.Context) error {
		calls++
		if err := fn(ctx); err != nil {
			if permanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	return calls, err
}
