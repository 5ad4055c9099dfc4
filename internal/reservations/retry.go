package reservations

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const retryBaseDelay = 15 * time.Millisecond

// withRetry re-runs fn from scratch while it loses races. fn must be a whole
// transaction so a retry never observes partial state.
func (s *Service) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(retryBaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(uint64(s.maxRetries), backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if isConflict(err) {
			s.metrics.IncRetry(op)
			if attempt > 1 {
				logCtx := s.logg.WithFields(ctx, map[string]any{"operation": op, "attempt": attempt})
				s.logg.Warn(logCtx, "reservation conflict, retrying")
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if isConflict(err) {
		return conflictExhausted(err)
	}
	return err
}
