package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// RetryPolicy re-runs an operation when it loses an optimistic
// concurrency race. Only repository.ErrVersionConflict is retried;
// every other error aborts immediately. Delays grow exponentially
// from BaseDelay with a random jitter so competing writers do not
// retry in lockstep.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewRetryPolicy builds a policy from configuration.
func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.BaseDelay}
}

// Do runs op up to MaxAttempts times. The operation must re-read any
// state it depends on at the start of each attempt: a version conflict
// means the snapshot it acted on is stale.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.backoff(attempt)); err != nil {
				return err
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, repository.ErrVersionConflict) {
			return lastErr
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConcurrencyConflict, p.MaxAttempts, lastErr)
}

// backoff returns BaseDelay * 2^(attempt-1) plus up to BaseDelay of jitter.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(p.BaseDelay)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
