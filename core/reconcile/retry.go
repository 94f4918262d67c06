package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs op until it succeeds, fails with a non-transient error, or the
// attempt budget in cfg is spent. A transient error that outlives the budget
// is returned wrapped in ErrRetriesExhausted.
func Retry(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if cfg.RetryInitialInterval > 0 {
		b.InitialInterval = cfg.RetryInitialInterval
	}
	if cfg.RetryMaxInterval > 0 {
		b.MaxInterval = cfg.RetryMaxInterval
	} else {
		b.MaxInterval = 5 * time.Second
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	err := backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if IsTransient(err) {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}
	return err
}
