package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/config"
)

// lockAttempt tries to take a lease once. It reports whether the lease was granted.
type lockAttempt func(ctx context.Context) (bool, error)

// normalizeLockConfig fills zero values with the defaults used by config.Load
func normalizeLockConfig(cfg config.LockConfig) config.LockConfig {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "hms:lock:booking:"
	}
	return cfg
}

// waitForLease retries attempt every backoff until it succeeds, the wait timeout passes or
// ctx is done. A timeout is reported as shared.ErrResourceLocked.
func waitForLease(ctx context.Context, cfg config.LockConfig, bookingID uuid.UUID, attempt lockAttempt) error {
	deadline := time.NewTimer(cfg.WaitTimeout)
	defer deadline.Stop()

	for {
		ok, err := attempt(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		retry := time.NewTimer(cfg.RetryBackoff)
		select {
		case <-ctx.Done():
			retry.Stop()
			return ctx.Err()
		case <-deadline.C:
			retry.Stop()
			return fmt.Errorf("%w: booking %s", shared.ErrResourceLocked, bookingID)
		case <-retry.C:
		}
	}
}
