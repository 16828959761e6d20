package repositories

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

// StartUsageJanitor periodically deletes expired usage records until ctx is cancelled.
// Cleanup is best effort; the limiter never depends on it.
func StartUsageJanitor(ctx context.Context, purger ports.UsagePurger, every time.Duration, logger *logrus.Logger) {
	if purger == nil || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				n, err := purger.PurgeExpired(ctx, now)
				if err != nil {
					if logger != nil {
						logger.WithError(err).Warn("usage janitor: purge failed")
					}
					continue
				}
				if logger != nil && n > 0 {
					logger.WithField("deleted", n).Debug("usage janitor: purged expired records")
				}
			}
		}
	}()
}
