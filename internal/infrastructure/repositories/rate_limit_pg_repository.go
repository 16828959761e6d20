package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/db"
)

// RateLimitPostgresRepository stores usage counters in the usage_records table.
// Atomicity comes from single-statement upserts; no explicit locks are taken.
type RateLimitPostgresRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewRateLimitPostgresRepository(database *db.Database, logger *logrus.Logger) *RateLimitPostgresRepository {
	return &RateLimitPostgresRepository{db: database, logger: logger}
}

const (
	getUsageQuery = `SELECT key, window_start, count, expires_at FROM usage_records WHERE key = $1`

	// The WHERE on the conflict branch makes the update conditional: a stale window
	// leaves the row untouched and reports zero rows affected.
	conditionalIncrementQuery = `
		INSERT INTO usage_records (key, window_start, count, expires_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (key) DO UPDATE
		SET count = usage_records.count + 1, expires_at = EXCLUDED.expires_at
		WHERE usage_records.window_start > $4`

	resetUsageQuery = `
		INSERT INTO usage_records (key, window_start, count, expires_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (key) DO UPDATE
		SET window_start = EXCLUDED.window_start, count = 1, expires_at = EXCLUDED.expires_at`

	purgeUsageQuery = `DELETE FROM usage_records WHERE expires_at < $1`
)

func (r *RateLimitPostgresRepository) Get(ctx context.Context, key string) (*usage.Record, error) {
	var rec usage.Record
	if err := r.db.DB.GetContext(ctx, &rec, getUsageQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RateLimitPostgresRepository) ConditionalIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	res, err := r.db.DB.ExecContext(ctx, conditionalIncrementQuery, key, now, usage.ExpiryFor(now, window), now.Add(-window))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RateLimitPostgresRepository) Reset(ctx context.Context, key string, now time.Time, window time.Duration) error {
	_, err := r.db.DB.ExecContext(ctx, resetUsageQuery, key, now, usage.ExpiryFor(now, window))
	return err
}

// PurgeExpired deletes records whose expiry has passed.
func (r *RateLimitPostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.DB.ExecContext(ctx, purgeUsageQuery, now)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to purge expired usage records")
		}
		return 0, err
	}
	n, _ := res.RowsAffected()
	if r.logger != nil && n > 0 {
		r.logger.WithField("deleted", n).Debug("db: purged expired usage records")
	}
	return n, nil
}
