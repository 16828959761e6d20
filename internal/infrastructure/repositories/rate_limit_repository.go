package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
)

const (
	fieldWindowStart = "window_start"
	fieldCount       = "count"
	fieldExpiresAt   = "expires_at"
)

// conditionalIncrementScript bumps the counter unless the stored window has rolled over.
// KEYS[1] = key, ARGV[1] = now (unix ms), ARGV[2] = window (ms), ARGV[3] = ttl (ms),
// ARGV[4] = expiry (unix ms).
// Returns the new count, or -1 when the window is stale.
var conditionalIncrementScript = redis.NewScript(`
local ws = redis.call('HGET', KEYS[1], 'window_start')
local now = tonumber(ARGV[1])
if ws and (now - tonumber(ws)) >= tonumber(ARGV[2]) then
  return -1
end
if not ws then
  redis.call('HSET', KEYS[1], 'window_start', ARGV[1])
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
redis.call('HSET', KEYS[1], 'expires_at', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return count
`)

// RateLimitRedisRepository implements usage counter storage with Redis hashes.
type RateLimitRedisRepository struct {
	r redis.Cmdable
}

func NewRateLimitRedisRepository(r redis.Cmdable) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r}
}

// Get loads the usage record stored under key.
func (repo *RateLimitRedisRepository) Get(ctx context.Context, key string) (*usage.Record, error) {
	vals, err := repo.r.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	ws, ok := vals[fieldWindowStart]
	if !ok {
		return nil, nil
	}
	wsMs, err := strconv.ParseInt(ws, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s of %s: %w", fieldWindowStart, key, err)
	}
	count, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return nil, fmt.Errorf("parse %s of %s: %w", fieldCount, key, err)
	}
	rec := &usage.Record{Key: key, WindowStart: time.UnixMilli(wsMs), Count: count}
	if exp, ok := vals[fieldExpiresAt]; ok {
		expMs, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s of %s: %w", fieldExpiresAt, key, err)
		}
		rec.ExpiresAt = time.UnixMilli(expMs)
	}
	return rec, nil
}

// ConditionalIncrement runs the increment script atomically on the server.
func (repo *RateLimitRedisRepository) ConditionalIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	res, err := conditionalIncrementScript.Run(ctx, repo.r, []string{key},
		now.UnixMilli(), window.Milliseconds(), (2 * window).Milliseconds(), usage.ExpiryFor(now, window).UnixMilli()).Int64()
	if err != nil {
		return false, err
	}
	return res >= 0, nil
}

// Reset starts a fresh window with a single request.
func (repo *RateLimitRedisRepository) Reset(ctx context.Context, key string, now time.Time, window time.Duration) error {
	pipe := repo.r.TxPipeline()
	pipe.HSet(ctx, key, fieldWindowStart, now.UnixMilli(), fieldCount, 1, fieldExpiresAt, usage.ExpiryFor(now, window).UnixMilli())
	pipe.PExpire(ctx, key, 2*window)
	_, err := pipe.Exec(ctx)
	return err
}
