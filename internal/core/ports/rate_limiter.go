package ports

import (
	"context"
	"time"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
)

// UsageStore provides the counter operations the rate limiter needs.
// Implementations must make ConditionalIncrement and Reset atomic per key.
type UsageStore interface {
	// Get returns the record for key, or nil when none exists.
	Get(ctx context.Context, key string) (*usage.Record, error)
	// ConditionalIncrement adds one to the counter when the key has no window yet (starting one at now)
	// or its window started less than window ago. applied is false when the window has rolled over.
	// On success the expiry is refreshed to now + 2*window.
	ConditionalIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (applied bool, err error)
	// Reset starts a new window at now with count 1.
	Reset(ctx context.Context, key string, now time.Time, window time.Duration) error
}

// UsagePurger is implemented by stores that need application-driven cleanup of expired records.
type UsagePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RateLimiterService is a per-client fixed-window limiter. It fails open.
type RateLimiterService interface {
	Check(ctx context.Context, identifier string) usage.Decision
	Record(ctx context.Context, identifier string)
	// CheckAndRecord checks and, only when allowed, records the request.
	CheckAndRecord(ctx context.Context, identifier string) usage.Decision
	Usage(ctx context.Context, identifier string) usage.Snapshot
	// KeyFor returns the opaque store key for identifier.
	KeyFor(identifier string) string
}
