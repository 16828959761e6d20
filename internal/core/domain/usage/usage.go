package usage

import "time"

// UnknownClient is the identifier used when no client address can be resolved.
// It is never rate limited.
const UnknownClient = "unknown"

// Record is the stored counter for one client identifier.
type Record struct {
	Key         string    `json:"key" db:"key"`
	WindowStart time.Time `json:"window_start" db:"window_start"`
	Count       int       `json:"count" db:"count"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the record's window has rolled over at now.
func (r *Record) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(r.WindowStart) >= window
}

// ExpiryFor returns the store expiry for a window touched at t.
func ExpiryFor(t time.Time, window time.Duration) time.Time {
	return t.Add(2 * window)
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed bool
	// Tracked is false for bypassed identifiers; Limit/Remaining/ResetAt are then meaningless.
	Tracked   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Snapshot is the caller-facing view of current usage.
type Snapshot struct {
	Used      int       `json:"requests_used"`
	Remaining int       `json:"requests_remaining"`
	Limit     int       `json:"limit"`
	Window    string    `json:"window"`
	ResetAt   time.Time `json:"reset_at"`
	Tracked   bool      `json:"tracked"`
}
