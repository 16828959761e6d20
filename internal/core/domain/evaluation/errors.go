package evaluation

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when the caller has used up its window quota.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitedMessage is the client-facing text for ErrRateLimited.
const RateLimitedMessage = "Rate limit exceeded. Please try again later."

// ValidationError reports malformed or out-of-range client input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failure of the model or another collaborator.
// Its detail is for logs only.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }
