package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

// Throttled paces calls to the wrapped model across the whole process.
type Throttled struct {
	next    ports.ModelClient
	limiter *rate.Limiter
}

func NewThrottled(next ports.ModelClient, rps float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Name() string { return t.next.Name() }

// Complete waits for a token, bounded by ctx, then delegates.
func (t *Throttled) Complete(ctx context.Context, prompt string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("model throttle: %w", err)
	}
	return t.next.Complete(ctx, prompt)
}
