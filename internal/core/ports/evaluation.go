package ports

import (
	"context"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
)

// ResponseNormalizer turns raw model text into a complete result. It never fails.
type ResponseNormalizer interface {
	Normalize(raw string) *evaluation.Result
	// Parse is Normalize that also reports whether the fallback result was used.
	Parse(raw string) (res *evaluation.Result, fallback bool)
}

// EvaluationService runs the validate, limit, model, normalize pipeline for one request.
// The returned decision is the rate limiter's view of the caller; it is zero when
// validation failed before the limiter ran.
type EvaluationService interface {
	Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Result, usage.Decision, error)
}
