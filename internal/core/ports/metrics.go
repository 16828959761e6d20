package ports

import (
	"time"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
)

// EvaluationMetrics records domain-level counters. A no-op implementation exists
// so callers never check for nil.
type EvaluationMetrics interface {
	ObserveEvaluation(outcome evaluation.Outcome)
	ObserveRateLimit(allowed bool)
	ObserveModelCall(model string, d time.Duration, err error)
	ObserveFallback()
}
