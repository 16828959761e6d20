package services

import (
	"time"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
)

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveEvaluation(evaluation.Outcome) {}
func (NoopMetrics) ObserveRateLimit(bool) {}
func (NoopMetrics) ObserveModelCall(string, time.Duration, error) {}
func (NoopMetrics) ObserveFallback() {}
