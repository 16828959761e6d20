package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
)

// Prometheus implements ports.EvaluationMetrics.
type Prometheus struct {
	evaluations   *prometheus.CounterVec
	rateDecisions *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	fallbacks     prometheus.Counter
}

// NewPrometheus creates the domain metrics and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluations_total",
				Help: "Evaluation requests by outcome",
			},
			[]string{"outcome"},
		),
		rateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_decisions_total",
				Help: "Rate limiter decisions for tracked clients",
			},
			[]string{"decision"},
		),
		modelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "model_request_duration_seconds",
				Help:    "Latency of language model calls",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"model", "status"},
		),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "normalizer_fallbacks_total",
			Help: "Model replies that could not be parsed and were replaced by the fallback evaluation",
		}),
	}
	reg.MustRegister(p.evaluations, p.rateDecisions, p.modelDuration, p.fallbacks)
	return p
}

func (p *Prometheus) ObserveEvaluation(outcome evaluation.Outcome) {
	p.evaluations.WithLabelValues(string(outcome)).Inc()
}

func (p *Prometheus) ObserveRateLimit(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "limited"
	}
	p.rateDecisions.WithLabelValues(decision).Inc()
}

func (p *Prometheus) ObserveModelCall(model string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.modelDuration.WithLabelValues(model, status).Observe(d.Seconds())
}

func (p *Prometheus) ObserveFallback() {
	p.fallbacks.Inc()
}
