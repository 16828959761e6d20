package services

import (
	"context"
	"errors"
	"io"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/audit"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

type requestIDKey struct{}

// WithRequestID attaches the HTTP request id so audit events can be correlated with access logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// EvaluationConfig groups the per-request bounds of the evaluation pipeline.
type EvaluationConfig struct {
	MinLength      int
	MaxLength      int
	MaxSuggestions int
	ModelTimeout   time.Duration
}

// EvaluationService sequences validation, rate limiting, the model call and normalization.
type EvaluationService struct {
	limiter    ports.RateLimiterService
	model      ports.ModelClient
	normalizer ports.ResponseNormalizer
	audit      ports.AuditService
	metrics    ports.EvaluationMetrics
	cfg        EvaluationConfig
	logger     *logrus.Logger
}

func NewEvaluationService(
	limiter ports.RateLimiterService,
	model ports.ModelClient,
	normalizer ports.ResponseNormalizer,
	auditSvc ports.AuditService,
	metrics ports.EvaluationMetrics,
	cfg *EvaluationConfig,
	logger *logrus.Logger,
) *EvaluationService {
	c := EvaluationConfig{MinLength: 10, MaxLength: 5000, MaxSuggestions: evaluation.MaxSuggestions, ModelTimeout: 30 * time.Second}
	if cfg != nil {
		if cfg.MinLength > 0 {
			c.MinLength = cfg.MinLength
		}
		if cfg.MaxLength > 0 {
			c.MaxLength = cfg.MaxLength
		}
		if cfg.MaxSuggestions > 0 {
			c.MaxSuggestions = cfg.MaxSuggestions
		}
		if cfg.ModelTimeout > 0 {
			c.ModelTimeout = cfg.ModelTimeout
		}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &EvaluationService{
		limiter:    limiter,
		model:      model,
		normalizer: normalizer,
		audit:      auditSvc,
		metrics:    metrics,
		cfg:        c,
		logger:     logger,
	}
}

func (s *EvaluationService) Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Result, usage.Decision, error) {
	start := time.Now()
	clientKey := s.limiter.KeyFor(req.ClientID)
	fields := logrus.Fields{"client_key": clientKey, "model": s.model.Name(), "request_id": requestID(ctx)}

	text, err := evaluation.ValidateRequirement(req.RequirementText, s.cfg.MinLength, s.cfg.MaxLength)
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Warn("validation failed")
		s.finish(ctx, clientKey, evaluation.OutcomeValidationError, start, utf8.RuneCountInString(req.RequirementText))
		return nil, usage.Decision{}, err
	}
	length := utf8.RuneCountInString(text)

	decision := s.limiter.CheckAndRecord(ctx, req.ClientID)
	if !decision.Allowed {
		s.logger.WithFields(fields).Warn("rate limit exceeded")
		s.finish(ctx, clientKey, evaluation.OutcomeRateLimited, start, length)
		return nil, decision, evaluation.ErrRateLimited
	}

	raw, err := s.callModel(ctx, text)
	if err != nil {
		s.logger.WithFields(fields).WithField("duration_ms", time.Since(start).Milliseconds()).WithError(err).Error("model call failed")
		s.finish(ctx, clientKey, evaluation.OutcomeUpstreamError, start, length)
		return nil, decision, &evaluation.UpstreamError{Op: "model " + s.model.Name(), Err: err}
	}

	res, fallback := s.normalizer.Parse(raw)
	outcome := evaluation.OutcomeOK
	if fallback {
		outcome = evaluation.OutcomeDegraded
		s.metrics.ObserveFallback()
		s.logger.WithFields(fields).Warn("model output could not be parsed; returned fallback evaluation")
	}
	s.logger.WithFields(fields).WithField("duration_ms", time.Since(start).Milliseconds()).Info("evaluation completed")
	s.finish(ctx, clientKey, outcome, start, length)
	return res, decision, nil
}

func (s *EvaluationService) callModel(ctx context.Context, text string) (string, error) {
	mctx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
	defer cancel()

	begin := time.Now()
	raw, err := s.model.Complete(mctx, BuildPrompt(text, s.cfg.MaxSuggestions))
	if err == nil && mctx.Err() != nil {
		err = mctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.WithField("timeout", s.cfg.ModelTimeout.String()).Warn("model call timed out")
	}
	s.metrics.ObserveModelCall(s.model.Name(), time.Since(begin), err)
	return raw, err
}

func (s *EvaluationService) finish(ctx context.Context, clientKey string, outcome evaluation.Outcome, start time.Time, length int) {
	s.metrics.ObserveEvaluation(outcome)
	if s.audit == nil {
		return
	}
	// Audit failures never change the response; the service already logged them.
	_ = s.audit.Record(context.WithoutCancel(ctx), &audit.CreateEventRequest{
		ClientKey:         clientKey,
		Action:            audit.ActionEvaluate,
		Outcome:           string(outcome),
		Model:             s.model.Name(),
		Duration:          time.Since(start),
		RequirementLength: length,
		RequestID:         requestID(ctx),
	})
}
