// Package mocks holds hand-written function-field doubles for the core ports.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/audit"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
)

// UsageStoreMock is a lightweight mock for UsageStore
type UsageStoreMock struct {
	GetFn                  func(ctx context.Context, key string) (*usage.Record, error)
	ConditionalIncrementFn func(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error)
	ResetFn                func(ctx context.Context, key string, now time.Time, window time.Duration) error
}

func (m *UsageStoreMock) Get(ctx context.Context, key string) (*usage.Record, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	return nil, nil
}
func (m *UsageStoreMock) ConditionalIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	if m.ConditionalIncrementFn != nil {
		return m.ConditionalIncrementFn(ctx, key, now, window)
	}
	return true, nil
}
func (m *UsageStoreMock) Reset(ctx context.Context, key string, now time.Time, window time.Duration) error {
	if m.ResetFn != nil {
		return m.ResetFn(ctx, key, now, window)
	}
	return nil
}

// ModelClientMock is a lightweight mock for ModelClient
type ModelClientMock struct {
	NameValue  string
	CompleteFn func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *ModelClientMock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}
func (m *ModelClientMock) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, prompt)
	}
	return "", nil
}

// Calls reports how many prompts were sent.
func (m *ModelClientMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// RateLimiterServiceMock is a lightweight mock for RateLimiterService
type RateLimiterServiceMock struct {
	CheckFn          func(ctx context.Context, identifier string) usage.Decision
	RecordFn         func(ctx context.Context, identifier string)
	CheckAndRecordFn func(ctx context.Context, identifier string) usage.Decision
	UsageFn          func(ctx context.Context, identifier string) usage.Snapshot
	KeyForFn         func(identifier string) string
}

func (m *RateLimiterServiceMock) Check(ctx context.Context, identifier string) usage.Decision {
	if m.CheckFn != nil {
		return m.CheckFn(ctx, identifier)
	}
	return usage.Decision{Allowed: true}
}
func (m *RateLimiterServiceMock) Record(ctx context.Context, identifier string) {
	if m.RecordFn != nil {
		m.RecordFn(ctx, identifier)
	}
}
func (m *RateLimiterServiceMock) CheckAndRecord(ctx context.Context, identifier string) usage.Decision {
	if m.CheckAndRecordFn != nil {
		return m.CheckAndRecordFn(ctx, identifier)
	}
	return usage.Decision{Allowed: true}
}
func (m *RateLimiterServiceMock) Usage(ctx context.Context, identifier string) usage.Snapshot {
	if m.UsageFn != nil {
		return m.UsageFn(ctx, identifier)
	}
	return usage.Snapshot{}
}
func (m *RateLimiterServiceMock) KeyFor(identifier string) string {
	if m.KeyForFn != nil {
		return m.KeyForFn(identifier)
	}
	return identifier
}

// EvaluationServiceMock is a lightweight mock for EvaluationService
type EvaluationServiceMock struct {
	EvaluateFn func(ctx context.Context, req evaluation.Request) (*evaluation.Result, usage.Decision, error)
}

func (m *EvaluationServiceMock) Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Result, usage.Decision, error) {
	if m.EvaluateFn != nil {
		return m.EvaluateFn(ctx, req)
	}
	return evaluation.Fallback(), usage.Decision{Allowed: true}, nil
}

// AuditRepositoryMock is a lightweight mock for AuditRepository
type AuditRepositoryMock struct {
	CreateFn func(ctx context.Context, e *audit.Event) error
}

func (m *AuditRepositoryMock) Create(ctx context.Context, e *audit.Event) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, e)
	}
	return nil
}

// AuditServiceMock records every request it receives.
type AuditServiceMock struct {
	RecordFn func(ctx context.Context, req *audit.CreateEventRequest) error

	mu     sync.Mutex
	Events []*audit.CreateEventRequest
}

func (m *AuditServiceMock) Record(ctx context.Context, req *audit.CreateEventRequest) error {
	m.mu.Lock()
	m.Events = append(m.Events, req)
	m.mu.Unlock()
	if m.RecordFn != nil {
		return m.RecordFn(ctx, req)
	}
	return nil
}

// MetricsMock counts observations per kind.
type MetricsMock struct {
	mu          sync.Mutex
	Outcomes    []evaluation.Outcome
	RateAllowed []bool
	ModelCalls  int
	ModelErrors int
	Fallbacks   int
}

func (m *MetricsMock) ObserveEvaluation(outcome evaluation.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
}
func (m *MetricsMock) ObserveRateLimit(allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateAllowed = append(m.RateAllowed, allowed)
}
func (m *MetricsMock) ObserveModelCall(_ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModelCalls++
	if err != nil {
		m.ModelErrors++
	}
}
func (m *MetricsMock) ObserveFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fallbacks++
}
