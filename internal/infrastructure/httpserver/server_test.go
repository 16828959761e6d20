package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/httpserver"
	"github.com/avatarctic/requirements-evaluator/internal/mocks"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(context.Context) error { return s.err }

func newTestServer(t *testing.T, cfg *httpserver.ServerConfig, deps httpserver.ServerDeps) *httpserver.Server {
	t.Helper()
	if cfg == nil {
		cfg = &httpserver.ServerConfig{}
	}
	if deps.EvaluationService == nil {
		deps.EvaluationService = &mocks.EvaluationServiceMock{}
	}
	if deps.RateLimiterService == nil {
		deps.RateLimiterService = &mocks.RateLimiterServiceMock{}
	}
	logger, _ := test.NewNullLogger()
	return httpserver.NewServer(cfg, logger, deps)
}

func do(s *httpserver.Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpserver.ErrorResponse {
	t.Helper()
	var body httpserver.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestEvaluate_Success(t *testing.T) {
	var got evaluation.Request
	reset := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := &mocks.EvaluationServiceMock{EvaluateFn: func(ctx context.Context, req evaluation.Request) (*evaluation.Result, usage.Decision, error) {
		got = req
		return &evaluation.Result{
			Ambiguity:    evaluation.CategoryScore{Score: 8, Feedback: "Clear"},
			Testability:  evaluation.CategoryScore{Score: 9, Feedback: "Measurable"},
			Completeness: evaluation.CategoryScore{Score: 6, Feedback: "Missing error cases"},
			Suggestions:  []string{"Add error handling"},
		}, usage.Decision{Allowed: true, Tracked: true, Limit: 50, Remaining: 41, ResetAt: reset}, nil
	}}
	s := newTestServer(t, nil, httpserver.ServerDeps{EvaluationService: svc})

	rec := do(s, http.MethodPost, "/api/v1/evaluate", `{"requirementText":"The system shall log in users in under 3 seconds."}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "The system shall log in users in under 3 seconds.", got.RequirementText)
	require.Equal(t, "192.0.2.1", got.ClientID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]any{"score": float64(8), "feedback": "Clear"}, body["ambiguity"])
	require.Equal(t, []any{"Add error handling"}, body["suggestions"])

	require.Equal(t, "50", rec.Header().Get(httpserver.HeaderRateLimitLimit))
	require.Equal(t, "41", rec.Header().Get(httpserver.HeaderRateLimitRemaining))
	require.Equal(t, "1740873600", rec.Header().Get(httpserver.HeaderRateLimitReset))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestEvaluate_UnversionedAlias(t *testing.T) {
	s := newTestServer(t, nil, httpserver.ServerDeps{})

	rec := do(s, http.MethodPost, "/evaluate", `{"requirementText":"The system shall export reports."}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// Untracked callers get no rate limit headers.
	require.Empty(t, rec.Header().Get(httpserver.HeaderRateLimitLimit))
}

func TestEvaluate_BodyErrors(t *testing.T) {
	called := false
	svc := &mocks.EvaluationServiceMock{EvaluateFn: func(context.Context, evaluation.Request) (*evaluation.Result, usage.Decision, error) {
		called = true
		return nil, usage.Decision{}, nil
	}}
	s := newTestServer(t, nil, httpserver.ServerDeps{EvaluationService: svc})

	tests := []struct {
		body string
		msg  string
	}{
		{body: "", msg: "Request body is empty"},
		{body: "{}", msg: "Request body is empty"},
		{body: "null", msg: "Request body is empty"},
		{body: "{not json", msg: "Invalid JSON in request body"},
		{body: `["a"]`, msg: "Invalid JSON in request body"},
		{body: `{"text":"hello world"}`, msg: "Missing required field: requirementText"},
		{body: `{"requirementText":12}`, msg: "requirementText must be a string"},
	}
	for _, tt := range tests {
		rec := do(s, http.MethodPost, "/api/v1/evaluate", tt.body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		require.Equal(t, httpserver.ErrorResponse{Error: tt.msg, Kind: httpserver.KindValidation}, decodeError(t, rec), tt.body)
	}
	require.False(t, called, "service must not run for malformed bodies")
}

func TestEvaluate_ServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want httpserver.ErrorResponse
	}{
		{
			name: "validation",
			err:  &evaluation.ValidationError{Reason: "requirementText must be at least 10 characters"},
			code: http.StatusBadRequest,
			want: httpserver.ErrorResponse{Error: "requirementText must be at least 10 characters", Kind: httpserver.KindValidation},
		},
		{
			name: "rate limited",
			err:  evaluation.ErrRateLimited,
			code: http.StatusTooManyRequests,
			want: httpserver.ErrorResponse{Error: "Rate limit exceeded. Please try again later.", Kind: httpserver.KindRateLimited},
		},
		{
			name: "upstream",
			err:  &evaluation.UpstreamError{Op: "model bedrock:x", Err: errors.New("AccessDeniedException: secret arn")},
			code: http.StatusInternalServerError,
			want: httpserver.ErrorResponse{Error: "internal server error", Kind: httpserver.KindUpstream},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.EvaluationServiceMock{EvaluateFn: func(context.Context, evaluation.Request) (*evaluation.Result, usage.Decision, error) {
				return nil, usage.Decision{}, tt.err
			}}
			s := newTestServer(t, nil, httpserver.ServerDeps{EvaluationService: svc})

			rec := do(s, http.MethodPost, "/api/v1/evaluate", `{"requirementText":"The system shall do things."}`, nil)
			require.Equal(t, tt.code, rec.Code)
			require.Equal(t, tt.want, decodeError(t, rec))
			require.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestEvaluate_RateLimitedResponseCarriesHeaders(t *testing.T) {
	svc := &mocks.EvaluationServiceMock{EvaluateFn: func(context.Context, evaluation.Request) (*evaluation.Result, usage.Decision, error) {
		return nil, usage.Decision{Tracked: true, Limit: 50, Remaining: 0}, evaluation.ErrRateLimited
	}}
	s := newTestServer(t, nil, httpserver.ServerDeps{EvaluationService: svc})

	rec := do(s, http.MethodPost, "/api/v1/evaluate", `{"requirementText":"The system shall do things."}`, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get(httpserver.HeaderRateLimitRemaining))
}

func TestRouting_MethodNotAllowedAndNotFound(t *testing.T) {
	s := newTestServer(t, nil, httpserver.ServerDeps{})

	rec := do(s, http.MethodGet, "/api/v1/evaluate", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, httpserver.KindMethodNotAllowed, decodeError(t, rec).Kind)

	rec = do(s, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, httpserver.KindNotFound, decodeError(t, rec).Kind)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, &httpserver.ServerConfig{BodyLimit: "1K"}, httpserver.ServerDeps{})

	rec := do(s, http.MethodPost, "/api/v1/evaluate", `{"requirementText":"`+strings.Repeat("a", 2048)+`"}`, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, httpserver.KindTooLarge, decodeError(t, rec).Kind)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, httpserver.ServerDeps{})

	rec := do(s, http.MethodOptions, "/api/v1/evaluate", "", map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestClientIdentity_TrustProxy(t *testing.T) {
	var ids []string
	svc := &mocks.EvaluationServiceMock{EvaluateFn: func(_ context.Context, req evaluation.Request) (*evaluation.Result, usage.Decision, error) {
		ids = append(ids, req.ClientID)
		return evaluation.Fallback(), usage.Decision{Allowed: true}, nil
	}}
	xff := map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}
	body := `{"requirementText":"The system shall do things."}`

	direct := newTestServer(t, nil, httpserver.ServerDeps{EvaluationService: svc})
	do(direct, http.MethodPost, "/api/v1/evaluate", body, xff)

	proxied := newTestServer(t, &httpserver.ServerConfig{TrustProxy: true}, httpserver.ServerDeps{EvaluationService: svc})
	do(proxied, http.MethodPost, "/api/v1/evaluate", body, xff)

	require.Equal(t, []string{"192.0.2.1", "203.0.113.9"}, ids)
}

func TestUsageEndpoint(t *testing.T) {
	limiter := &mocks.RateLimiterServiceMock{UsageFn: func(_ context.Context, id string) usage.Snapshot {
		require.Equal(t, "192.0.2.1", id)
		return usage.Snapshot{Used: 3, Remaining: 47, Limit: 50, Window: "24h0m0s", Tracked: true}
	}}
	s := newTestServer(t, nil, httpserver.ServerDeps{RateLimiterService: limiter})

	rec := do(s, http.MethodGet, "/api/v1/usage", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap usage.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, 3, snap.Used)
	require.Equal(t, 47, snap.Remaining)
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, &httpserver.ServerConfig{Version: "1.2.3"}, httpserver.ServerDeps{
		HealthCheckers: []ports.HealthChecker{stubChecker{name: "redis"}},
	})
	rec := do(healthy, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "requirements-evaluator", body["service"])
	require.Equal(t, "1.2.3", body["version"])

	degraded := newTestServer(t, nil, httpserver.ServerDeps{
		HealthCheckers: []ports.HealthChecker{stubChecker{name: "redis", err: errors.New("dial tcp: refused")}},
	})
	rec = do(degraded, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "degraded", body["status"])
	require.Equal(t, map[string]any{"redis": "unhealthy"}, body["dependencies"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, httpserver.ServerDeps{})
	do(s, http.MethodPost, "/api/v1/evaluate", `{"requirementText":"The system shall do things."}`, nil)

	rec := do(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}
