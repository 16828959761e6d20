package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/requirements-evaluator/internal/application/services"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/httpserver/helpers"
)

// Rate limit headers set on evaluate responses for tracked callers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// evaluate handles POST /api/v1/evaluate.
func (s *Server) evaluate(c echo.Context) error {
	var body map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "Request body is empty")
		}
		// BodyLimit reports oversized chunked bodies through the reader.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON in request body")
	}

	text, err := evaluation.RequirementFromBody(body)
	if err != nil {
		return mapEvaluationError(err)
	}

	ctx := services.WithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
	res, decision, err := s.evaluationSvc.Evaluate(ctx, evaluation.Request{
		ClientID:        helpers.GetClientIDFromContext(c),
		RequirementText: text,
	})
	setRateLimitHeaders(c, decision)
	if err != nil {
		return mapEvaluationError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func mapEvaluationError(err error) error {
	var verr *evaluation.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Reason)
	case errors.Is(err, evaluation.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, evaluation.RateLimitedMessage)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, internalErrorMessage).SetInternal(err)
	}
}

func setRateLimitHeaders(c echo.Context, d usage.Decision) {
	if !d.Tracked {
		return
	}
	h := c.Response().Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set(HeaderRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}
