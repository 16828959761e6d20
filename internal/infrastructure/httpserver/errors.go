package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error kinds reported in the "kind" field of error responses.
const (
	KindValidation       = "validation_error"
	KindRateLimited      = "rate_limited"
	KindUpstream         = "upstream_error"
	KindMethodNotAllowed = "method_not_allowed"
	KindNotFound         = "not_found"
	KindTooLarge         = "payload_too_large"
)

const internalErrorMessage = "internal server error"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func kindFor(code int) string {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusRequestEntityTooLarge:
		return KindTooLarge
	}
	return KindUpstream
}

// httpErrorHandler renders errors as ErrorResponse. Messages of 5xx errors are never
// exposed; the cause goes to the log instead.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := internalErrorMessage
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
	}

	if code >= http.StatusInternalServerError && s.logger != nil {
		cause := err
		if he != nil && he.Internal != nil {
			cause = he.Internal
		}
		s.logger.WithFields(map[string]interface{}{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"status": code,
		}).WithError(cause).Error("request failed")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, ErrorResponse{Error: msg, Kind: kindFor(code)})
	}
	if werr != nil && s.logger != nil {
		s.logger.WithError(werr).Warn("failed to write error response")
	}
}
