package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/httpserver/helpers"
)

// getUsage reports the caller's consumption of the current window without recording a request.
func (s *Server) getUsage(c echo.Context) error {
	snap := s.rateLimiter.Usage(c.Request().Context(), helpers.GetClientIDFromContext(c))
	return c.JSON(http.StatusOK, snap)
}
