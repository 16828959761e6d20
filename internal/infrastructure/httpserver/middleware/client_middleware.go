package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/httpserver/helpers"
)

type ClientMiddleware struct {
	trustProxy bool
	logger     *logrus.Logger
}

func NewClientMiddleware(trustProxy bool, logger *logrus.Logger) *ClientMiddleware {
	return &ClientMiddleware{trustProxy: trustProxy, logger: logger}
}

// ResolveClient stores the caller's rate limiting identity on the context.
func (m *ClientMiddleware) ResolveClient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := helpers.ResolveClientID(c.Request(), m.trustProxy)
			helpers.SetClientID(c, id)
			return next(c)
		}
	}
}
