package helpers

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
)

// HeaderForwardedFor is consulted only when the server sits behind a trusted proxy.
const HeaderForwardedFor = "X-Forwarded-For"

// ResolveClientID derives the rate limiting identifier for r. Behind a trusted proxy the
// left-most X-Forwarded-For entry wins; otherwise the socket peer address is used.
// An undeterminable identity yields usage.UnknownClient.
func ResolveClientID(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		return usage.UnknownClient
	}
	return host
}

// GetClientIDFromContext returns the identifier stored by the client middleware,
// falling back to usage.UnknownClient.
func GetClientIDFromContext(c echo.Context) string {
	id, ok := GetClientIDRaw(c)
	if !ok || id == "" {
		return usage.UnknownClient
	}
	return id
}
