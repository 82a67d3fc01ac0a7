package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireOrigin rejects state-changing requests whose Origin header is not in
// allowed.  Safe methods and requests without an Origin header (server to
// server callers) pass through.  An empty allow list disables the check.
func RequireOrigin(allowed []string) echo.MiddlewareFunc {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			set[strings.ToLower(o)] = true
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(set) == 0 {
			return next
		}
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" || set[strings.ToLower(strings.TrimRight(origin, "/"))] {
				return next(c)
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
		}
	}
}
