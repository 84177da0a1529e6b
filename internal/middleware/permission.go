package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-platform/internal/authz"
)

// RequirePermission returns a middleware that asks the authorization
// engine whether the authenticated identity holds the given
// permission code. The required permission is a plain value declared
// at route registration; there is no metadata or reflection
// involved. It assumes Authenticate ran earlier in the chain.
func RequirePermission(engine *authz.Engine, required string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}
			if !engine.Authorize(c.Request().Context(), identity, required) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "permission denied"})
			}
			return next(c)
		}
	}
}
