// Package middleware provides shared request processing: bearer-token
// authentication and explicit permission checks.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-platform/internal/authz"
	"github.com/iliyamo/identity-platform/internal/token"
)

// identityKey is the echo context key the authenticated identity is
// stored under.
const identityKey = "identity"

// Authenticate returns a middleware that validates a Bearer access
// token and injects the resulting identity into the request context.
// Expired tokens get a distinct message so clients know to refresh
// rather than re-login.
func Authenticate(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := tokens.Verify(raw, token.Access)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(identityKey, authz.Identity{
				UserID:     claims.UserID,
				Email:      claims.Email,
				RoleIDs:    claims.RoleIDs,
				SuperAdmin: claims.SuperAdmin,
			})
			return next(c)
		}
	}
}

// IdentityFrom extracts the authenticated identity placed in the
// context by Authenticate. The boolean is false on unauthenticated
// routes.
func IdentityFrom(c echo.Context) (authz.Identity, bool) {
	identity, ok := c.Get(identityKey).(authz.Identity)
	return identity, ok
}
