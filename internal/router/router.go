// Package router defines how HTTP routes are registered for the API.
// Every protected route declares its required permission explicitly at
// registration time and passes it to the authorization engine through
// the permission middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-platform/internal/authz"
	"github.com/iliyamo/identity-platform/internal/handler"
	"github.com/iliyamo/identity-platform/internal/middleware"
	"github.com/iliyamo/identity-platform/internal/token"
)

// RegisterRoutes registers the unauthenticated service routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the credential and session endpoints.
// Register, login, refresh and the password-reset pair are public;
// logout and me require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens *token.Service) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)

	auth := e.Group("/v1")
	auth.Use(middleware.Authenticate(tokens))
	auth.POST("/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterRoles registers the role-administration endpoints. Each one
// names the permission it requires as a plain value.
func RegisterRoles(e *echo.Echo, r *handler.RoleHandler, tokens *token.Service, engine *authz.Engine) {
	g := e.Group("/v1/roles")
	g.Use(middleware.Authenticate(tokens))

	g.GET("", r.List, middleware.RequirePermission(engine, "read_role"))
	g.POST("", r.Create, middleware.RequirePermission(engine, "create_role"))
	g.PATCH("/:id", r.Update, middleware.RequirePermission(engine, "update_role"))
	g.DELETE("/:id", r.Delete, middleware.RequirePermission(engine, "delete_role"))
	g.POST("/:id/assign", r.Assign, middleware.RequirePermission(engine, "update_role"))
	g.POST("/:id/unassign", r.Unassign, middleware.RequirePermission(engine, "update_role"))

	p := e.Group("/v1/permissions")
	p.Use(middleware.Authenticate(tokens))
	p.GET("", r.Permissions, middleware.RequirePermission(engine, "read_role"))
}
