package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/handler"
)

// RegisterRoutes registers the routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the sign-up and sign-in endpoints under /v1/auth
// and the account endpoints under /v1. limiter guards login and
// registration, perAccount additionally guards login by email; auth is the
// JWT + session middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth, limiter, perAccount echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter, perAccount)
	g.POST("/logout", a.Logout, auth)

	me := e.Group("/v1/me", auth)
	me.GET("", a.Me)
	me.PATCH("", a.UpdateProfile)
	me.PUT("/role", a.SelectRole)
	me.POST("/switch-role", a.SwitchRole)
}

// RegisterPublic registers the guest browse endpoints of the catalog.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler) {
	e.GET("/v1/services", cat.List)
	e.GET("/v1/services/:id", cat.Get)
}
