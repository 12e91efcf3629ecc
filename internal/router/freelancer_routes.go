package router

import (
	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/handler"
	"github.com/campuswork/marketplace/internal/middleware"
	"github.com/campuswork/marketplace/internal/model"
)

// RegisterFreelancer registers the catalog management endpoints. All routes
// require FREELANCER or BOTH; ownership of a service is checked by the
// catalog.
func RegisterFreelancer(e *echo.Echo, cat *handler.CatalogHandler, auth echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		auth,
		middleware.RequireRole(model.RoleFreelancer, model.RoleBoth),
	)
	g.GET("/me/services", cat.Mine)
	g.POST("/services", cat.Create)
	g.PUT("/services/:id", cat.Update)
	g.PATCH("/services/:id", cat.Update)
	g.DELETE("/services/:id", cat.Delete)
}
