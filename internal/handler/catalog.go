package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/service"
)

// CatalogHandler serves the service catalog.
type CatalogHandler struct {
	Catalog *service.Catalog
	Log     *zap.Logger
}

func NewCatalogHandler(cat *service.Catalog, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Catalog: cat, Log: logger.OrNop(log)}
}

// emptyState is the body of a 404 for a service page, so clients can show
// a "service not found" screen with a way back to browsing.
type emptyState struct {
	errorResponse
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// List browses the catalog. ?q= matches title and description, ?category=
// narrows to one category.
func (h *CatalogHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Catalog.List(ctx, c.QueryParam("q"), c.QueryParam("category"))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "categories": model.Categories})
}

// Get returns one service or the empty state.
func (h *CatalogHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	svc, err := h.Catalog.Get(ctx, c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, emptyState{
			errorResponse: errorResponse{Error: "service not found", Code: codeEmptyState},
			Title:         "Service not found",
			Message:       "This service may have been removed or the link is wrong.",
			Action:        "/v1/services",
		})
	}
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, svc)
}

// Mine lists the caller's own services for the freelancer dashboard.
func (h *CatalogHandler) Mine(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Catalog.ListByFreelancer(ctx, currentUser(c))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CatalogHandler) Create(c echo.Context) error {
	var req service.ServiceInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	svc, err := h.Catalog.Create(ctx, currentUser(c), req)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, svc)
}

func (h *CatalogHandler) Update(c echo.Context) error {
	var req service.ServiceInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	svc, err := h.Catalog.Update(ctx, currentUser(c), c.Param("id"), req)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *CatalogHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Catalog.Delete(ctx, currentUser(c), c.Param("id")); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
