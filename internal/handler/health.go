package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/repository"
	"github.com/campuswork/marketplace/internal/service"
)

// HealthHandler answers load balancer health checks. A check loads the state
// once so a dead storage backend shows up as 503.
type HealthHandler struct {
	State service.State
	Log   *zap.Logger
}

func NewHealthHandler(state service.State, log *zap.Logger) *HealthHandler {
	return &HealthHandler{State: state, Log: logger.OrNop(log)}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	err := h.State.View(ctx, func(*repository.Snapshot) error { return nil })
	if err != nil {
		h.Log.Warn("health check failed", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "storage unavailable")
	}
	return c.String(http.StatusOK, "ok")
}
