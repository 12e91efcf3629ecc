package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/poll"
	"github.com/campuswork/marketplace/internal/service"
)

// NotificationHandler serves the inbox.
type NotificationHandler struct {
	Inbox        *service.Inbox
	PollInterval time.Duration
	Log          *zap.Logger
}

func NewNotificationHandler(inbox *service.Inbox, pollInterval time.Duration, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Inbox: inbox, PollInterval: pollInterval, Log: logger.OrNop(log)}
}

type unreadResp struct {
	Unread int `json:"unread"`
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Inbox.List(ctx, currentUser(c))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	unread := 0
	for _, n := range items {
		if !n.IsRead {
			unread++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "unread": unread})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Inbox.MarkRead(ctx, currentUser(c), c.Param("id")); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Inbox.MarkAllRead(ctx, currentUser(c)); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stream pushes the unread badge count whenever it changes.
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID := currentUser(c)
	p := &poll.Poller[unreadResp]{
		Interval: pollInterval(h.PollInterval),
		Fetch: fetchWithTimeout(func(ctx context.Context) (unreadResp, error) {
			n, err := h.Inbox.UnreadCount(ctx, userID)
			return unreadResp{Unread: n}, err
		}),
	}
	return stream(c, h.Log, "unread", p)
}
