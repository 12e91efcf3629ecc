package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/poll"
	"github.com/campuswork/marketplace/internal/service"
)

// ChatHandler serves the chat threads and their live stream.
type ChatHandler struct {
	Chat         *service.Chat
	PollInterval time.Duration
	Log          *zap.Logger
}

func NewChatHandler(chat *service.Chat, pollInterval time.Duration, log *zap.Logger) *ChatHandler {
	return &ChatHandler{Chat: chat, PollInterval: pollInterval, Log: logger.OrNop(log)}
}

type openChatReq struct {
	UserID string `json:"userId"`
}
type sendReq struct {
	Text string `json:"text"`
}

// chatList is what the thread list and its stream return.
type chatList struct {
	Items  []model.ChatThread `json:"items"`
	Unread int                `json:"unread"`
}

func (h *ChatHandler) list(ctx context.Context, userID, q string) (chatList, error) {
	items, err := h.Chat.List(ctx, userID, q)
	if err != nil {
		return chatList{}, err
	}
	unread, err := h.Chat.UnreadCount(ctx, userID)
	if err != nil {
		return chatList{}, err
	}
	return chatList{Items: items, Unread: unread}, nil
}

// List returns the caller's threads, most recent first. ?q= filters by the
// other participant's name.
func (h *ChatHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.list(ctx, currentUser(c), c.QueryParam("q"))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Open finds or starts the thread with another user.
func (h *ChatHandler) Open(c echo.Context) error {
	var req openChatReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Chat.Open(ctx, currentUser(c), strings.TrimSpace(req.UserID))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *ChatHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Chat.Get(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *ChatHandler) Send(c echo.Context) error {
	var req sendReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Chat.Send(ctx, currentUser(c), c.Param("id"), req.Text)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Chat.MarkRead(ctx, currentUser(c), c.Param("id")); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stream pushes the thread list whenever it changes.
func (h *ChatHandler) Stream(c echo.Context) error {
	userID, q := currentUser(c), c.QueryParam("q")
	p := &poll.Poller[chatList]{
		Interval: pollInterval(h.PollInterval),
		Fetch: fetchWithTimeout(func(ctx context.Context) (chatList, error) {
			return h.list(ctx, userID, q)
		}),
	}
	return stream(c, h.Log, "chats", p)
}
