package router

import (
	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/handler"
)

// RegisterAccount registers the inbox and chat endpoints. Any signed-in
// user may use them, including one who has not picked a role yet.
func RegisterAccount(e *echo.Echo, n *handler.NotificationHandler, ch *handler.ChatHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1", auth)

	// ---- Notifications ----
	g.GET("/notifications", n.List)
	g.GET("/notifications/stream", n.Stream)
	g.POST("/notifications/read-all", n.MarkAllRead)
	g.POST("/notifications/:id/read", n.MarkRead)

	// ---- Chats ----
	g.GET("/chats", ch.List)
	g.POST("/chats", ch.Open)
	g.GET("/chats/stream", ch.Stream)
	g.GET("/chats/:id", ch.Get)
	g.POST("/chats/:id/messages", ch.Send)
	g.POST("/chats/:id/read", ch.MarkRead)
}
