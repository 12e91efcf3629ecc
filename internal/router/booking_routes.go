package router

import (
	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/handler"
	"github.com/campuswork/marketplace/internal/middleware"
)

// RegisterBookings registers the booking and wallet endpoints. They need a
// chosen role; which side of a booking the caller may act on is checked by
// the ledger.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, w *handler.WalletHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1", auth, middleware.RequireSelectedRole())

	// ---- Bookings ----
	g.GET("/bookings", b.List)
	g.POST("/bookings", b.Create)
	g.GET("/bookings/:id", b.Get)
	for _, action := range handler.BookingActions {
		g.POST("/bookings/:id/"+action, b.Transition(action))
	}
	g.POST("/bookings/:id/review", b.Review)

	// ---- Wallet ----
	g.POST("/wallet/withdraw", w.Withdraw)
	g.GET("/wallet/history", w.History)
}
