package handler // handler holds the echo handlers for the marketplace API

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/middleware"
)

// requestTimeout bounds the storage work behind one request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the JSON body into dst and writes a 400 when it cannot.
func bind(c echo.Context, dst interface{}) bool {
	if err := c.Bind(dst); err != nil {
		_ = writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid body")
		return false
	}
	return true
}

// currentUser returns the signed-in user's id. JWTAuth guarantees it is set
// on every protected route.
func currentUser(c echo.Context) string { return middleware.UserID(c) }
