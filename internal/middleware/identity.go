package middleware

// identity.go holds the context keys JWTAuth fills and the helpers handlers
// and other middleware use to read them back.

import (
	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/model"
)

// Context keys set by JWTAuth.
const (
	KeyUserID     = "user_id"
	KeyRole       = "role"
	KeyActiveRole = "active_role"
	KeySession    = "session"
)

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if v, ok := c.Get(KeyUserID).(string); ok {
		return v
	}
	return ""
}

// Session returns the session JWTAuth loaded for this request.
func Session(c echo.Context) (model.Session, bool) {
	s, ok := c.Get(KeySession).(model.Session)
	return s, ok
}

// ActiveRole returns the role lens of the current session.
func ActiveRole(c echo.Context) model.Role {
	if v, ok := c.Get(KeyActiveRole).(model.Role); ok {
		return v
	}
	return model.RoleNone
}

// rateSubject identifies the caller for rate limiting: the user id when
// signed in, "anon" otherwise.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
