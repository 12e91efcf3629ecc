package middleware // middleware holds the echo middleware shared by the route groups

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/utils"
)

// SessionLoader finds the session a token points at.
type SessionLoader interface {
	Get(ctx context.Context, id string) (model.Session, error)
}

// JWTAuth validates the Bearer access token, loads the session named by
// its sid claim and stores the user id, stored role, active role and the
// session itself on the echo context. A signed-out or expired session is
// refused even when the token is still valid.
//
// Streaming endpoints cannot set headers from a browser EventSource, so
// the token is also accepted from the access_token query parameter.
func JWTAuth(secret string, sessions SessionLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			} else if q := c.QueryParam("access_token"); q != "" {
				raw = q
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthenticated"})
			}

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "unauthenticated"})
			}

			sess, err := sessions.Get(c.Request().Context(), claims.SessionID)
			if err != nil || sess.User.ID != claims.Subject {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired", "code": "unauthenticated"})
			}

			c.Set(KeyUserID, sess.User.ID)
			c.Set(KeyRole, sess.User.Role)
			c.Set(KeyActiveRole, sess.ActiveRole)
			c.Set(KeySession, sess)
			return next(c)
		}
	}
}
