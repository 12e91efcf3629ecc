package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/model"
)

// RequireRole lets a request through only when the signed-in user's stored
// role is one of roles. It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(KeyRole).(model.Role)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireSelectedRole refuses users who have not picked a role yet.
func RequireSelectedRole() echo.MiddlewareFunc {
	return RequireRole(model.RoleClient, model.RoleFreelancer, model.RoleBoth)
}
