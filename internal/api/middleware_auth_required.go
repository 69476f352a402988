package api

import (
	"github.com/gofiber/fiber/v2"
)

// Accounts carrying a temporary password may only reach these routes.
var passwordChangeAllowedPaths = map[string]struct{}{
	"/api/auth/me":              {},
	"/api/auth/logout":          {},
	"/api/auth/change-password": {},
}

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	user, err := handler.authenticateRequest(c)
	if err != nil {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	c.Locals(contextUserKey, user)
	if user.MustChangePassword {
		if _, ok := passwordChangeAllowedPaths[c.Path()]; !ok {
			return handler.apiError(c, fiber.StatusForbidden, "password_change_required")
		}
	}
	return c.Next()
}
