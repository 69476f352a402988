package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) AdminOnly(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !user.IsAdmin() {
		return handler.apiError(c, fiber.StatusForbidden, "forbidden")
	}
	return c.Next()
}
