package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
)

// RegisterDevice binds the client environment to the signed-in user and
// retires their previous device.
func (handler *Handler) RegisterDevice(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	info := models.DeviceInfo{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&info); err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
		}
	}

	device, err := handler.deviceService.Register(user.ID, requestDeviceInfo(c, info))
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "device": device})
}

// CheckDevice reports whether the environment in the query string belongs
// to an active user.
func (handler *Handler) CheckDevice(c *fiber.Ctx) error {
	info := models.DeviceInfo{
		UserAgent:        c.Query("user_agent"),
		Language:         c.Query("language"),
		Platform:         c.Query("platform"),
		ScreenResolution: c.Query("screen_resolution"),
		Timezone:         c.Query("timezone"),
	}

	check, err := handler.deviceService.Check(requestDeviceInfo(c, info))
	if err != nil {
		return handler.serviceError(c, err)
	}
	body := fiber.Map{"registered": check.Registered}
	if check.User != nil {
		body["user_id"] = check.User.ID
		body["name"] = check.User.Name
	}
	return c.JSON(body)
}
