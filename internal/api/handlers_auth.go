package api

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
)

// Register creates a staff account that waits for admin approval. No
// session is issued until then.
func (handler *Handler) Register(c *fiber.Ctx) error {
	input := registerInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}
	if input.ConfirmPassword != "" && input.ConfirmPassword != input.Password {
		return handler.apiError(c, fiber.StatusBadRequest, "password_mismatch")
	}

	user, err := handler.authService.Register(services.RegistrationInput{
		Name:       input.Name,
		Department: input.Department,
		Email:      input.Email,
		Password:   input.Password,
	})
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "user": user})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	limiterKey := loginLimiterKey(c)
	now := time.Now()
	if handler.loginLimiter.tooManyRecent(limiterKey, now, loginAttemptLimit, loginAttemptWindow) {
		wait := handler.loginLimiter.retryAfter(limiterKey, now, loginAttemptWindow)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return handler.apiError(c, fiber.StatusTooManyRequests, "too_many_login_attempts")
	}

	credentials := credentialsInput{}
	if err := c.BodyParser(&credentials); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	user, err := handler.authService.Authenticate(credentials.Email, credentials.Password)
	if err != nil {
		if errors.Is(err, services.ErrAccountInactive) {
			return handler.apiError(c, fiber.StatusForbidden, "account_inactive")
		}
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginLimiter.addFailure(limiterKey, now, loginAttemptWindow)
			return handler.apiError(c, fiber.StatusUnauthorized, "invalid_credentials")
		}
		return handler.serviceError(c, err)
	}

	handler.loginLimiter.reset(limiterKey)
	if err := handler.setAuthCookie(c, &user, credentials.RememberMe); err != nil {
		return handler.serviceError(c, err)
	}
	handler.logger.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return c.JSON(fiber.Map{"ok": true, "user": user})
}

// DeviceLogin opens a session for the active owner of a registered device.
func (handler *Handler) DeviceLogin(c *fiber.Ctx) error {
	info := models.DeviceInfo{}
	if err := c.BodyParser(&info); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	check, err := handler.deviceService.Check(info)
	if err != nil {
		return handler.serviceError(c, err)
	}
	if !check.Registered || check.User == nil {
		return handler.apiError(c, fiber.StatusUnauthorized, "device_not_registered")
	}
	if err := handler.setAuthCookie(c, check.User, true); err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": check.User})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(fiber.Map{"user": user})
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	input := changePasswordInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}
	if input.ConfirmPassword != "" && input.ConfirmPassword != input.NewPassword {
		return handler.apiError(c, fiber.StatusBadRequest, "password_mismatch")
	}

	if err := handler.authService.ChangePassword(*user, input.CurrentPassword, input.NewPassword); err != nil {
		return handler.serviceError(c, err)
	}

	user.MustChangePassword = false
	if err := handler.setAuthCookie(c, user, false); err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
