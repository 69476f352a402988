package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
)

// apiError answers {"error": code, "message": localized}. Codes are the
// suffixes of the error.* locale keys.
func (handler *Handler) apiError(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": handler.i18n.ErrorMessage(handler.language(c), code),
	})
}

// reasonResponse answers an expected business rejection.
func (handler *Handler) reasonResponse(c *fiber.Ctx, reason services.Reason, payload fiber.Map) error {
	body := fiber.Map{
		"success": false,
		"reason":  reason,
		"message": handler.i18n.ReasonMessage(handler.language(c), reason.String()),
	}
	for key, value := range payload {
		body[key] = value
	}
	return c.Status(reasonStatus(reason)).JSON(body)
}

func reasonStatus(reason services.Reason) int {
	switch reason {
	case services.ReasonRateLimited:
		return fiber.StatusTooManyRequests
	case services.ReasonTokenExpired, services.ReasonTokenTampered, services.ReasonTokenMalformed:
		return fiber.StatusBadRequest
	case services.ReasonUserNotFound:
		return fiber.StatusNotFound
	case services.ReasonUserInactive, services.ReasonUserNotApproved, services.ReasonDeviceMismatch:
		return fiber.StatusForbidden
	case services.ReasonOutsideMealWindow:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusConflict
	}
}

func (handler *Handler) language(c *fiber.Ctx) string {
	if language := currentLanguage(c); language != "" {
		return language
	}
	return handler.i18n.DetectFromAcceptLanguage(c.Get("Accept-Language"))
}

type serviceErrorMapping struct {
	target error
	status int
	code   string
}

var serviceErrorMappings = []serviceErrorMapping{
	{services.ErrAuthCredentialsInvalid, fiber.StatusBadRequest, "invalid_input"},
	{services.ErrAuthNameRequired, fiber.StatusBadRequest, "name_required"},
	{services.ErrWeakPassword, fiber.StatusBadRequest, "weak_password"},
	{services.ErrEmailTaken, fiber.StatusConflict, "email_taken"},
	{services.ErrUserNotFound, fiber.StatusNotFound, "user_not_found"},
	{services.ErrAccountInactive, fiber.StatusForbidden, "account_inactive"},
	{services.ErrCurrentPasswordInvalid, fiber.StatusBadRequest, "current_password_invalid"},
	{services.ErrPasswordUnchanged, fiber.StatusBadRequest, "password_unchanged"},
	{services.ErrInvalidRole, fiber.StatusBadRequest, "invalid_role"},
	{services.ErrAdminAlwaysApproved, fiber.StatusBadRequest, "admin_always_approved"},
	{services.ErrCannotDeactivateSelf, fiber.StatusBadRequest, "cannot_deactivate_self"},
	{services.ErrNoUserChanges, fiber.StatusBadRequest, "no_changes"},
	{services.ErrDeviceInfoMissing, fiber.StatusBadRequest, "device_info_missing"},
	{services.ErrDeviceRegisteredToAnotherUser, fiber.StatusConflict, "device_taken"},
	{services.ErrDeviceNotRegistered, fiber.StatusNotFound, "device_not_registered"},
	{services.ErrInvalidMonth, fiber.StatusBadRequest, "invalid_month"},
	{services.ErrRefreshPastMonth, fiber.StatusBadRequest, "refresh_past_month"},
	{services.ErrScheduleNoWorkDays, fiber.StatusBadRequest, "invalid_schedule"},
	{services.ErrScheduleInvalidWeekday, fiber.StatusBadRequest, "invalid_schedule"},
	{services.ErrScheduleInvalidClock, fiber.StatusBadRequest, "invalid_schedule"},
	{services.ErrScheduleInvalidWindow, fiber.StatusBadRequest, "invalid_schedule"},
	{services.ErrScheduleInvalidLimit, fiber.StatusBadRequest, "invalid_schedule"},
	{services.ErrReportGenerate, fiber.StatusInternalServerError, "report_failed"},
}

// serviceError maps a service sentinel onto an API error. Anything unknown
// is logged and reported as internal.
func (handler *Handler) serviceError(c *fiber.Ctx, err error) error {
	for _, mapping := range serviceErrorMappings {
		if errors.Is(err, mapping.target) {
			return handler.apiError(c, mapping.status, mapping.code)
		}
	}
	handler.logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return handler.apiError(c, fiber.StatusInternalServerError, "internal")
}

func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

// parseYearMonth reads ?year=&month= or ?month=YYYY-MM, defaulting to the
// month of now.
func parseYearMonth(c *fiber.Ctx, now time.Time) (int, time.Month, bool) {
	rawMonth := strings.TrimSpace(c.Query("month"))
	if parsed, err := time.Parse("2006-01", rawMonth); err == nil {
		return parsed.Year(), parsed.Month(), true
	}

	year, month := now.Year(), now.Month()
	if rawYear := strings.TrimSpace(c.Query("year")); rawYear != "" {
		value, err := strconv.Atoi(rawYear)
		if err != nil || value < 2000 || value > 9999 {
			return 0, 0, false
		}
		year = value
	}
	if rawMonth != "" {
		value, err := strconv.Atoi(rawMonth)
		if err != nil || value < 1 || value > 12 {
			return 0, 0, false
		}
		month = time.Month(value)
	}
	return year, month, true
}

func parseMealTypeInput(raw string) (models.MealType, bool) {
	if strings.TrimSpace(raw) == "" {
		return models.MealNone, true
	}
	return models.ParseMealType(raw)
}
