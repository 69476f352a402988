package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
)

const (
	defaultHistoryLimit = 31
	maxHistoryLimit     = 100
)

func (handler *Handler) CurrentMeal(c *fiber.Ctx) error {
	mealType, err := handler.mealService.CurrentMeal()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"meal_type": mealType,
		"label":     handler.i18n.MealLabel(handler.language(c), mealType.String()),
		"now":       handler.clock(),
	})
}

// MonthlyCredits returns the caller's allotment. Admins may inspect another
// user through ?user_id=.
func (handler *Handler) MonthlyCredits(c *fiber.Ctx) error {
	userID, ok := handler.targetUserID(c)
	if !ok {
		return handler.apiError(c, fiber.StatusForbidden, "forbidden")
	}
	year, month, ok := parseYearMonth(c, handler.clock())
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_month")
	}

	credits, err := handler.creditService.Get(userID, year, month)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(credits)
}

func (handler *Handler) MealCounts(c *fiber.Ctx) error {
	userID, ok := handler.targetUserID(c)
	if !ok {
		return handler.apiError(c, fiber.StatusForbidden, "forbidden")
	}
	year, month, ok := parseYearMonth(c, handler.clock())
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_month")
	}

	counts, err := handler.creditService.MealCounts(userID, year, month)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(counts)
}

func (handler *Handler) MealHistory(c *fiber.Ctx) error {
	userID, ok := handler.targetUserID(c)
	if !ok {
		return handler.apiError(c, fiber.StatusForbidden, "forbidden")
	}
	year, month, ok := parseYearMonth(c, handler.clock())
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_month")
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
		}
		limit = min(value, maxHistoryLimit)
	}

	records, err := handler.statsService.History(userID, year, month, limit)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"records": records})
}

func (handler *Handler) Eligibility(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	mealType, ok := parseMealTypeInput(c.Query("meal_type"))
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_meal_type")
	}

	if mealType == models.MealNone {
		decision, err := handler.mealService.Evaluate(user.ID)
		if err != nil {
			return handler.serviceError(c, err)
		}
		return handler.decisionResponse(c, decision)
	}

	allowed, err := handler.mealService.CanConsume(user.ID, mealType)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"allowed": allowed, "meal_type": mealType})
}

func (handler *Handler) decisionResponse(c *fiber.Ctx, decision services.Decision) error {
	body := fiber.Map{
		"allowed":   decision.Allowed,
		"meal_type": decision.MealType,
		"remaining": decision.Remaining,
	}
	if decision.Reason != services.ReasonNone {
		body["reason"] = decision.Reason
		body["message"] = handler.i18n.ReasonMessage(handler.language(c), decision.Reason.String())
	}
	return c.JSON(body)
}

// TakeMeal records the current meal for the signed-in user on their
// registered device.
func (handler *Handler) TakeMeal(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	input := takeMealInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
		}
	}

	mealType, ok := parseMealTypeInput(input.MealType)
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_meal_type")
	}
	if mealType == models.MealNone {
		current, err := handler.mealService.CurrentMeal()
		if err != nil {
			return handler.serviceError(c, err)
		}
		mealType = current
	}

	fingerprint, err := services.Fingerprint(requestDeviceInfo(c, input.Device))
	if err != nil {
		return handler.serviceError(c, err)
	}

	result, err := handler.scanService.TakeMealWithDevice(c.UserContext(), user.ID, mealType, fingerprint, c.IP())
	if err != nil {
		return handler.serviceError(c, err)
	}
	return handler.scanResultResponse(c, result)
}

// targetUserID is the caller, or ?user_id= when the caller is an admin.
func (handler *Handler) targetUserID(c *fiber.Ctx) (uint, bool) {
	user, ok := currentUser(c)
	if !ok {
		return 0, false
	}
	raw := strings.TrimSpace(c.Query("user_id"))
	if raw == "" {
		return user.ID, true
	}
	if !user.IsAdmin() {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

// requestDeviceInfo falls back to the User-Agent header when the client did
// not report one.
func requestDeviceInfo(c *fiber.Ctx, info models.DeviceInfo) models.DeviceInfo {
	if strings.TrimSpace(info.UserAgent) == "" {
		info.UserAgent = c.Get(fiber.HeaderUserAgent)
	}
	return info
}
