package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ForceMeal records a meal outside the normal window. The quota and the
// one-per-day rule still hold.
func (handler *Handler) ForceMeal(c *fiber.Ctx) error {
	admin, _ := currentUser(c)
	input := forceMealInput{}
	if err := c.BodyParser(&input); err != nil || input.UserID == 0 {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}
	mealType, ok := models.ParseMealType(input.MealType)
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_meal_type")
	}

	result, err := handler.mealService.EvaluateAndTakeMeal(input.UserID, mealType, services.TakeMealOptions{Force: true})
	if err != nil {
		return handler.serviceError(c, err)
	}
	if !result.Success {
		return handler.reasonResponse(c, result.Reason, fiber.Map{"meal_type": mealType, "remaining": result.Remaining})
	}

	handler.logger.Info("meal forced",
		zap.Uint("admin_id", admin.ID),
		zap.Uint("user_id", input.UserID),
		zap.String("meal_type", mealType.String()),
	)
	return c.JSON(fiber.Map{"success": true, "record": result.Record, "remaining": result.Remaining})
}

func (handler *Handler) RefreshCredits(c *fiber.Ctx) error {
	input := refreshCreditsInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
		}
	}

	now := handler.clock()
	year, month := now.Year(), now.Month()
	if input.Year != 0 {
		year = input.Year
	}
	if input.Month != 0 {
		month = time.Month(input.Month)
	}

	report, err := handler.creditService.RefreshAll(year, month)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(report)
}

func (handler *Handler) GetSchedule(c *fiber.Ctx) error {
	schedule, err := handler.scheduleService.Load()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(schedule)
}

func (handler *Handler) UpdateSchedule(c *fiber.Ctx) error {
	schedule := models.WorkSchedule{}
	if err := c.BodyParser(&schedule); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_schedule")
	}

	updated, err := handler.scheduleService.Update(schedule)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(updated)
}

func (handler *Handler) DashboardStats(c *fiber.Ctx) error {
	stats, err := handler.statsService.Dashboard()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(stats)
}

func (handler *Handler) ScanStats(c *fiber.Ctx) error {
	stats, err := handler.statsService.ScanStats()
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(stats)
}

func (handler *Handler) MonthlyReport(c *fiber.Ctx) error {
	year, month, ok := parseYearMonth(c, handler.clock())
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_month")
	}

	workbook, fileName, err := handler.reportService.MonthlyWorkbook(year, month)
	if err != nil {
		return handler.serviceError(c, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Send(workbook.Bytes())
}
