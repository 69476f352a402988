package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
)

// Scan validates a QR token presented at a scanner. It needs no session;
// the token carries the identity and the client environment is the rate
// limit key.
func (handler *Handler) Scan(c *fiber.Ctx) error {
	input := scanInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	fingerprint := ""
	if computed, err := services.Fingerprint(requestDeviceInfo(c, input.Device)); err == nil {
		fingerprint = computed
	}

	result, err := handler.scanService.ValidateScan(c.UserContext(), services.ScanRequest{
		Token:             strings.TrimSpace(input.Token),
		DeviceFingerprint: fingerprint,
		IPAddress:         c.IP(),
	})
	if err != nil {
		return handler.serviceError(c, err)
	}
	return handler.scanResultResponse(c, result)
}

func (handler *Handler) scanResultResponse(c *fiber.Ctx, result services.ScanResult) error {
	if !result.Success {
		return handler.reasonResponse(c, result.Reason, fiber.Map{
			"meal_type": result.MealType,
			"remaining": result.Remaining,
		})
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"user_id":   result.UserID,
		"meal_type": result.MealType,
		"record":    result.Record,
		"remaining": result.Remaining,
		"message":   handler.i18n.Translate(handler.language(c), "meal.success"),
	})
}

// IssueQR signs a token for any user. The meal defaults to the one served
// right now.
func (handler *Handler) IssueQR(c *fiber.Ctx) error {
	input := issueQRInput{}
	if err := c.BodyParser(&input); err != nil || input.UserID == 0 {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}
	if _, err := handler.userAdmin.Get(input.UserID); err != nil {
		return handler.serviceError(c, err)
	}
	return handler.issueQR(c, input.UserID, input.MealType)
}

// IssueOwnQR signs a token for the signed-in user.
func (handler *Handler) IssueOwnQR(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	input := issueQRInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
		}
	}
	return handler.issueQR(c, user.ID, input.MealType)
}

func (handler *Handler) issueQR(c *fiber.Ctx, userID uint, rawMealType string) error {
	mealType, ok := parseMealTypeInput(rawMealType)
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_meal_type")
	}
	if mealType == models.MealNone {
		current, err := handler.mealService.CurrentMeal()
		if err != nil {
			return handler.serviceError(c, err)
		}
		if current == models.MealNone {
			return handler.reasonResponse(c, services.ReasonOutsideMealWindow, nil)
		}
		mealType = current
	}

	token, payload, err := handler.qrCodec.Issue(userID, mealType.String())
	if err != nil {
		return handler.serviceError(c, err)
	}
	handler.logger.Debug("qr token issued", zap.Uint("user_id", userID), zap.String("meal_type", mealType.String()))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":      token,
		"user_id":    userID,
		"meal_type":  mealType,
		"expires_at": time.UnixMilli(payload.ValidUntil).In(handler.location),
	})
}

// VerifyQR inspects a token without recording anything.
func (handler *Handler) VerifyQR(c *fiber.Ctx) error {
	input := verifyQRInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	verified := handler.qrCodec.VerifyAt(strings.TrimSpace(input.Token), handler.clock())
	if !verified.Valid {
		reason := services.TokenFailureReason(verified.Failure)
		return handler.reasonResponse(c, reason, fiber.Map{"valid": false})
	}
	return c.JSON(fiber.Map{
		"valid":      true,
		"user_id":    verified.Payload.UserID,
		"meal_type":  verified.Payload.MealType,
		"issued_at":  time.UnixMilli(verified.Payload.IssuedAt).In(handler.location),
		"expires_at": time.UnixMilli(verified.Payload.ValidUntil).In(handler.location),
	})
}
