package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/security"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TokenVerifier interface {
	VerifyAt(token string, at time.Time) security.VerifyResult
}

type ScanDeviceRepository interface {
	FindActiveByFingerprint(fingerprint string) (models.Device, error)
	TouchLastUsed(deviceID uint, at time.Time) error
}

type MealTaker interface {
	EvaluateAndTakeMeal(userID uint, mealType models.MealType, options TakeMealOptions) (TakeMealResult, error)
}

type ScanRequest struct {
	Token             string
	DeviceFingerprint string
	IPAddress         string
	// Timestamp is the server receive time; zero means now.
	Timestamp time.Time
}

type ScanResult struct {
	Success   bool               `json:"success"`
	Reason    Reason             `json:"reason,omitempty"`
	UserID    uint               `json:"user_id,omitempty"`
	MealType  models.MealType    `json:"meal_type,omitempty"`
	Record    *models.MealRecord `json:"record,omitempty"`
	Remaining int                `json:"remaining"`
}

type ScanService struct {
	guard   *ScanGuard
	tokens  TokenVerifier
	devices ScanDeviceRepository
	meals   MealTaker
	clock   Clock
	logger  *zap.Logger
}

func NewScanService(
	guard *ScanGuard,
	tokens TokenVerifier,
	devices ScanDeviceRepository,
	meals MealTaker,
	clock Clock,
	logger *zap.Logger,
) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		guard:   guard,
		tokens:  tokens,
		devices: devices,
		meals:   meals,
		clock:   clock,
		logger:  logger,
	}
}

// ValidateScan screens a QR scan: rate limit, token, device binding, then
// the eligibility engine. Every attempt is audited, rejected ones included.
func (service *ScanService) ValidateScan(ctx context.Context, request ScanRequest) (ScanResult, error) {
	at := service.receiveTime(request.Timestamp)
	key := scanKey(request.DeviceFingerprint, request.IPAddress)
	release, err := service.guard.Lock(ctx, key)
	if err != nil {
		return ScanResult{}, err
	}
	defer release()

	limited, err := service.guard.RateLimited(ctx, key, at)
	if err != nil {
		return ScanResult{}, err
	}
	if limited {
		return service.finish(ctx, key, request.IPAddress, at, ScanResult{Reason: ReasonRateLimited})
	}

	verified := service.tokens.VerifyAt(request.Token, at)
	if !verified.Valid {
		return service.finish(ctx, key, request.IPAddress, at, ScanResult{Reason: TokenFailureReason(verified.Failure)})
	}
	payload := verified.Payload

	mealType, ok := models.ParseMealType(payload.MealType)
	if !ok {
		return service.finish(ctx, key, request.IPAddress, at, ScanResult{Reason: ReasonTokenMalformed, UserID: payload.UserID})
	}

	result := ScanResult{UserID: payload.UserID, MealType: mealType}
	var boundDevice *models.Device
	if request.DeviceFingerprint != "" {
		device, err := service.devices.FindActiveByFingerprint(request.DeviceFingerprint)
		switch {
		case err == nil:
			if device.UserID != payload.UserID {
				result.Reason = ReasonDeviceMismatch
				return service.finish(ctx, key, request.IPAddress, at, result)
			}
			boundDevice = &device
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return ScanResult{}, fmt.Errorf("load scanning device: %w", err)
		}
	}

	taken, err := service.meals.EvaluateAndTakeMeal(payload.UserID, mealType, TakeMealOptions{
		DeviceFingerprint: request.DeviceFingerprint,
		At:                at,
	})
	if err != nil {
		return ScanResult{}, err
	}
	result.Success = taken.Success
	result.Reason = taken.Reason
	result.Record = taken.Record
	result.Remaining = taken.Remaining

	if taken.Success && boundDevice != nil {
		if err := service.devices.TouchLastUsed(boundDevice.ID, at); err != nil {
			service.logger.Warn("device last-used update failed", zap.Uint("device_id", boundDevice.ID), zap.Error(err))
		}
	}
	return service.finish(ctx, key, request.IPAddress, at, result)
}

// TakeMealWithDevice is the device flow: the fingerprint must be the user's
// active device, and the same rate limit as scans applies.
func (service *ScanService) TakeMealWithDevice(ctx context.Context, userID uint, mealType models.MealType, fingerprint string, ipAddress string) (ScanResult, error) {
	at := service.receiveTime(time.Time{})
	key := scanKey(fingerprint, ipAddress)
	release, err := service.guard.Lock(ctx, key)
	if err != nil {
		return ScanResult{}, err
	}
	defer release()
	result := ScanResult{UserID: userID, MealType: mealType}

	limited, err := service.guard.RateLimited(ctx, key, at)
	if err != nil {
		return ScanResult{}, err
	}
	if limited {
		result.Reason = ReasonRateLimited
		return service.finish(ctx, key, ipAddress, at, result)
	}

	if fingerprint == "" {
		result.Reason = ReasonDeviceMismatch
		return service.finish(ctx, key, ipAddress, at, result)
	}
	device, err := service.devices.FindActiveByFingerprint(fingerprint)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ScanResult{}, fmt.Errorf("load device: %w", err)
	}
	if err != nil || device.UserID != userID {
		result.Reason = ReasonDeviceMismatch
		return service.finish(ctx, key, ipAddress, at, result)
	}

	taken, err := service.meals.EvaluateAndTakeMeal(userID, mealType, TakeMealOptions{
		DeviceFingerprint: fingerprint,
		At:                at,
	})
	if err != nil {
		return ScanResult{}, err
	}
	result.Success = taken.Success
	result.Reason = taken.Reason
	result.Record = taken.Record
	result.Remaining = taken.Remaining

	if taken.Success {
		if err := service.devices.TouchLastUsed(device.ID, at); err != nil {
			service.logger.Warn("device last-used update failed", zap.Uint("device_id", device.ID), zap.Error(err))
		}
	}
	return service.finish(ctx, key, ipAddress, at, result)
}

func (service *ScanService) finish(ctx context.Context, key string, ipAddress string, at time.Time, result ScanResult) (ScanResult, error) {
	attempt := models.ScanAttempt{
		DeviceFingerprint: key,
		Success:           result.Success,
		Reason:            result.Reason.String(),
		IPAddress:         ipAddress,
		AttemptedAt:       at,
	}
	if result.UserID != 0 {
		userID := result.UserID
		attempt.UserID = &userID
	}

	if err := service.guard.RecordAttempt(ctx, attempt); err != nil {
		return ScanResult{}, err
	}

	logger := service.logger.With(
		zap.String("device", key),
		zap.Uint("user_id", result.UserID),
		zap.String("meal_type", result.MealType.String()),
	)
	if result.Success {
		logger.Info("meal scan accepted")
	} else {
		logger.Info("meal scan rejected", zap.String("reason", result.Reason.String()))
	}
	return result, nil
}

func (service *ScanService) receiveTime(timestamp time.Time) time.Time {
	now := service.clock()
	if timestamp.IsZero() {
		return now
	}
	return timestamp.In(now.Location())
}

// scanKey falls back to the client address for scanners that send no
// fingerprint, so they are still rate limited.
func scanKey(fingerprint string, ipAddress string) string {
	if fingerprint != "" {
		return fingerprint
	}
	return "ip:" + ipAddress
}

// TokenFailureReason maps a codec failure onto the reason sent to clients.
func TokenFailureReason(failure security.TokenFailure) Reason {
	switch failure {
	case security.TokenExpired:
		return ReasonTokenExpired
	case security.TokenTampered:
		return ReasonTokenTampered
	default:
		return ReasonTokenMalformed
	}
}
