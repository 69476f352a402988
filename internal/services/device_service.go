package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

var (
	ErrDeviceInfoMissing             = errors.New("device information is missing")
	ErrDeviceRegisteredToAnotherUser = errors.New("device is registered to another user")
	ErrDeviceNotRegistered           = errors.New("device is not registered")
)

type DeviceRepository interface {
	FindActiveByFingerprint(fingerprint string) (models.Device, error)
	FindActiveByUserID(userID uint) (models.Device, error)
	Register(device *models.Device) error
}

type DeviceUserRepository interface {
	FindByID(userID uint) (models.User, error)
}

// DeviceCheck answers whether a client environment maps to a known user.
type DeviceCheck struct {
	Registered  bool           `json:"registered"`
	Fingerprint string         `json:"fingerprint"`
	User        *models.User   `json:"user,omitempty"`
	Device      *models.Device `json:"device,omitempty"`
}

type DeviceService struct {
	devices DeviceRepository
	users   DeviceUserRepository
	clock   Clock
}

func NewDeviceService(devices DeviceRepository, users DeviceUserRepository, clock Clock) *DeviceService {
	return &DeviceService{devices: devices, users: users, clock: clock}
}

// Fingerprint derives a stable identifier from the client environment.
func Fingerprint(info models.DeviceInfo) (string, error) {
	parts := []string{
		strings.TrimSpace(info.UserAgent),
		strings.TrimSpace(info.Language),
		strings.TrimSpace(info.Platform),
		strings.TrimSpace(info.ScreenResolution),
		strings.TrimSpace(info.Timezone),
	}
	if parts[0] == "" {
		return "", ErrDeviceInfoMissing
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:]), nil
}

// Register makes info the user's single active device.
func (service *DeviceService) Register(userID uint, info models.DeviceInfo) (models.Device, error) {
	fingerprint, err := Fingerprint(info)
	if err != nil {
		return models.Device{}, err
	}

	now := service.clock()
	device := models.Device{
		UserID:           userID,
		Fingerprint:      fingerprint,
		UserAgent:        info.UserAgent,
		ScreenResolution: info.ScreenResolution,
		Timezone:         info.Timezone,
		CreatedAt:        now,
		LastUsedAt:       now,
	}
	if err := service.devices.Register(&device); err != nil {
		if errors.Is(err, models.ErrFingerprintBound) {
			return models.Device{}, ErrDeviceRegisteredToAnotherUser
		}
		return models.Device{}, fmt.Errorf("register device: %w", err)
	}
	return device, nil
}

func (service *DeviceService) Check(info models.DeviceInfo) (DeviceCheck, error) {
	fingerprint, err := Fingerprint(info)
	if err != nil {
		return DeviceCheck{}, err
	}

	check := DeviceCheck{Fingerprint: fingerprint}
	device, err := service.devices.FindActiveByFingerprint(fingerprint)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return check, nil
	}
	if err != nil {
		return DeviceCheck{}, fmt.Errorf("load device: %w", err)
	}

	user, err := service.users.FindByID(device.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return check, nil
	}
	if err != nil {
		return DeviceCheck{}, fmt.Errorf("load device owner: %w", err)
	}
	if !user.IsActive {
		return check, nil
	}

	check.Registered = true
	check.User = &user
	check.Device = &device
	return check, nil
}

// ActiveDevice returns the user's current device.
func (service *DeviceService) ActiveDevice(userID uint) (models.Device, error) {
	device, err := service.devices.FindActiveByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Device{}, ErrDeviceNotRegistered
	}
	return device, err
}
