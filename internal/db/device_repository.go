package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

type DeviceRepository struct {
	database *gorm.DB
}

func NewDeviceRepository(database *gorm.DB) *DeviceRepository {
	return &DeviceRepository{database: database}
}

func (repo *DeviceRepository) FindActiveByFingerprint(fingerprint string) (models.Device, error) {
	var device models.Device
	if err := repo.database.
		Where("fingerprint = ? AND is_active = ?", fingerprint, true).
		Order("id DESC").
		First(&device).Error; err != nil {
		return models.Device{}, err
	}
	return device, nil
}

func (repo *DeviceRepository) FindActiveByUserID(userID uint) (models.Device, error) {
	var device models.Device
	if err := repo.database.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&device).Error; err != nil {
		return models.Device{}, err
	}
	return device, nil
}

func (repo *DeviceRepository) ListByUserID(userID uint) ([]models.Device, error) {
	devices := make([]models.Device, 0)
	if err := repo.database.Where("user_id = ?", userID).Order("id DESC").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// Register binds device.Fingerprint to device.UserID as the user's only
// active device. An existing row for the same user and fingerprint is
// reactivated instead of duplicated.
func (repo *DeviceRepository) Register(device *models.Device) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		var bound int64
		if err := tx.Model(&models.Device{}).
			Where("fingerprint = ? AND is_active = ? AND user_id <> ?", device.Fingerprint, true, device.UserID).
			Count(&bound).Error; err != nil {
			return err
		}
		if bound > 0 {
			return models.ErrFingerprintBound
		}

		var existing models.Device
		result := tx.
			Where("user_id = ? AND fingerprint = ?", device.UserID, device.Fingerprint).
			Order("id DESC").
			First(&existing)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}

		deactivate := tx.Model(&models.Device{}).Where("user_id = ? AND is_active = ?", device.UserID, true)
		if result.Error == nil {
			deactivate = deactivate.Where("id <> ?", existing.ID)
		}
		if err := deactivate.Update("is_active", false).Error; err != nil {
			return err
		}

		if result.Error == nil {
			existing.UserAgent = device.UserAgent
			existing.ScreenResolution = device.ScreenResolution
			existing.Timezone = device.Timezone
			existing.IsActive = true
			existing.LastUsedAt = device.LastUsedAt
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*device = existing
			return nil
		}

		device.IsActive = true
		if device.CreatedAt.IsZero() {
			device.CreatedAt = device.LastUsedAt
		}
		if err := tx.Create(device).Error; err != nil {
			if IsUniqueViolation(err) {
				return models.ErrFingerprintBound
			}
			return err
		}
		return nil
	})
}

func (repo *DeviceRepository) TouchLastUsed(deviceID uint, at time.Time) error {
	return repo.database.Model(&models.Device{}).Where("id = ?", deviceID).Update("last_used_at", at).Error
}

func (repo *DeviceRepository) DeactivateByUserID(userID uint) error {
	return repo.database.Model(&models.Device{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}
