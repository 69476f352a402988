package db

import (
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

type ScanAttemptRepository struct {
	database *gorm.DB
}

func NewScanAttemptRepository(database *gorm.DB) *ScanAttemptRepository {
	return &ScanAttemptRepository{database: database}
}

func (repo *ScanAttemptRepository) Create(attempt *models.ScanAttempt) error {
	return repo.database.Create(attempt).Error
}

func (repo *ScanAttemptRepository) CountSince(fingerprint string, since time.Time) (int64, error) {
	var count int64
	if err := repo.database.Model(&models.ScanAttempt{}).
		Where("device_fingerprint = ? AND attempted_at > ?", fingerprint, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *ScanAttemptRepository) ListSince(fingerprint string, since time.Time) ([]models.ScanAttempt, error) {
	attempts := make([]models.ScanAttempt, 0)
	if err := repo.database.
		Where("device_fingerprint = ? AND attempted_at > ?", fingerprint, since).
		Order("attempted_at DESC, id DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (repo *ScanAttemptRepository) DeleteBefore(cutoff time.Time) error {
	return repo.database.Where("attempted_at < ?", cutoff).Delete(&models.ScanAttempt{}).Error
}

func (repo *ScanAttemptRepository) ListRecent(limit int) ([]models.ScanAttempt, error) {
	attempts := make([]models.ScanAttempt, 0)
	if err := repo.database.Order("attempted_at DESC, id DESC").Limit(limit).Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (repo *ScanAttemptRepository) CountByReasonSince(since time.Time) ([]models.ReasonCount, error) {
	rows := make([]models.ReasonCount, 0)
	if err := repo.database.Model(&models.ScanAttempt{}).
		Select("reason, COUNT(*) AS count").
		Where("attempted_at >= ?", since).
		Group("reason").
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
