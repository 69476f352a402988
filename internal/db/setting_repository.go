package db

import (
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository struct {
	database *gorm.DB
}

func NewSettingRepository(database *gorm.DB) *SettingRepository {
	return &SettingRepository{database: database}
}

func (repo *SettingRepository) FindByKey(key string) (models.SystemSetting, error) {
	var setting models.SystemSetting
	if err := repo.database.Where("key = ?", key).First(&setting).Error; err != nil {
		return models.SystemSetting{}, err
	}
	return setting, nil
}

func (repo *SettingRepository) Upsert(key string, value string, description string) error {
	setting := models.SystemSetting{
		Key:         key,
		Value:       value,
		Description: description,
		UpdatedAt:   time.Now(),
	}
	return repo.database.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
		}).
		Create(&setting).Error
}
