package db

import (
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditRepository struct {
	database *gorm.DB
}

func NewCreditRepository(database *gorm.DB) *CreditRepository {
	return &CreditRepository{database: database}
}

var creditMonthColumns = []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}}

func (repo *CreditRepository) Find(userID uint, year int, month int) (models.UserMealCredits, error) {
	var credits models.UserMealCredits
	if err := repo.database.
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&credits).Error; err != nil {
		return models.UserMealCredits{}, err
	}
	return credits, nil
}

// FindOrCreate inserts the allotment unless a row for the same user and month
// already exists, then returns whichever row is stored. Concurrent first
// touches therefore agree on a single row.
func (repo *CreditRepository) FindOrCreate(candidate models.UserMealCredits) (models.UserMealCredits, error) {
	row := candidate
	if err := repo.database.
		Clauses(clause.OnConflict{Columns: creditMonthColumns, DoNothing: true}).
		Create(&row).Error; err != nil {
		return models.UserMealCredits{}, err
	}
	return repo.Find(candidate.UserID, candidate.Year, candidate.Month)
}

// Upsert overwrites the allotment columns of an existing month row.
func (repo *CreditRepository) Upsert(credits *models.UserMealCredits) error {
	if credits.UpdatedAt.IsZero() {
		credits.UpdatedAt = time.Now()
	}
	return repo.database.
		Clauses(clause.OnConflict{
			Columns:   creditMonthColumns,
			DoUpdates: clause.AssignmentColumns([]string{"total_work_days", "breakfast_credits", "lunch_credits", "updated_at"}),
		}).
		Create(credits).Error
}

func (repo *CreditRepository) ListByMonth(year int, month int) ([]models.UserMealCredits, error) {
	rows := make([]models.UserMealCredits, 0)
	if err := repo.database.
		Where("year = ? AND month = ?", year, month).
		Order("user_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
