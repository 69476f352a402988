package db

import (
	"errors"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MealRecordRepository struct {
	database *gorm.DB
}

func NewMealRecordRepository(database *gorm.DB) *MealRecordRepository {
	return &MealRecordRepository{database: database}
}

// InsertGuarded checks the same-day key and the remaining quota, then appends
// the record, all inside one transaction. The unique index on
// (user_id, meal_type, date) backs the same-day check under concurrency; the
// quota count runs after the user's month row is locked, so inserts for
// different dates cannot both take the last credit.
func (repo *MealRecordRepository) InsertGuarded(insert *models.MealInsert) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		record := &insert.Record

		if err := lockQuotaOwner(tx, record.UserID, insert.CreditYear, insert.CreditMonth); err != nil {
			return err
		}

		if !insert.SkipSameDate {
			var sameDay int64
			if err := tx.Model(&models.MealRecord{}).
				Where("user_id = ? AND meal_type = ? AND date = ?", record.UserID, record.MealType, record.Date).
				Count(&sameDay).Error; err != nil {
				return err
			}
			if sameDay > 0 {
				return models.ErrMealAlreadyRecorded
			}
		}

		var used int64
		if err := tx.Model(&models.MealRecord{}).
			Where("user_id = ? AND meal_type = ? AND date >= ? AND date < ?", record.UserID, record.MealType, insert.FromDate, insert.ToDate).
			Count(&used).Error; err != nil {
			return err
		}
		if used >= int64(insert.Quota) {
			return models.ErrMealQuotaExhausted
		}

		if err := tx.Create(record).Error; err != nil {
			if IsUniqueViolation(err) {
				return models.ErrMealAlreadyRecorded
			}
			return err
		}
		return nil
	})
}

// lockQuotaOwner takes a row lock on the month's credits row, or on the user
// when the month has no row yet. SQLite drops the clause and relies on its
// single writer.
func lockQuotaOwner(tx *gorm.DB, userID uint, year int, month int) error {
	var credits models.UserMealCredits
	err := creditLockQuery(tx, userID, year, month).Take(&credits).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var user models.User
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("id = ?", userID).
		Take(&user).Error
}

func creditLockQuery(tx *gorm.DB, userID uint, year int, month int) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Model(&models.UserMealCredits{}).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month)
}

func (repo *MealRecordRepository) ExistsForDate(userID uint, mealType models.MealType, date string) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.MealRecord{}).
		Where("user_id = ? AND meal_type = ? AND date = ?", userID, mealType, date).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (repo *MealRecordRepository) CountInRange(userID uint, mealType models.MealType, fromDate string, toDate string) (int64, error) {
	var count int64
	if err := repo.database.Model(&models.MealRecord{}).
		Where("user_id = ? AND meal_type = ? AND date >= ? AND date < ?", userID, mealType, fromDate, toDate).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListForUser returns a user's records in [fromDate, toDate), newest first.
// A non-positive limit returns every row.
func (repo *MealRecordRepository) ListForUser(userID uint, fromDate string, toDate string, limit int) ([]models.MealRecord, error) {
	query := repo.database.
		Where("user_id = ? AND date >= ? AND date < ?", userID, fromDate, toDate).
		Order("date DESC, taken_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	records := make([]models.MealRecord, 0)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByMealType aggregates every user's records in [fromDate, toDate).
func (repo *MealRecordRepository) CountByMealType(fromDate string, toDate string) (map[models.MealType]int64, error) {
	rows := make([]models.UserMealCount, 0)
	if err := repo.database.Model(&models.MealRecord{}).
		Select("meal_type, COUNT(*) AS count").
		Where("date >= ? AND date < ?", fromDate, toDate).
		Group("meal_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.MealType]int64, len(rows))
	for _, row := range rows {
		counts[row.MealType] = row.Count
	}
	return counts, nil
}

func (repo *MealRecordRepository) CountByUser(fromDate string, toDate string) ([]models.UserMealCount, error) {
	rows := make([]models.UserMealCount, 0)
	if err := repo.database.Model(&models.MealRecord{}).
		Select("user_id, meal_type, COUNT(*) AS count").
		Where("date >= ? AND date < ?", fromDate, toDate).
		Group("user_id, meal_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (repo *MealRecordRepository) ListRecent(limit int) ([]models.RecentMeal, error) {
	rows := make([]models.RecentMeal, 0)
	if err := repo.database.Table("meal_records").
		Select("meal_records.id, meal_records.user_id, users.name AS user_name, users.department, meal_records.meal_type, meal_records.date, meal_records.taken_at, meal_records.forced").
		Joins("JOIN users ON users.id = meal_records.user_id").
		Order("meal_records.taken_at DESC, meal_records.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
