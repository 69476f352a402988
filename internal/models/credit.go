package models

import "time"

// UserMealCredits is the stored monthly allotment. Consumption is never stored
// here; it is always counted from meal records.
type UserMealCredits struct {
	ID               uint      `gorm:"primaryKey"`
	UserID           uint      `gorm:"not null"`
	Year             int       `gorm:"not null"`
	Month            int       `gorm:"not null"`
	TotalWorkDays    int       `gorm:"not null"`
	BreakfastCredits int       `gorm:"not null"`
	LunchCredits     int       `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (UserMealCredits) TableName() string {
	return "user_meal_credits"
}
