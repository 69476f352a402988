package models

import (
	"strings"
	"time"
)

type MealType string

const (
	MealNone      MealType = ""
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
)

// MealDateLayout is the calendar-date key of a meal record.
const MealDateLayout = "2006-01-02"

func (mealType MealType) Valid() bool {
	return mealType == MealBreakfast || mealType == MealLunch
}

func (mealType MealType) String() string {
	if mealType == MealNone {
		return "none"
	}
	return string(mealType)
}

// ParseMealType accepts the canonical names and the legacy Turkish labels
// still printed on older QR posters.
func ParseMealType(raw string) (MealType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "breakfast", "kahvalti":
		return MealBreakfast, true
	case "lunch", "ogle":
		return MealLunch, true
	default:
		return MealNone, false
	}
}

type MealRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null" json:"user_id"`
	MealType          MealType  `gorm:"type:text;not null" json:"meal_type"`
	Date              string    `gorm:"not null" json:"date"`
	TakenAt           time.Time `gorm:"not null" json:"taken_at"`
	DeviceFingerprint string    `gorm:"not null;default:''" json:"device_fingerprint,omitempty"`
	Forced            bool      `gorm:"not null;default:false" json:"forced"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
}

// MealInsert is a guarded append. FromDate (inclusive) and ToDate (exclusive)
// bound the month Quota applies to; CreditYear and CreditMonth name the
// credits row locked while the quota is counted.
type MealInsert struct {
	Record       MealRecord
	Quota        int
	FromDate     string
	ToDate       string
	CreditYear   int
	CreditMonth  int
	SkipSameDate bool
}
