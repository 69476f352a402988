package services

import (
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
)

// ResolveMealType returns the meal served at now, if any. Closed days serve
// nothing. When windows overlap breakfast is checked first and wins.
func ResolveMealType(now time.Time, schedule models.WorkSchedule) (models.MealType, bool) {
	if !schedule.IsWorkDay(now.Weekday()) {
		return models.MealNone, false
	}

	clock := models.ClockTimeOf(now)
	if schedule.BreakfastWindow().Contains(clock) {
		return models.MealBreakfast, true
	}
	if schedule.LunchWindow().Contains(clock) {
		return models.MealLunch, true
	}
	return models.MealNone, false
}
