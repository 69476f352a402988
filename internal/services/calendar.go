package services

import (
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
)

// CountWorkDays returns how many days of the month fall on one of workDays.
func CountWorkDays(year int, month time.Month, workDays []time.Weekday) int {
	if len(workDays) == 0 {
		return 0
	}

	open := make(map[time.Weekday]struct{}, len(workDays))
	for _, day := range workDays {
		open[day] = struct{}{}
	}

	count := 0
	last := DaysInMonth(year, month)
	for day := 1; day <= last; day++ {
		weekday := time.Date(year, month, day, 12, 0, 0, 0, time.UTC).Weekday()
		if _, ok := open[weekday]; ok {
			count++
		}
	}
	return count
}

// DaysInMonth relies on time.Date normalising day 0 of the next month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// MonthDateRange returns the [from, to) meal-date keys covering the month.
func MonthDateRange(year int, month time.Month) (string, string) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start.Format(models.MealDateLayout), start.AddDate(0, 1, 0).Format(models.MealDateLayout)
}

func mealDateKey(moment time.Time) string {
	return moment.Format(models.MealDateLayout)
}
