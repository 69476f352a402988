package services

import (
	"testing"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
)

func TestResolveMealType(t *testing.T) {
	schedule := models.DefaultWorkSchedule()
	location := time.FixedZone("TRT", 3*60*60)

	tests := []struct {
		name     string
		moment   time.Time
		want     models.MealType
		wantOpen bool
	}{
		{name: "tuesday breakfast", moment: time.Date(2024, 3, 5, 9, 0, 0, 0, location), want: models.MealBreakfast, wantOpen: true},
		{name: "sunday is closed", moment: time.Date(2024, 3, 3, 9, 0, 0, 0, location), want: models.MealNone, wantOpen: false},
		{name: "breakfast start inclusive", moment: time.Date(2024, 3, 5, 7, 0, 0, 0, location), want: models.MealBreakfast, wantOpen: true},
		{name: "breakfast end inclusive", moment: time.Date(2024, 3, 5, 10, 30, 59, 0, location), want: models.MealBreakfast, wantOpen: true},
		{name: "gap between meals", moment: time.Date(2024, 3, 5, 10, 31, 0, 0, location), want: models.MealNone, wantOpen: false},
		{name: "lunch start inclusive", moment: time.Date(2024, 3, 5, 11, 30, 0, 0, location), want: models.MealLunch, wantOpen: true},
		{name: "lunch end inclusive", moment: time.Date(2024, 3, 5, 14, 30, 0, 0, location), want: models.MealLunch, wantOpen: true},
		{name: "after lunch", moment: time.Date(2024, 3, 5, 14, 31, 0, 0, location), want: models.MealNone, wantOpen: false},
		{name: "before breakfast", moment: time.Date(2024, 3, 5, 6, 59, 0, 0, location), want: models.MealNone, wantOpen: false},
		{name: "saturday lunch", moment: time.Date(2024, 3, 9, 12, 0, 0, 0, location), want: models.MealLunch, wantOpen: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got, open := ResolveMealType(testCase.moment, schedule)
			if got != testCase.want || open != testCase.wantOpen {
				t.Fatalf("ResolveMealType(%s) = (%s, %v), want (%s, %v)", testCase.moment, got, open, testCase.want, testCase.wantOpen)
			}
		})
	}
}

func TestResolveMealTypeOverlapPrefersBreakfast(t *testing.T) {
	schedule := models.DefaultWorkSchedule()
	schedule.BreakfastEnd = 12 * 60
	schedule.LunchStart = 11 * 60

	got, open := ResolveMealType(time.Date(2024, 3, 5, 11, 30, 0, 0, time.UTC), schedule)
	if !open || got != models.MealBreakfast {
		t.Fatalf("expected breakfast in overlap, got (%s, %v)", got, open)
	}
}
