package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const WorkScheduleSettingKey = "work-schedule"

// ClockTime is a minute of the day (0..1439) serialized as "HH:MM".
type ClockTime int

func ParseClockTime(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid clock hour %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock minute %q", raw)
	}
	return ClockTime(hour*60 + minute), nil
}

func ClockTimeOf(moment time.Time) ClockTime {
	return ClockTime(moment.Hour()*60 + moment.Minute())
}

func (clock ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(clock)/60, int(clock)%60)
}

func (clock ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(clock.String())
}

func (clock *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clock time must be a \"HH:MM\" string: %w", err)
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*clock = parsed
	return nil
}

type MealWindow struct {
	Start ClockTime
	End   ClockTime
}

// Contains treats both bounds as inclusive.
func (window MealWindow) Contains(clock ClockTime) bool {
	return clock >= window.Start && clock <= window.End
}

type WorkSchedule struct {
	WorkDays              []time.Weekday `json:"work_days"`
	BreakfastStart        ClockTime      `json:"breakfast_start"`
	BreakfastEnd          ClockTime      `json:"breakfast_end"`
	LunchStart            ClockTime      `json:"lunch_start"`
	LunchEnd              ClockTime      `json:"lunch_end"`
	MonthlyBreakfastLimit int            `json:"monthly_breakfast_limit"`
	MonthlyLunchLimit     int            `json:"monthly_lunch_limit"`
}

func DefaultWorkSchedule() WorkSchedule {
	return WorkSchedule{
		WorkDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
		},
		BreakfastStart:        7 * 60,
		BreakfastEnd:          10*60 + 30,
		LunchStart:            11*60 + 30,
		LunchEnd:              14*60 + 30,
		MonthlyBreakfastLimit: 22,
		MonthlyLunchLimit:     22,
	}
}

func (schedule WorkSchedule) BreakfastWindow() MealWindow {
	return MealWindow{Start: schedule.BreakfastStart, End: schedule.BreakfastEnd}
}

func (schedule WorkSchedule) LunchWindow() MealWindow {
	return MealWindow{Start: schedule.LunchStart, End: schedule.LunchEnd}
}

func (schedule WorkSchedule) IsWorkDay(day time.Weekday) bool {
	for _, workDay := range schedule.WorkDays {
		if workDay == day {
			return true
		}
	}
	return false
}

func (schedule WorkSchedule) MonthlyLimit(mealType MealType) int {
	switch mealType {
	case MealBreakfast:
		return schedule.MonthlyBreakfastLimit
	case MealLunch:
		return schedule.MonthlyLunchLimit
	default:
		return 0
	}
}

type SystemSetting struct {
	ID          uint      `gorm:"primaryKey"`
	Key         string    `gorm:"not null"`
	Value       string    `gorm:"not null"`
	Description string    `gorm:"not null;default:''"`
	UpdatedAt   time.Time `gorm:"not null"`
}
