package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

var (
	ErrScheduleNoWorkDays      = errors.New("work schedule needs at least one work day")
	ErrScheduleInvalidWeekday  = errors.New("work schedule weekday out of range")
	ErrScheduleInvalidClock    = errors.New("work schedule time out of range")
	ErrScheduleInvalidWindow   = errors.New("meal window start must not be after its end")
	ErrScheduleInvalidLimit    = errors.New("monthly meal limit must be zero or positive")
	ErrScheduleCorruptSettings = errors.New("stored work schedule is corrupt")
)

const workScheduleDescription = "Work days, meal windows and monthly meal limits"

type ScheduleSettingRepository interface {
	FindByKey(key string) (models.SystemSetting, error)
	Upsert(key string, value string, description string) error
}

type ScheduleService struct {
	settings ScheduleSettingRepository
}

func NewScheduleService(settings ScheduleSettingRepository) *ScheduleService {
	return &ScheduleService{settings: settings}
}

// Load returns the stored schedule, or the default one when none was saved.
func (service *ScheduleService) Load() (models.WorkSchedule, error) {
	setting, err := service.settings.FindByKey(models.WorkScheduleSettingKey)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultWorkSchedule(), nil
	}
	if err != nil {
		return models.WorkSchedule{}, fmt.Errorf("load work schedule: %w", err)
	}

	var schedule models.WorkSchedule
	if err := json.Unmarshal([]byte(setting.Value), &schedule); err != nil {
		return models.WorkSchedule{}, fmt.Errorf("%w: %v", ErrScheduleCorruptSettings, err)
	}
	if err := ValidateWorkSchedule(schedule); err != nil {
		return models.WorkSchedule{}, fmt.Errorf("%w: %v", ErrScheduleCorruptSettings, err)
	}
	return schedule, nil
}

// Update validates and persists schedule. Existing monthly allotments are not
// touched; a credit refresh applies the new work days.
func (service *ScheduleService) Update(schedule models.WorkSchedule) (models.WorkSchedule, error) {
	normalized := NormalizeWorkSchedule(schedule)
	if err := ValidateWorkSchedule(normalized); err != nil {
		return models.WorkSchedule{}, err
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return models.WorkSchedule{}, fmt.Errorf("encode work schedule: %w", err)
	}
	if err := service.settings.Upsert(models.WorkScheduleSettingKey, string(encoded), workScheduleDescription); err != nil {
		return models.WorkSchedule{}, fmt.Errorf("save work schedule: %w", err)
	}
	return normalized, nil
}

func ValidateWorkSchedule(schedule models.WorkSchedule) error {
	if len(schedule.WorkDays) == 0 {
		return ErrScheduleNoWorkDays
	}
	for _, day := range schedule.WorkDays {
		if day < time.Sunday || day > time.Saturday {
			return ErrScheduleInvalidWeekday
		}
	}

	for _, clock := range []models.ClockTime{
		schedule.BreakfastStart, schedule.BreakfastEnd, schedule.LunchStart, schedule.LunchEnd,
	} {
		if clock < 0 || clock >= 24*60 {
			return ErrScheduleInvalidClock
		}
	}
	if schedule.BreakfastStart > schedule.BreakfastEnd || schedule.LunchStart > schedule.LunchEnd {
		return ErrScheduleInvalidWindow
	}

	if schedule.MonthlyBreakfastLimit < 0 || schedule.MonthlyLunchLimit < 0 {
		return ErrScheduleInvalidLimit
	}
	return nil
}

// NormalizeWorkSchedule sorts and de-duplicates the work days.
func NormalizeWorkSchedule(schedule models.WorkSchedule) models.WorkSchedule {
	seen := make(map[time.Weekday]struct{}, len(schedule.WorkDays))
	days := make([]time.Weekday, 0, len(schedule.WorkDays))
	for _, day := range schedule.WorkDays {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	schedule.WorkDays = days
	return schedule
}
