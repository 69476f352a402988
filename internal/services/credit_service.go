package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"go.uber.org/zap"
)

var (
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrRefreshPastMonth = errors.New("credits of past months cannot be refreshed")
)

type CreditRecordRepository interface {
	FindOrCreate(candidate models.UserMealCredits) (models.UserMealCredits, error)
	Upsert(credits *models.UserMealCredits) error
}

type MealUsageRepository interface {
	CountInRange(userID uint, mealType models.MealType, fromDate string, toDate string) (int64, error)
}

type CreditHolderRepository interface {
	ListCreditHolders() ([]models.User, error)
}

type ScheduleProvider interface {
	Load() (models.WorkSchedule, error)
}

// MonthlyCredits is a stored allotment reconciled with live usage.
type MonthlyCredits struct {
	UserID             uint       `json:"user_id"`
	Year               int        `json:"year"`
	Month              time.Month `json:"month"`
	TotalWorkDays      int        `json:"total_work_days"`
	BreakfastCredits   int        `json:"breakfast_credits"`
	LunchCredits       int        `json:"lunch_credits"`
	BreakfastUsed      int        `json:"breakfast_used"`
	LunchUsed          int        `json:"lunch_used"`
	BreakfastRemaining int        `json:"breakfast_remaining"`
	LunchRemaining     int        `json:"lunch_remaining"`
}

func (credits MonthlyCredits) Allotted(mealType models.MealType) int {
	switch mealType {
	case models.MealBreakfast:
		return credits.BreakfastCredits
	case models.MealLunch:
		return credits.LunchCredits
	default:
		return 0
	}
}

func (credits MonthlyCredits) Remaining(mealType models.MealType) int {
	switch mealType {
	case models.MealBreakfast:
		return credits.BreakfastRemaining
	case models.MealLunch:
		return credits.LunchRemaining
	default:
		return 0
	}
}

// MealCounts compares a month's usage with the schedule's monthly limits.
type MealCounts struct {
	Year               int        `json:"year"`
	Month              time.Month `json:"month"`
	BreakfastUsed      int        `json:"breakfast_used"`
	LunchUsed          int        `json:"lunch_used"`
	BreakfastLimit     int        `json:"breakfast_limit"`
	LunchLimit         int        `json:"lunch_limit"`
	BreakfastRemaining int        `json:"breakfast_remaining"`
	LunchRemaining     int        `json:"lunch_remaining"`
}

type RefreshFailure struct {
	UserID uint   `json:"user_id"`
	Error  string `json:"error"`
}

type RefreshReport struct {
	Year          int              `json:"year"`
	Month         time.Month       `json:"month"`
	TotalWorkDays int              `json:"total_work_days"`
	Refreshed     int              `json:"refreshed"`
	Failed        []RefreshFailure `json:"failed"`
}

type CreditService struct {
	credits  CreditRecordRepository
	meals    MealUsageRepository
	holders  CreditHolderRepository
	schedule ScheduleProvider
	clock    Clock
	logger   *zap.Logger
}

func NewCreditService(
	credits CreditRecordRepository,
	meals MealUsageRepository,
	holders CreditHolderRepository,
	schedule ScheduleProvider,
	clock Clock,
	logger *zap.Logger,
) *CreditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditService{
		credits:  credits,
		meals:    meals,
		holders:  holders,
		schedule: schedule,
		clock:    clock,
		logger:   logger,
	}
}

// Get creates the month's allotment on first touch and always recounts usage
// from meal records before returning.
func (service *CreditService) Get(userID uint, year int, month time.Month) (MonthlyCredits, error) {
	if month < time.January || month > time.December {
		return MonthlyCredits{}, ErrInvalidMonth
	}

	schedule, err := service.schedule.Load()
	if err != nil {
		return MonthlyCredits{}, err
	}

	workDays := CountWorkDays(year, month, schedule.WorkDays)
	stored, err := service.credits.FindOrCreate(models.UserMealCredits{
		UserID:           userID,
		Year:             year,
		Month:            int(month),
		TotalWorkDays:    workDays,
		BreakfastCredits: workDays,
		LunchCredits:     workDays,
	})
	if err != nil {
		return MonthlyCredits{}, fmt.Errorf("load monthly credits: %w", err)
	}

	return service.reconcile(stored, year, month)
}

// Current is Get for the current month in the service time zone.
func (service *CreditService) Current(userID uint) (MonthlyCredits, error) {
	now := service.clock()
	return service.Get(userID, now.Year(), now.Month())
}

func (service *CreditService) reconcile(stored models.UserMealCredits, year int, month time.Month) (MonthlyCredits, error) {
	fromDate, toDate := MonthDateRange(year, month)
	breakfastUsed, err := service.meals.CountInRange(stored.UserID, models.MealBreakfast, fromDate, toDate)
	if err != nil {
		return MonthlyCredits{}, fmt.Errorf("count breakfast records: %w", err)
	}
	lunchUsed, err := service.meals.CountInRange(stored.UserID, models.MealLunch, fromDate, toDate)
	if err != nil {
		return MonthlyCredits{}, fmt.Errorf("count lunch records: %w", err)
	}

	return MonthlyCredits{
		UserID:             stored.UserID,
		Year:               year,
		Month:              month,
		TotalWorkDays:      stored.TotalWorkDays,
		BreakfastCredits:   stored.BreakfastCredits,
		LunchCredits:       stored.LunchCredits,
		BreakfastUsed:      int(breakfastUsed),
		LunchUsed:          int(lunchUsed),
		BreakfastRemaining: remainingCredits(stored.BreakfastCredits, int(breakfastUsed)),
		LunchRemaining:     remainingCredits(stored.LunchCredits, int(lunchUsed)),
	}, nil
}

// MealCounts reports usage against the schedule's monthly limits rather than
// the stored allotment.
func (service *CreditService) MealCounts(userID uint, year int, month time.Month) (MealCounts, error) {
	if month < time.January || month > time.December {
		return MealCounts{}, ErrInvalidMonth
	}

	schedule, err := service.schedule.Load()
	if err != nil {
		return MealCounts{}, err
	}

	fromDate, toDate := MonthDateRange(year, month)
	breakfastUsed, err := service.meals.CountInRange(userID, models.MealBreakfast, fromDate, toDate)
	if err != nil {
		return MealCounts{}, fmt.Errorf("count breakfast records: %w", err)
	}
	lunchUsed, err := service.meals.CountInRange(userID, models.MealLunch, fromDate, toDate)
	if err != nil {
		return MealCounts{}, fmt.Errorf("count lunch records: %w", err)
	}

	return MealCounts{
		Year:               year,
		Month:              month,
		BreakfastUsed:      int(breakfastUsed),
		LunchUsed:          int(lunchUsed),
		BreakfastLimit:     schedule.MonthlyBreakfastLimit,
		LunchLimit:         schedule.MonthlyLunchLimit,
		BreakfastRemaining: remainingCredits(schedule.MonthlyBreakfastLimit, int(breakfastUsed)),
		LunchRemaining:     remainingCredits(schedule.MonthlyLunchLimit, int(lunchUsed)),
	}, nil
}

// RefreshAll recomputes the target month's allotment of every active and
// approved user from the current schedule. A failing user is logged and
// reported; the batch keeps going.
func (service *CreditService) RefreshAll(year int, month time.Month) (RefreshReport, error) {
	if month < time.January || month > time.December {
		return RefreshReport{}, ErrInvalidMonth
	}

	now := service.clock()
	if year < now.Year() || (year == now.Year() && month < now.Month()) {
		return RefreshReport{}, ErrRefreshPastMonth
	}

	schedule, err := service.schedule.Load()
	if err != nil {
		return RefreshReport{}, err
	}
	users, err := service.holders.ListCreditHolders()
	if err != nil {
		return RefreshReport{}, fmt.Errorf("list credit holders: %w", err)
	}

	workDays := CountWorkDays(year, month, schedule.WorkDays)
	report := RefreshReport{
		Year:          year,
		Month:         month,
		TotalWorkDays: workDays,
		Failed:        make([]RefreshFailure, 0),
	}
	for _, user := range users {
		credits := models.UserMealCredits{
			UserID:           user.ID,
			Year:             year,
			Month:            int(month),
			TotalWorkDays:    workDays,
			BreakfastCredits: workDays,
			LunchCredits:     workDays,
			UpdatedAt:        now,
		}
		if err := service.credits.Upsert(&credits); err != nil {
			service.logger.Warn("credit refresh failed",
				zap.Uint("user_id", user.ID),
				zap.Int("year", year),
				zap.Int("month", int(month)),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, RefreshFailure{UserID: user.ID, Error: err.Error()})
			continue
		}
		report.Refreshed++
	}

	service.logger.Info("credits refreshed",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("work_days", workDays),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func remainingCredits(allotted int, used int) int {
	if used >= allotted {
		return 0
	}
	return allotted - used
}
