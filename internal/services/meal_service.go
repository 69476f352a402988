package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

type MealUserRepository interface {
	FindByID(userID uint) (models.User, error)
}

type MealRecordStore interface {
	ExistsForDate(userID uint, mealType models.MealType, date string) (bool, error)
	InsertGuarded(insert *models.MealInsert) error
}

type MonthlyCreditsReader interface {
	Get(userID uint, year int, month time.Month) (MonthlyCredits, error)
}

// Decision is the outcome of an eligibility check without side effects.
type Decision struct {
	Allowed   bool            `json:"allowed"`
	Reason    Reason          `json:"reason,omitempty"`
	MealType  models.MealType `json:"meal_type"`
	Remaining int             `json:"remaining"`
}

type TakeMealOptions struct {
	Force             bool
	DeviceFingerprint string
	// At overrides the service clock; scans pass the server receive time.
	At time.Time
}

type TakeMealResult struct {
	Success   bool               `json:"success"`
	Reason    Reason             `json:"reason,omitempty"`
	Record    *models.MealRecord `json:"record,omitempty"`
	Remaining int                `json:"remaining"`
}

type MealService struct {
	users    MealUserRepository
	records  MealRecordStore
	credits  MonthlyCreditsReader
	schedule ScheduleProvider
	clock    Clock
}

func NewMealService(
	users MealUserRepository,
	records MealRecordStore,
	credits MonthlyCreditsReader,
	schedule ScheduleProvider,
	clock Clock,
) *MealService {
	return &MealService{
		users:    users,
		records:  records,
		credits:  credits,
		schedule: schedule,
		clock:    clock,
	}
}

// CurrentMeal resolves the meal served right now.
func (service *MealService) CurrentMeal() (models.MealType, error) {
	schedule, err := service.schedule.Load()
	if err != nil {
		return models.MealNone, err
	}
	mealType, _ := ResolveMealType(service.clock(), schedule)
	return mealType, nil
}

// Evaluate checks whether the user may take the meal served right now.
func (service *MealService) Evaluate(userID uint) (Decision, error) {
	now := service.clock()
	schedule, err := service.schedule.Load()
	if err != nil {
		return Decision{}, err
	}
	mealType, _ := ResolveMealType(now, schedule)
	decision, _, err := service.decide(userID, mealType, now, schedule, false)
	return decision, err
}

// CanConsume reports whether userID may take mealType right now.
func (service *MealService) CanConsume(userID uint, mealType models.MealType) (bool, error) {
	now := service.clock()
	schedule, err := service.schedule.Load()
	if err != nil {
		return false, err
	}
	decision, _, err := service.decide(userID, mealType, now, schedule, false)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// EvaluateAndTakeMeal runs the gates in order (identity, time, same-day,
// quota) and appends a meal record when all pass. Force skips the time and
// same-day gates but still draws from the quota.
func (service *MealService) EvaluateAndTakeMeal(userID uint, mealType models.MealType, options TakeMealOptions) (TakeMealResult, error) {
	now := service.clock()
	if !options.At.IsZero() {
		now = options.At.In(now.Location())
	}
	schedule, err := service.schedule.Load()
	if err != nil {
		return TakeMealResult{}, err
	}

	decision, credits, err := service.decide(userID, mealType, now, schedule, options.Force)
	if err != nil {
		return TakeMealResult{}, err
	}
	if !decision.Allowed {
		return TakeMealResult{Reason: decision.Reason, Remaining: decision.Remaining}, nil
	}

	fromDate, toDate := MonthDateRange(now.Year(), now.Month())
	insert := models.MealInsert{
		Record: models.MealRecord{
			UserID:            userID,
			MealType:          mealType,
			Date:              mealDateKey(now),
			TakenAt:           now,
			DeviceFingerprint: options.DeviceFingerprint,
			Forced:            options.Force,
		},
		Quota:        credits.Allotted(mealType),
		FromDate:     fromDate,
		ToDate:       toDate,
		CreditYear:   now.Year(),
		CreditMonth:  int(now.Month()),
		SkipSameDate: options.Force,
	}

	if err := service.records.InsertGuarded(&insert); err != nil {
		switch {
		case errors.Is(err, models.ErrMealAlreadyRecorded):
			return TakeMealResult{Reason: ReasonAlreadyTaken, Remaining: decision.Remaining}, nil
		case errors.Is(err, models.ErrMealQuotaExhausted):
			return TakeMealResult{Reason: ReasonQuotaExhausted}, nil
		default:
			return TakeMealResult{}, fmt.Errorf("record meal: %w", err)
		}
	}

	record := insert.Record
	return TakeMealResult{
		Success:   true,
		Record:    &record,
		Remaining: remainingCredits(decision.Remaining, 1),
	}, nil
}

func (service *MealService) decide(userID uint, mealType models.MealType, now time.Time, schedule models.WorkSchedule, force bool) (Decision, MonthlyCredits, error) {
	decision := Decision{MealType: mealType}

	user, err := service.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		decision.Reason = ReasonUserNotFound
		return decision, MonthlyCredits{}, nil
	}
	if err != nil {
		return Decision{}, MonthlyCredits{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		decision.Reason = ReasonUserInactive
		return decision, MonthlyCredits{}, nil
	}
	if !user.IsApproved && !user.IsAdmin() {
		decision.Reason = ReasonUserNotApproved
		return decision, MonthlyCredits{}, nil
	}

	if !mealType.Valid() {
		decision.Reason = ReasonOutsideMealWindow
		return decision, MonthlyCredits{}, nil
	}

	if !force {
		current, open := ResolveMealType(now, schedule)
		if !open || current != mealType {
			decision.Reason = ReasonOutsideMealWindow
			return decision, MonthlyCredits{}, nil
		}

		taken, err := service.records.ExistsForDate(userID, mealType, mealDateKey(now))
		if err != nil {
			return Decision{}, MonthlyCredits{}, fmt.Errorf("check meal record: %w", err)
		}
		if taken {
			decision.Reason = ReasonAlreadyTaken
			return decision, MonthlyCredits{}, nil
		}
	}

	credits, err := service.credits.Get(userID, now.Year(), now.Month())
	if err != nil {
		return Decision{}, MonthlyCredits{}, err
	}
	decision.Remaining = credits.Remaining(mealType)
	if decision.Remaining <= 0 {
		decision.Reason = ReasonQuotaExhausted
		return decision, credits, nil
	}

	decision.Allowed = true
	return decision, credits, nil
}
