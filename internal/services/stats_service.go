package services

import (
	"fmt"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
)

const (
	dashboardRecentLimit = 10
	historyDefaultLimit  = 100
	scanStatsRecentLimit = 50
)

type StatsMealRepository interface {
	CountByMealType(fromDate string, toDate string) (map[models.MealType]int64, error)
	ListRecent(limit int) ([]models.RecentMeal, error)
	ListForUser(userID uint, fromDate string, toDate string, limit int) ([]models.MealRecord, error)
}

type StatsUserRepository interface {
	CountUsers() (int64, error)
	CountActiveUsers() (int64, error)
}

type StatsScanRepository interface {
	ListRecent(limit int) ([]models.ScanAttempt, error)
	CountByReasonSince(since time.Time) ([]models.ReasonCount, error)
}

type MealTotals struct {
	Breakfast int64 `json:"breakfast"`
	Lunch     int64 `json:"lunch"`
}

type DashboardStats struct {
	Date        string              `json:"date"`
	Today       MealTotals          `json:"today"`
	Month       MealTotals          `json:"month"`
	TotalUsers  int64               `json:"total_users"`
	ActiveUsers int64               `json:"active_users"`
	Recent      []models.RecentMeal `json:"recent"`
}

type ScanStats struct {
	Since    time.Time            `json:"since"`
	ByReason []models.ReasonCount `json:"by_reason"`
	Recent   []models.ScanAttempt `json:"recent"`
}

type StatsService struct {
	meals StatsMealRepository
	users StatsUserRepository
	scans StatsScanRepository
	clock Clock
}

func NewStatsService(meals StatsMealRepository, users StatsUserRepository, scans StatsScanRepository, clock Clock) *StatsService {
	return &StatsService{meals: meals, users: users, scans: scans, clock: clock}
}

func (service *StatsService) Dashboard() (DashboardStats, error) {
	now := service.clock()
	today := mealDateKey(now)
	tomorrow := mealDateKey(now.AddDate(0, 0, 1))

	todayCounts, err := service.meals.CountByMealType(today, tomorrow)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count today's meals: %w", err)
	}
	fromDate, toDate := MonthDateRange(now.Year(), now.Month())
	monthCounts, err := service.meals.CountByMealType(fromDate, toDate)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count month's meals: %w", err)
	}

	totalUsers, err := service.users.CountUsers()
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count users: %w", err)
	}
	activeUsers, err := service.users.CountActiveUsers()
	if err != nil {
		return DashboardStats{}, fmt.Errorf("count active users: %w", err)
	}

	recent, err := service.meals.ListRecent(dashboardRecentLimit)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list recent meals: %w", err)
	}

	return DashboardStats{
		Date:        today,
		Today:       MealTotals{Breakfast: todayCounts[models.MealBreakfast], Lunch: todayCounts[models.MealLunch]},
		Month:       MealTotals{Breakfast: monthCounts[models.MealBreakfast], Lunch: monthCounts[models.MealLunch]},
		TotalUsers:  totalUsers,
		ActiveUsers: activeUsers,
		Recent:      recent,
	}, nil
}

// History lists a user's meals of one month, newest first.
func (service *StatsService) History(userID uint, year int, month time.Month, limit int) ([]models.MealRecord, error) {
	if month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	if limit <= 0 || limit > historyDefaultLimit {
		limit = historyDefaultLimit
	}
	fromDate, toDate := MonthDateRange(year, month)
	return service.meals.ListForUser(userID, fromDate, toDate, limit)
}

// ScanStats summarizes scan attempts within the retention window.
func (service *StatsService) ScanStats() (ScanStats, error) {
	since := service.clock().UTC().Add(-ScanAttemptRetention)
	byReason, err := service.scans.CountByReasonSince(since)
	if err != nil {
		return ScanStats{}, fmt.Errorf("count scan reasons: %w", err)
	}
	recent, err := service.scans.ListRecent(scanStatsRecentLimit)
	if err != nil {
		return ScanStats{}, fmt.Errorf("list scan attempts: %w", err)
	}
	return ScanStats{Since: since, ByReason: byReason, Recent: recent}, nil
}
