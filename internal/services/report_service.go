package services

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var ErrReportGenerate = errors.New("monthly report generation failed")

const monthlyReportSheet = "Meals"

type ReportUserRepository interface {
	ListUsers(filter models.UserFilter) ([]models.User, error)
}

type ReportCreditRepository interface {
	ListByMonth(year int, month int) ([]models.UserMealCredits, error)
}

type ReportMealRepository interface {
	CountByUser(fromDate string, toDate string) ([]models.UserMealCount, error)
}

// MonthlyReportRow is one user's line of the monthly report.
type MonthlyReportRow struct {
	User               models.User
	TotalWorkDays      int
	BreakfastCredits   int
	LunchCredits       int
	BreakfastUsed      int
	LunchUsed          int
	BreakfastRemaining int
	LunchRemaining     int
}

type ReportService struct {
	users    ReportUserRepository
	credits  ReportCreditRepository
	meals    ReportMealRepository
	schedule ScheduleProvider
	logger   *zap.Logger
}

func NewReportService(
	users ReportUserRepository,
	credits ReportCreditRepository,
	meals ReportMealRepository,
	schedule ScheduleProvider,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{users: users, credits: credits, meals: meals, schedule: schedule, logger: logger}
}

// MonthlyRows lists every current credit holder (admins included) plus any
// other user with a stored allotment or a meal in the month. Users without a
// stored row are shown with the schedule's work-day count, without creating
// one.
func (service *ReportService) MonthlyRows(year int, month time.Month) ([]MonthlyReportRow, error) {
	if month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}

	schedule, err := service.schedule.Load()
	if err != nil {
		return nil, err
	}
	users, err := service.users.ListUsers(models.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	stored, err := service.credits.ListByMonth(year, int(month))
	if err != nil {
		return nil, fmt.Errorf("list monthly credits: %w", err)
	}
	fromDate, toDate := MonthDateRange(year, month)
	counts, err := service.meals.CountByUser(fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("count meals: %w", err)
	}

	creditsByUser := make(map[uint]models.UserMealCredits, len(stored))
	for _, credits := range stored {
		creditsByUser[credits.UserID] = credits
	}
	usedByUser := make(map[uint]map[models.MealType]int, len(counts))
	for _, count := range counts {
		if usedByUser[count.UserID] == nil {
			usedByUser[count.UserID] = make(map[models.MealType]int, 2)
		}
		usedByUser[count.UserID][count.MealType] = int(count.Count)
	}

	workDays := CountWorkDays(year, month, schedule.WorkDays)
	rows := make([]MonthlyReportRow, 0, len(users))
	for _, user := range users {
		credits, hasCredits := creditsByUser[user.ID]
		used, hasMeals := usedByUser[user.ID]
		if !hasCredits && !hasMeals && !user.CanTakeMeals() {
			continue
		}
		if !hasCredits {
			credits = models.UserMealCredits{TotalWorkDays: workDays, BreakfastCredits: workDays, LunchCredits: workDays}
		}

		row := MonthlyReportRow{
			User:             user,
			TotalWorkDays:    credits.TotalWorkDays,
			BreakfastCredits: credits.BreakfastCredits,
			LunchCredits:     credits.LunchCredits,
			BreakfastUsed:    used[models.MealBreakfast],
			LunchUsed:        used[models.MealLunch],
		}
		row.BreakfastRemaining = remainingCredits(row.BreakfastCredits, row.BreakfastUsed)
		row.LunchRemaining = remainingCredits(row.LunchCredits, row.LunchUsed)
		rows = append(rows, row)
	}
	return rows, nil
}

// MonthlyWorkbook renders MonthlyRows as an XLSX file and proposes a file name.
func (service *ReportService) MonthlyWorkbook(year int, month time.Month) (*bytes.Buffer, string, error) {
	rows, err := service.MonthlyRows(year, month)
	if err != nil {
		return nil, "", err
	}

	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(monthlyReportSheet)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrReportGenerate, err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrReportGenerate, err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrReportGenerate, err)
	}

	headers := []string{
		"Name", "Department", "Work days",
		"Breakfast credits", "Breakfast used", "Breakfast remaining",
		"Lunch credits", "Lunch used", "Lunch remaining",
	}
	for column, header := range headers {
		cellName, _ := excelize.CoordinatesToCellName(column+1, 1)
		file.SetCellValue(monthlyReportSheet, cellName, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	file.SetCellStyle(monthlyReportSheet, "A1", lastHeader, headerStyle)
	file.SetColWidth(monthlyReportSheet, "A", "B", 24)
	file.SetColWidth(monthlyReportSheet, "C", "I", 18)

	for offset, row := range rows {
		values := []any{
			row.User.Name, row.User.Department, row.TotalWorkDays,
			row.BreakfastCredits, row.BreakfastUsed, row.BreakfastRemaining,
			row.LunchCredits, row.LunchUsed, row.LunchRemaining,
		}
		for column, value := range values {
			cellName, _ := excelize.CoordinatesToCellName(column+1, offset+2)
			file.SetCellValue(monthlyReportSheet, cellName, value)
		}
	}

	buffer := new(bytes.Buffer)
	if err := file.Write(buffer); err != nil {
		service.logger.Error("monthly report write failed", zap.Int("year", year), zap.Int("month", int(month)), zap.Error(err))
		return nil, "", ErrReportGenerate
	}
	return buffer, fmt.Sprintf("meal-report-%04d-%02d.xlsx", year, int(month)), nil
}
