package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/services"
)

// RunRefreshCreditsCommand recomputes every credit holder's allotment for
// month ("YYYY-MM", empty for the current month).
func RunRefreshCreditsCommand(options Options, month string) error {
	options = options.withDefaults()
	clock := services.NewClock(options.Location)

	now := clock()
	year, monthOfYear := now.Year(), now.Month()
	if trimmed := strings.TrimSpace(month); trimmed != "" {
		parsed, err := time.Parse("2006-01", trimmed)
		if err != nil {
			return fmt.Errorf("invalid month %q, expected YYYY-MM", trimmed)
		}
		year, monthOfYear = parsed.Year(), parsed.Month()
	}

	database, closeDatabase, err := openDatabase(options)
	if err != nil {
		return err
	}
	defer closeDatabase()

	repositories := db.NewRepositories(database)
	schedule := services.NewScheduleService(repositories.Settings)
	credits := services.NewCreditService(
		repositories.Credits,
		repositories.MealRecords,
		repositories.Users,
		schedule,
		clock,
		options.Logger.Named("credits"),
	)

	report, err := credits.RefreshAll(year, monthOfYear)
	if err != nil {
		return fmt.Errorf("refresh credits: %w", err)
	}

	fmt.Fprintf(options.Stdout, "✅ Credits refreshed for %04d-%02d (%d work days)\n", report.Year, int(report.Month), report.TotalWorkDays)
	fmt.Fprintf(options.Stdout, "Refreshed users: %d\n", report.Refreshed)
	for _, failure := range report.Failed {
		fmt.Fprintf(options.Stdout, "Failed user %d: %s\n", failure.UserID, failure.Error)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d users could not be refreshed", len(report.Failed))
	}
	return nil
}
