package db

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func newTestRepositories(t *testing.T) (*Repositories, *gorm.DB) {
	t.Helper()
	database := openTestSQLite(t, filepath.Join(t.TempDir(), "mealcredit-repos.db"))
	return NewRepositories(database), database
}

func createTestUser(t *testing.T, repos *Repositories, email string) models.User {
	t.Helper()
	user := models.User{
		Name:       "Test User",
		Email:      email,
		Role:       models.RoleStaff,
		IsActive:   true,
		IsApproved: true,
	}
	if err := repos.Users.Create(&user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func TestUserEmailIndexIsCaseInsensitive(t *testing.T) {
	repos, _ := newTestRepositories(t)
	createTestUser(t, repos, "staff@example.com")

	duplicate := models.User{Name: "Dup", Email: " STAFF@example.com", Role: models.RoleStaff, IsActive: true}
	err := repos.Users.Create(&duplicate)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation for normalized duplicate email, got %v", err)
	}

	deviceOnlyA := models.User{Name: "Device A", Role: models.RoleStaff, IsActive: true}
	deviceOnlyB := models.User{Name: "Device B", Role: models.RoleStaff, IsActive: true}
	if err := repos.Users.Create(&deviceOnlyA); err != nil {
		t.Fatalf("create first email-less user: %v", err)
	}
	if err := repos.Users.Create(&deviceOnlyB); err != nil {
		t.Fatalf("expected several email-less users to be allowed, got %v", err)
	}
}

func TestMealRecordUniqueIndexRejectsSecondRecordSameDay(t *testing.T) {
	repos, database := newTestRepositories(t)
	user := createTestUser(t, repos, "meal@example.com")

	record := models.MealRecord{UserID: user.ID, MealType: models.MealLunch, Date: "2024-03-05", TakenAt: time.Now()}
	if err := database.Create(&record).Error; err != nil {
		t.Fatalf("create first record: %v", err)
	}
	second := models.MealRecord{UserID: user.ID, MealType: models.MealLunch, Date: "2024-03-05", TakenAt: time.Now()}
	if err := database.Create(&second).Error; !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestInsertGuardedEnforcesSameDayAndQuota(t *testing.T) {
	repos, _ := newTestRepositories(t)
	user := createTestUser(t, repos, "quota@example.com")

	insert := func(date string, quota int, skipSameDate bool) error {
		return repos.MealRecords.InsertGuarded(&models.MealInsert{
			Record:       models.MealRecord{UserID: user.ID, MealType: models.MealBreakfast, Date: date, TakenAt: time.Now()},
			Quota:        quota,
			FromDate:     "2024-03-01",
			ToDate:       "2024-04-01",
			SkipSameDate: skipSameDate,
		})
	}

	if err := insert("2024-03-04", 2, false); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert("2024-03-04", 2, false); !errors.Is(err, models.ErrMealAlreadyRecorded) {
		t.Fatalf("expected models.ErrMealAlreadyRecorded, got %v", err)
	}
	if err := insert("2024-03-04", 2, true); !errors.Is(err, models.ErrMealAlreadyRecorded) {
		t.Fatalf("expected unique index to reject skipped same-day check, got %v", err)
	}
	if err := insert("2024-03-05", 2, false); err != nil {
		t.Fatalf("second day insert: %v", err)
	}
	if err := insert("2024-03-06", 2, false); !errors.Is(err, models.ErrMealQuotaExhausted) {
		t.Fatalf("expected models.ErrMealQuotaExhausted, got %v", err)
	}

	count, err := repos.MealRecords.CountInRange(user.ID, models.MealBreakfast, "2024-03-01", "2024-04-01")
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
}

func TestInsertGuardedParallelCallsKeepOneRecord(t *testing.T) {
	repos, _ := newTestRepositories(t)
	user := createTestUser(t, repos, "parallel@example.com")

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repos.MealRecords.InsertGuarded(&models.MealInsert{
				Record:   models.MealRecord{UserID: user.ID, MealType: models.MealLunch, Date: "2024-03-05", TakenAt: time.Now()},
				Quota:    22,
				FromDate: "2024-03-01",
				ToDate:   "2024-04-01",
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrMealAlreadyRecorded):
		default:
			t.Fatalf("unexpected insert error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful insert, got %d", succeeded)
	}
}

func TestCreditFindOrCreateKeepsFirstRow(t *testing.T) {
	repos, _ := newTestRepositories(t)
	user := createTestUser(t, repos, "credit@example.com")

	first, err := repos.Credits.FindOrCreate(models.UserMealCredits{
		UserID: user.ID, Year: 2024, Month: 3, TotalWorkDays: 26, BreakfastCredits: 26, LunchCredits: 26,
	})
	if err != nil {
		t.Fatalf("first find or create: %v", err)
	}
	second, err := repos.Credits.FindOrCreate(models.UserMealCredits{
		UserID: user.ID, Year: 2024, Month: 3, TotalWorkDays: 1, BreakfastCredits: 1, LunchCredits: 1,
	})
	if err != nil {
		t.Fatalf("second find or create: %v", err)
	}
	if second.ID != first.ID || second.TotalWorkDays != 26 {
		t.Fatalf("expected existing row to win, first=%+v second=%+v", first, second)
	}

	refreshed := models.UserMealCredits{UserID: user.ID, Year: 2024, Month: 3, TotalWorkDays: 21, BreakfastCredits: 21, LunchCredits: 21}
	if err := repos.Credits.Upsert(&refreshed); err != nil {
		t.Fatalf("upsert credits: %v", err)
	}
	stored, err := repos.Credits.Find(user.ID, 2024, 3)
	if err != nil {
		t.Fatalf("find credits: %v", err)
	}
	if stored.ID != first.ID || stored.TotalWorkDays != 21 || stored.LunchCredits != 21 {
		t.Fatalf("expected upsert to overwrite the existing row, got %+v", stored)
	}
}

func TestDeviceRegisterKeepsOneActiveDevicePerUser(t *testing.T) {
	repos, _ := newTestRepositories(t)
	owner := createTestUser(t, repos, "owner@example.com")
	other := createTestUser(t, repos, "other@example.com")
	now := time.Now()

	first := models.Device{UserID: owner.ID, Fingerprint: "fp-1", LastUsedAt: now}
	if err := repos.Devices.Register(&first); err != nil {
		t.Fatalf("register first device: %v", err)
	}
	second := models.Device{UserID: owner.ID, Fingerprint: "fp-2", LastUsedAt: now}
	if err := repos.Devices.Register(&second); err != nil {
		t.Fatalf("register second device: %v", err)
	}

	active, err := repos.Devices.FindActiveByUserID(owner.ID)
	if err != nil {
		t.Fatalf("find active device: %v", err)
	}
	if active.Fingerprint != "fp-2" {
		t.Fatalf("expected fp-2 to be active, got %q", active.Fingerprint)
	}

	stolen := models.Device{UserID: other.ID, Fingerprint: "fp-2", LastUsedAt: now}
	if err := repos.Devices.Register(&stolen); !errors.Is(err, models.ErrFingerprintBound) {
		t.Fatalf("expected models.ErrFingerprintBound, got %v", err)
	}

	again := models.Device{UserID: owner.ID, Fingerprint: "fp-1", LastUsedAt: now}
	if err := repos.Devices.Register(&again); err != nil {
		t.Fatalf("re-register first device: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected re-registration to reuse row %d, got %d", first.ID, again.ID)
	}
	devices, err := repos.Devices.ListByUserID(owner.ID)
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	activeCount := 0
	for _, device := range devices {
		if device.IsActive {
			activeCount++
		}
	}
	if len(devices) != 2 || activeCount != 1 {
		t.Fatalf("expected 2 devices with 1 active, got %d devices and %d active", len(devices), activeCount)
	}
}

func TestSettingUpsertOverwritesValue(t *testing.T) {
	repos, _ := newTestRepositories(t)

	if err := repos.Settings.Upsert(models.WorkScheduleSettingKey, `{"a":1}`, "first"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repos.Settings.Upsert(models.WorkScheduleSettingKey, `{"a":2}`, "second"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	setting, err := repos.Settings.FindByKey(models.WorkScheduleSettingKey)
	if err != nil {
		t.Fatalf("find setting: %v", err)
	}
	if setting.Value != `{"a":2}` {
		t.Fatalf("expected overwritten value, got %q", setting.Value)
	}
}

func TestScanAttemptCountSinceHonoursWindow(t *testing.T) {
	repos, _ := newTestRepositories(t)
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{-10 * time.Minute, -4 * time.Minute, -time.Minute} {
		attempt := models.ScanAttempt{DeviceFingerprint: "fp", AttemptedAt: now.Add(offset)}
		if err := repos.ScanAttempts.Create(&attempt); err != nil {
			t.Fatalf("create attempt: %v", err)
		}
	}

	count, err := repos.ScanAttempts.CountSince("fp", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts in window, got %d", count)
	}

	if err := repos.ScanAttempts.DeleteBefore(now.Add(-5 * time.Minute)); err != nil {
		t.Fatalf("delete old attempts: %v", err)
	}
	recent, err := repos.ScanAttempts.ListRecent(10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 attempts after prune, got %d", len(recent))
	}
}

func TestCreditLockQueryRequestsRowLock(t *testing.T) {
	_, database := newTestRepositories(t)

	statement := creditLockQuery(database.Session(&gorm.Session{DryRun: true}), 1, 2024, 3).
		Take(&models.UserMealCredits{}).Statement
	forClause, ok := statement.Clauses["FOR"]
	if !ok {
		t.Fatal("expected a FOR clause on the credit lock query")
	}
	locking, ok := forClause.Expression.(clause.Locking)
	if !ok || locking.Strength != clause.LockingStrengthUpdate {
		t.Fatalf("expected FOR UPDATE locking, got %#v", forClause.Expression)
	}
}

func TestInsertGuardedLastCreditAcrossDates(t *testing.T) {
	repos, _ := newTestRepositories(t)
	user := createTestUser(t, repos, "last-credit@example.com")
	if _, err := repos.Credits.FindOrCreate(models.UserMealCredits{
		UserID: user.ID, Year: 2024, Month: 3, TotalWorkDays: 1, BreakfastCredits: 1, LunchCredits: 1,
	}); err != nil {
		t.Fatalf("seed credits: %v", err)
	}

	dates := []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07"}
	var wg sync.WaitGroup
	results := make(chan error, len(dates))
	for _, date := range dates {
		wg.Add(1)
		go func(date string) {
			defer wg.Done()
			results <- repos.MealRecords.InsertGuarded(&models.MealInsert{
				Record:       models.MealRecord{UserID: user.ID, MealType: models.MealBreakfast, Date: date, TakenAt: time.Now(), Forced: true},
				Quota:        1,
				FromDate:     "2024-03-01",
				ToDate:       "2024-04-01",
				CreditYear:   2024,
				CreditMonth:  3,
				SkipSameDate: true,
			})
		}(date)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrMealQuotaExhausted):
		default:
			t.Fatalf("unexpected insert error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one forced meal to take the last credit, got %d", succeeded)
	}

	used, err := repos.MealRecords.CountInRange(user.ID, models.MealBreakfast, "2024-03-01", "2024-04-01")
	if err != nil {
		t.Fatalf("count meals: %v", err)
	}
	if used != 1 {
		t.Fatalf("expected one stored breakfast, got %d", used)
	}
}
