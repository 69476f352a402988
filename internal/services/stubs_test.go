package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

func fixedClock(moment time.Time) Clock {
	return func() time.Time { return moment }
}

type userRepositoryStub struct {
	users  map[uint]models.User
	nextID uint
}

func newUserRepositoryStub(users ...models.User) *userRepositoryStub {
	stub := &userRepositoryStub{users: make(map[uint]models.User), nextID: 1}
	for _, user := range users {
		if user.ID == 0 {
			user.ID = stub.nextID
		}
		if user.ID >= stub.nextID {
			stub.nextID = user.ID + 1
		}
		stub.users[user.ID] = user
	}
	return stub
}

func (stub *userRepositoryStub) FindByID(userID uint) (models.User, error) {
	user, ok := stub.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (stub *userRepositoryStub) FindByNormalizedEmail(email string) (models.User, error) {
	for _, user := range stub.users {
		if strings.EqualFold(strings.TrimSpace(user.Email), email) && user.Email != "" {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (stub *userRepositoryStub) ExistsByNormalizedEmail(email string) (bool, error) {
	_, err := stub.FindByNormalizedEmail(email)
	return err == nil, nil
}

func (stub *userRepositoryStub) Create(user *models.User) error {
	if user.Email != "" {
		if exists, _ := stub.ExistsByNormalizedEmail(user.Email); exists {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = stub.nextID
	stub.nextID++
	stub.users[user.ID] = *user
	return nil
}

func (stub *userRepositoryStub) UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error {
	user, ok := stub.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	user.MustChangePassword = mustChangePassword
	stub.users[userID] = user
	return nil
}

func (stub *userRepositoryStub) UpdateByID(userID uint, updates map[string]any) error {
	user, ok := stub.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		switch column {
		case "name":
			user.Name = value.(string)
		case "department":
			user.Department = value.(string)
		case "email":
			user.Email = value.(string)
		case "role":
			user.Role = value.(string)
		case "is_active":
			user.IsActive = value.(bool)
		case "is_approved":
			user.IsApproved = value.(bool)
		default:
			return fmt.Errorf("unexpected column %s", column)
		}
	}
	stub.users[userID] = user
	return nil
}

func (stub *userRepositoryStub) ListUsers(filter models.UserFilter) ([]models.User, error) {
	users := make([]models.User, 0, len(stub.users))
	for _, user := range stub.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.OnlyActive && !user.IsActive {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (stub *userRepositoryStub) ListCreditHolders() ([]models.User, error) {
	users := make([]models.User, 0, len(stub.users))
	for _, user := range stub.users {
		if user.CanTakeMeals() {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (stub *userRepositoryStub) CountUsers() (int64, error) {
	return int64(len(stub.users)), nil
}

func (stub *userRepositoryStub) CountActiveUsers() (int64, error) {
	var count int64
	for _, user := range stub.users {
		if user.IsActive {
			count++
		}
	}
	return count, nil
}

type mealRecordStoreStub struct {
	mu      sync.Mutex
	records []models.MealRecord
	nextID  uint
}

func newMealRecordStoreStub() *mealRecordStoreStub {
	return &mealRecordStoreStub{nextID: 1}
}

func (stub *mealRecordStoreStub) seed(userID uint, mealType models.MealType, dates ...string) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, date := range dates {
		stub.records = append(stub.records, models.MealRecord{ID: stub.nextID, UserID: userID, MealType: mealType, Date: date})
		stub.nextID++
	}
}

func (stub *mealRecordStoreStub) countLocked(userID uint, mealType models.MealType, fromDate string, toDate string) int64 {
	var count int64
	for _, record := range stub.records {
		if record.UserID == userID && record.MealType == mealType && record.Date >= fromDate && record.Date < toDate {
			count++
		}
	}
	return count
}

func (stub *mealRecordStoreStub) ExistsForDate(userID uint, mealType models.MealType, date string) (bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, record := range stub.records {
		if record.UserID == userID && record.MealType == mealType && record.Date == date {
			return true, nil
		}
	}
	return false, nil
}

// InsertGuarded mirrors the unique index: a same-day duplicate is rejected
// even when SkipSameDate is set.
func (stub *mealRecordStoreStub) InsertGuarded(insert *models.MealInsert) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	record := &insert.Record
	for _, existing := range stub.records {
		if existing.UserID == record.UserID && existing.MealType == record.MealType && existing.Date == record.Date {
			return models.ErrMealAlreadyRecorded
		}
	}
	if stub.countLocked(record.UserID, record.MealType, insert.FromDate, insert.ToDate) >= int64(insert.Quota) {
		return models.ErrMealQuotaExhausted
	}
	record.ID = stub.nextID
	stub.nextID++
	stub.records = append(stub.records, *record)
	return nil
}

func (stub *mealRecordStoreStub) CountInRange(userID uint, mealType models.MealType, fromDate string, toDate string) (int64, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.countLocked(userID, mealType, fromDate, toDate), nil
}

func (stub *mealRecordStoreStub) ListForUser(userID uint, fromDate string, toDate string, limit int) ([]models.MealRecord, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	records := make([]models.MealRecord, 0)
	for _, record := range stub.records {
		if record.UserID == userID && record.Date >= fromDate && record.Date < toDate {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (stub *mealRecordStoreStub) CountByMealType(fromDate string, toDate string) (map[models.MealType]int64, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	counts := make(map[models.MealType]int64)
	for _, record := range stub.records {
		if record.Date >= fromDate && record.Date < toDate {
			counts[record.MealType]++
		}
	}
	return counts, nil
}

func (stub *mealRecordStoreStub) CountByUser(fromDate string, toDate string) ([]models.UserMealCount, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	type key struct {
		userID   uint
		mealType models.MealType
	}
	counts := make(map[key]int64)
	for _, record := range stub.records {
		if record.Date >= fromDate && record.Date < toDate {
			counts[key{record.UserID, record.MealType}]++
		}
	}
	rows := make([]models.UserMealCount, 0, len(counts))
	for k, count := range counts {
		rows = append(rows, models.UserMealCount{UserID: k.userID, MealType: k.mealType, Count: count})
	}
	return rows, nil
}

func (stub *mealRecordStoreStub) ListRecent(limit int) ([]models.RecentMeal, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	rows := make([]models.RecentMeal, 0)
	for index := len(stub.records) - 1; index >= 0 && len(rows) < limit; index-- {
		record := stub.records[index]
		rows = append(rows, models.RecentMeal{ID: record.ID, UserID: record.UserID, MealType: record.MealType, Date: record.Date})
	}
	return rows, nil
}

type creditKey struct {
	userID uint
	year   int
	month  int
}

type creditRepositoryStub struct {
	mu        sync.Mutex
	rows      map[creditKey]models.UserMealCredits
	nextID    uint
	upsertErr map[uint]error
	creates   int
}

func newCreditRepositoryStub() *creditRepositoryStub {
	return &creditRepositoryStub{rows: make(map[creditKey]models.UserMealCredits), nextID: 1, upsertErr: make(map[uint]error)}
}

func (stub *creditRepositoryStub) FindOrCreate(candidate models.UserMealCredits) (models.UserMealCredits, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	key := creditKey{candidate.UserID, candidate.Year, candidate.Month}
	if existing, ok := stub.rows[key]; ok {
		return existing, nil
	}
	candidate.ID = stub.nextID
	stub.nextID++
	stub.creates++
	stub.rows[key] = candidate
	return candidate, nil
}

func (stub *creditRepositoryStub) Upsert(credits *models.UserMealCredits) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if err := stub.upsertErr[credits.UserID]; err != nil {
		return err
	}
	key := creditKey{credits.UserID, credits.Year, credits.Month}
	if existing, ok := stub.rows[key]; ok {
		credits.ID = existing.ID
	} else {
		credits.ID = stub.nextID
		stub.nextID++
	}
	stub.rows[key] = *credits
	return nil
}

func (stub *creditRepositoryStub) ListByMonth(year int, month int) ([]models.UserMealCredits, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	rows := make([]models.UserMealCredits, 0)
	for key, row := range stub.rows {
		if key.year == year && key.month == month {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

type staticSchedule struct {
	schedule models.WorkSchedule
	err      error
}

func (stub staticSchedule) Load() (models.WorkSchedule, error) {
	return stub.schedule, stub.err
}

type settingRepositoryStub struct {
	values map[string]string
}

func newSettingRepositoryStub() *settingRepositoryStub {
	return &settingRepositoryStub{values: make(map[string]string)}
}

func (stub *settingRepositoryStub) FindByKey(key string) (models.SystemSetting, error) {
	value, ok := stub.values[key]
	if !ok {
		return models.SystemSetting{}, gorm.ErrRecordNotFound
	}
	return models.SystemSetting{Key: key, Value: value}, nil
}

func (stub *settingRepositoryStub) Upsert(key string, value string, _ string) error {
	stub.values[key] = value
	return nil
}

type deviceRepositoryStub struct {
	mu      sync.Mutex
	devices []models.Device
	touched []uint
}

func (stub *deviceRepositoryStub) FindActiveByFingerprint(fingerprint string) (models.Device, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, device := range stub.devices {
		if device.Fingerprint == fingerprint && device.IsActive {
			return device, nil
		}
	}
	return models.Device{}, gorm.ErrRecordNotFound
}

func (stub *deviceRepositoryStub) FindActiveByUserID(userID uint) (models.Device, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, device := range stub.devices {
		if device.UserID == userID && device.IsActive {
			return device, nil
		}
	}
	return models.Device{}, gorm.ErrRecordNotFound
}

func (stub *deviceRepositoryStub) Register(device *models.Device) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, existing := range stub.devices {
		if existing.Fingerprint == device.Fingerprint && existing.IsActive && existing.UserID != device.UserID {
			return models.ErrFingerprintBound
		}
	}
	for index := range stub.devices {
		if stub.devices[index].UserID == device.UserID {
			stub.devices[index].IsActive = false
		}
	}
	device.ID = uint(len(stub.devices) + 1)
	device.IsActive = true
	stub.devices = append(stub.devices, *device)
	return nil
}

func (stub *deviceRepositoryStub) TouchLastUsed(deviceID uint, _ time.Time) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.touched = append(stub.touched, deviceID)
	return nil
}

func (stub *deviceRepositoryStub) DeactivateByUserID(userID uint) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for index := range stub.devices {
		if stub.devices[index].UserID == userID {
			stub.devices[index].IsActive = false
		}
	}
	return nil
}

type scanStoreStub struct {
	mu       sync.Mutex
	attempts []models.ScanAttempt
	prunes   int
}

func (stub *scanStoreStub) Record(_ context.Context, attempt models.ScanAttempt) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.attempts = append(stub.attempts, attempt)
	return nil
}

func (stub *scanStoreStub) CountSince(_ context.Context, fingerprint string, since time.Time) (int64, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	var count int64
	for _, attempt := range stub.attempts {
		if attempt.DeviceFingerprint == fingerprint && attempt.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (stub *scanStoreStub) PruneBefore(_ context.Context, cutoff time.Time) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.prunes++
	kept := stub.attempts[:0]
	for _, attempt := range stub.attempts {
		if !attempt.AttemptedAt.Before(cutoff) {
			kept = append(kept, attempt)
		}
	}
	stub.attempts = kept
	return nil
}

func (stub *scanStoreStub) reasons() []string {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	reasons := make([]string, 0, len(stub.attempts))
	for _, attempt := range stub.attempts {
		reasons = append(reasons, attempt.Reason)
	}
	return reasons
}
