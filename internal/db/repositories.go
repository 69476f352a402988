package db

import "gorm.io/gorm"

type Repositories struct {
	Users        *UserRepository
	Devices      *DeviceRepository
	MealRecords  *MealRecordRepository
	Credits      *CreditRepository
	Settings     *SettingRepository
	ScanAttempts *ScanAttemptRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(database),
		Devices:      NewDeviceRepository(database),
		MealRecords:  NewMealRecordRepository(database),
		Credits:      NewCreditRepository(database),
		Settings:     NewSettingRepository(database),
		ScanAttempts: NewScanAttemptRepository(database),
	}
}
