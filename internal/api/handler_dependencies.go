package api

import (
	"fmt"
	"time"

	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/security"
	"github.com/terraincognita07/mealcredit/internal/services"
)

func (handler *Handler) withDependencies(config Config) error {
	repositories := db.NewRepositories(config.Database)
	handler.repositories = repositories

	qrCodec, err := security.NewQRTokenCodec(config.SecretKey, config.QRTokenTTL)
	if err != nil {
		return fmt.Errorf("init qr codec: %w", err)
	}
	qrCodec.SetClock(func() time.Time { return handler.clock() })
	handler.qrCodec = qrCodec

	scanStore := config.ScanStore
	if scanStore == nil {
		scanStore = services.NewRepositoryScanStore(repositories.ScanAttempts)
	}

	handler.authService = services.NewAuthService(repositories.Users)
	handler.userAdmin = services.NewUserAdminService(repositories.Users, repositories.Devices)
	handler.deviceService = services.NewDeviceService(repositories.Devices, repositories.Users, handler.clock)
	handler.scheduleService = services.NewScheduleService(repositories.Settings)
	handler.creditService = services.NewCreditService(
		repositories.Credits,
		repositories.MealRecords,
		repositories.Users,
		handler.scheduleService,
		handler.clock,
		handler.logger.Named("credits"),
	)
	handler.mealService = services.NewMealService(
		repositories.Users,
		repositories.MealRecords,
		handler.creditService,
		handler.scheduleService,
		handler.clock,
	)
	handler.scanService = services.NewScanService(
		services.NewScanGuard(scanStore, config.ScanRateLimit, config.ScanRateWindow),
		qrCodec,
		repositories.Devices,
		handler.mealService,
		handler.clock,
		handler.logger.Named("scan"),
	)
	handler.statsService = services.NewStatsService(repositories.MealRecords, repositories.Users, repositories.ScanAttempts, handler.clock)
	handler.reportService = services.NewReportService(
		repositories.Users,
		repositories.Credits,
		repositories.MealRecords,
		handler.scheduleService,
		handler.logger.Named("reports"),
	)
	return nil
}
