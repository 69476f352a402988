package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/i18n"
	"github.com/terraincognita07/mealcredit/internal/security"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultAuthTokenTTL  = 7 * 24 * time.Hour
	rememberAuthTokenTTL = 30 * 24 * time.Hour

	loginAttemptLimit  = 8
	loginAttemptWindow = 15 * time.Minute
)

// Config wires a Handler. ScanStore and Clock are optional; the SQL audit
// table and the wall clock in Location are used when they are nil.
type Config struct {
	Database       *gorm.DB
	SecretKey      string
	Location       *time.Location
	I18n           *i18n.Manager
	Logger         *zap.Logger
	CookieSecure   bool
	ScanStore      services.ScanAttemptStore
	ScanRateLimit  int
	ScanRateWindow time.Duration
	QRTokenTTL     time.Duration
	Clock          services.Clock
}

type Handler struct {
	secretKey    []byte
	location     *time.Location
	cookieSecure bool
	i18n         *i18n.Manager
	logger       *zap.Logger
	clock        services.Clock
	cookieCodec  *secureCookieCodec
	loginLimiter *attemptLimiter

	repositories    *db.Repositories
	authService     *services.AuthService
	userAdmin       *services.UserAdminService
	deviceService   *services.DeviceService
	scheduleService *services.ScheduleService
	creditService   *services.CreditService
	mealService     *services.MealService
	scanService     *services.ScanService
	statsService    *services.StatsService
	reportService   *services.ReportService
	qrCodec         *security.QRTokenCodec
}

func NewHandler(config Config) (*Handler, error) {
	if config.Database == nil {
		return nil, errors.New("database is required")
	}
	if config.I18n == nil {
		return nil, errors.New("i18n manager is required")
	}
	if strings.TrimSpace(config.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Clock == nil {
		config.Clock = services.NewClock(config.Location)
	}

	cookieCodec, err := newSecureCookieCodec([]byte(config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("init cookie codec: %w", err)
	}

	handler := &Handler{
		secretKey:    []byte(config.SecretKey),
		location:     config.Location,
		cookieSecure: config.CookieSecure,
		i18n:         config.I18n,
		logger:       config.Logger,
		clock:        config.Clock,
		cookieCodec:  cookieCodec,
		loginLimiter: newAttemptLimiter(),
	}
	if err := handler.withDependencies(config); err != nil {
		return nil, err
	}
	return handler, nil
}
