package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/terraincognita07/mealcredit/internal/api"
	"github.com/terraincognita07/mealcredit/internal/cli"
	"github.com/terraincognita07/mealcredit/internal/config"
	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/i18n"
	"github.com/terraincognita07/mealcredit/internal/logging"
	"github.com/terraincognita07/mealcredit/internal/redisstore"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
)

const serviceName = "mealcredit"

const usage = `usage:
  mealcredit                              start the server
  mealcredit reset-password <email>       issue a temporary password
  mealcredit refresh-credits [YYYY-MM]    recompute monthly credits
  mealcredit create-admin <email> <name>  create an administrator (ADMIN_PASSWORD or prompt)`

var errUnknownCommand = errors.New("unknown command")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config init failed: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	location, err := cfg.Location()
	if err != nil {
		logger.Warn("invalid TZ, falling back to UTC", zap.Error(err))
	}
	time.Local = location

	if len(os.Args) > 1 {
		if err := runCommand(cfg, location, logger, os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			if errors.Is(err, errUnknownCommand) {
				fmt.Fprintln(os.Stderr, usage)
			}
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg, location, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func runCommand(cfg *config.Config, location *time.Location, logger *zap.Logger, args []string) error {
	options := cli.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DSN(),
		Location: location,
		Logger:   logger.Named("cli"),
	}

	switch strings.TrimSpace(args[0]) {
	case "reset-password":
		if len(args) != 2 {
			return errors.New("usage: mealcredit reset-password <email>")
		}
		return cli.RunResetPasswordCommand(options, args[1])
	case "refresh-credits":
		month := ""
		if len(args) > 1 {
			month = args[1]
		}
		return cli.RunRefreshCreditsCommand(options, month)
	case "create-admin":
		if len(args) < 3 {
			return errors.New("usage: mealcredit create-admin <email> <name>")
		}
		return cli.RunCreateAdminCommand(options, args[1], strings.Join(args[2:], " "), os.Getenv("ADMIN_PASSWORD"))
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, args[0])
	}
}

func runServer(cfg *config.Config, location *time.Location, logger *zap.Logger) error {
	app, cleanup, err := buildApp(context.Background(), cfg, location, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("mealcredit listening",
		zap.String("addr", "0.0.0.0:"+cfg.Port),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("tz", location.String()),
		zap.Bool("redis", cfg.RedisURL != ""),
	)
	return app.Listen(":" + cfg.Port)
}

// buildApp opens every backing store and wires the routes. cleanup closes
// the stores in reverse order.
func buildApp(ctx context.Context, cfg *config.Config, location *time.Location, logger *zap.Logger) (*fiber.App, func(), error) {
	cleanups := make([]func(), 0, 2)
	cleanup := func() {
		for index := len(cleanups) - 1; index >= 0; index-- {
			cleanups[index]()
		}
	}

	database, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("database init failed: %w", err)
	}
	cleanups = append(cleanups, func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	i18nManager, err := i18n.NewManager(cfg.DefaultLanguage, cfg.LocalesDir)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("i18n init failed: %w", err)
	}

	var scanStore services.ScanAttemptStore
	if cfg.RedisURL != "" {
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() {
			_ = client.Close()
		})
		archive := services.NewRepositoryScanStore(db.NewScanAttemptRepository(database))
		scanStore = redisstore.NewScanAttemptStore(client, services.ScanAttemptRetention, redisstore.WithArchive(archive))
	}

	handler, err := api.NewHandler(api.Config{
		Database:       database,
		SecretKey:      cfg.SecretKey,
		Location:       location,
		I18n:           i18nManager,
		Logger:         logger,
		CookieSecure:   cfg.CookieSecure,
		ScanStore:      scanStore,
		ScanRateLimit:  cfg.ScanRateLimit,
		ScanRateWindow: cfg.ScanRateWindow,
		QRTokenTTL:     cfg.QRTokenTTL,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("handler init failed: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "MealCredit",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(api.RequestLogger(logger.Named("http")))
	app.Use(compress.New())
	app.Use(handler.LanguageMiddleware)
	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)

	return app, cleanup, nil
}
