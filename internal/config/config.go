package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minSecretKeyLength = 32

var (
	ErrSecretKeyMissing     = errors.New("SECRET_KEY is required")
	ErrSecretKeyPlaceholder = errors.New("SECRET_KEY uses an insecure placeholder")
	ErrSecretKeyTooShort    = fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
)

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production": {},
	"changeme":                {},
	"secret":                  {},
	"your-secret-key":         {},
}

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Timezone        string        `mapstructure:"TZ"`
	DBDriver        string        `mapstructure:"DB_DRIVER"`
	DBPath          string        `mapstructure:"DB_PATH"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	SecretKey       string        `mapstructure:"SECRET_KEY"`
	CookieSecure    bool          `mapstructure:"COOKIE_SECURE"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	ScanRateLimit   int           `mapstructure:"SCAN_RATE_LIMIT"`
	ScanRateWindow  time.Duration `mapstructure:"SCAN_RATE_WINDOW"`
	QRTokenTTL      time.Duration `mapstructure:"QR_TOKEN_TTL"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFormat       string        `mapstructure:"LOG_FORMAT"`
	DefaultLanguage string        `mapstructure:"DEFAULT_LANGUAGE"`
	LocalesDir      string        `mapstructure:"LOCALES_DIR"`
}

var defaults = map[string]any{
	"PORT":             "8080",
	"TZ":               "Europe/Istanbul",
	"DB_DRIVER":        "sqlite",
	"DB_PATH":          filepath.Join("data", "mealcredit.db"),
	"DATABASE_URL":     "",
	"SECRET_KEY":       "",
	"COOKIE_SECURE":    false,
	"REDIS_URL":        "",
	"SCAN_RATE_LIMIT":  10,
	"SCAN_RATE_WINDOW": "5m",
	"QR_TOKEN_TTL":     "30m",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"DEFAULT_LANGUAGE": "tr",
	"LOCALES_DIR":      "",
}

// Load reads the environment with an optional .env file in the working
// directory. Environment variables win over the file.
func Load() (*Config, error) {
	return LoadFrom(".")
}

func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
}

func (cfg *Config) Validate() error {
	if err := ValidateSecretKey(cfg.SecretKey); err != nil {
		return err
	}
	switch cfg.DBDriver {
	case "sqlite":
		if cfg.DBPath == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.ScanRateLimit <= 0 {
		return errors.New("SCAN_RATE_LIMIT must be positive")
	}
	if cfg.ScanRateWindow <= 0 {
		return errors.New("SCAN_RATE_WINDOW must be positive")
	}
	if cfg.QRTokenTTL <= 0 {
		return errors.New("QR_TOKEN_TTL must be positive")
	}
	return nil
}

// DSN is the connection string handed to db.Open for the configured driver.
func (cfg *Config) DSN() string {
	if cfg.DBDriver == "postgres" {
		return cfg.DatabaseURL
	}
	return cfg.DBPath
}

// Location loads the service time zone, falling back to UTC.
func (cfg *Config) Location() (*time.Location, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid TZ %q: %w", cfg.Timezone, err)
	}
	return location, nil
}

func ValidateSecretKey(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrSecretKeyMissing
	}
	if _, insecure := insecureSecretKeys[strings.ToLower(secret)]; insecure {
		return ErrSecretKeyPlaceholder
	}
	if len(secret) < minSecretKeyLength {
		return ErrSecretKeyTooShort
	}
	return nil
}
