package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/terraincognita07/mealcredit/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tell a command where the database lives and where to print.
type Options struct {
	Driver   string
	DSN      string
	Location *time.Location
	Logger   *zap.Logger
	Stdout   io.Writer
	Stdin    *os.File
}

func (options Options) withDefaults() Options {
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	return options
}

func openDatabase(options Options) (*gorm.DB, func(), error) {
	database, err := db.Open(options.Driver, options.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("database init failed: %w", err)
	}
	closeDatabase := func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return database, closeDatabase, nil
}
