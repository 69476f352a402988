package cli

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/security"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const temporaryPasswordLength = 12

// RunResetPasswordCommand replaces the user's password with a temporary one
// that must be changed at the next login.
func RunResetPasswordCommand(options Options, email string) error {
	options = options.withDefaults()

	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(normalizedEmail); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}

	database, closeDatabase, err := openDatabase(options)
	if err != nil {
		return err
	}
	defer closeDatabase()

	users := db.NewUserRepository(database)
	user, err := users.FindByNormalizedEmail(normalizedEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", normalizedEmail)
		}
		return fmt.Errorf("load user: %w", err)
	}

	temporaryPassword, err := security.TemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return fmt.Errorf("generate temporary password: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(temporaryPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash temporary password: %w", err)
	}

	if err := users.UpdatePassword(user.ID, string(passwordHash), true); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	options.Logger.Info("password reset from cli", zap.Uint("user_id", user.ID))

	fmt.Fprintln(options.Stdout, "✅ Password reset successful")
	fmt.Fprintf(options.Stdout, "Temporary password: %s\n", temporaryPassword)
	fmt.Fprintln(options.Stdout, "User must change password on next login.")
	return nil
}
