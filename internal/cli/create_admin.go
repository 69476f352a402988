package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/mealcredit/internal/db"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
	"go.uber.org/zap"
)

// RunCreateAdminCommand seeds an administrator account. An empty password
// is read from the terminal without echo.
func RunCreateAdminCommand(options Options, email string, name string, password string) error {
	options = options.withDefaults()
	if strings.TrimSpace(email) == "" || strings.TrimSpace(name) == "" {
		return errors.New("email and name are required")
	}

	if password == "" {
		fmt.Fprint(options.Stdout, "Admin password: ")
		entered, err := readPasswordNoEcho(options.Stdin)
		fmt.Fprintln(options.Stdout)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(entered)
	}

	database, closeDatabase, err := openDatabase(options)
	if err != nil {
		return err
	}
	defer closeDatabase()

	repositories := db.NewRepositories(database)
	admins := services.NewUserAdminService(repositories.Users, repositories.Devices)
	user, err := admins.Create(services.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return fmt.Errorf("user %s already exists", strings.ToLower(strings.TrimSpace(email)))
		case errors.Is(err, services.ErrWeakPassword):
			return errors.New("password needs at least 8 characters with upper, lower and digit, and must not contain the admin's name or email")
		default:
			return fmt.Errorf("create admin: %w", err)
		}
	}
	options.Logger.Info("admin created from cli", zap.Uint("user_id", user.ID))

	fmt.Fprintf(options.Stdout, "✅ Admin %s created (id %d)\n", user.Email, user.ID)
	return nil
}
