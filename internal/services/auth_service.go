package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/mealcredit/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken              = errors.New("email already registered")
	ErrUserNotFound            = errors.New("user not found")
	ErrAccountInactive         = errors.New("account is deactivated")
	ErrCurrentPasswordInvalid  = errors.New("current password invalid")
	ErrPasswordUnchanged       = errors.New("new password must differ from the current one")
	errPasswordHashUnavailable = errors.New("password hash unavailable")
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(email string) (bool, error)
	FindByNormalizedEmail(email string) (models.User, error)
	FindByID(userID uint) (models.User, error)
	Create(user *models.User) error
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
}

type RegistrationInput struct {
	Name       string
	Department string
	Email      string
	Password   string
}

type AuthService struct {
	users AuthUserRepository
}

func NewAuthService(users AuthUserRepository) *AuthService {
	return &AuthService{users: users}
}

// Register creates a self-service staff account awaiting approval.
func (service *AuthService) Register(input RegistrationInput) (models.User, error) {
	name, err := NormalizePersonName(input.Name)
	if err != nil {
		return models.User{}, err
	}
	email, password, err := NormalizeCredentialsInput(input.Email, input.Password)
	if err != nil {
		return models.User{}, err
	}
	if err := ValidatePasswordStrength(password, name, email); err != nil {
		return models.User{}, err
	}

	exists, err := service.users.ExistsByNormalizedEmail(email)
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return models.User{}, ErrEmailTaken
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:         name,
		Department:   strings.TrimSpace(input.Department),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleStaff,
		IsActive:     true,
		IsApproved:   false,
	}
	if err := service.users.Create(&user); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords both
// yield ErrAuthCredentialsInvalid.
func (service *AuthService) Authenticate(emailRaw string, passwordRaw string) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if !user.IsActive {
		return models.User{}, ErrAccountInactive
	}
	return user, nil
}

func (service *AuthService) FindByID(userID uint) (models.User, error) {
	user, err := service.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (service *AuthService) ChangePassword(user models.User, currentPassword string, newPassword string) error {
	if user.PasswordHash == "" {
		return errPasswordHashUnavailable
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(currentPassword))) != nil {
		return ErrCurrentPasswordInvalid
	}

	password := strings.TrimSpace(newPassword)
	if err := ValidatePasswordStrength(password, user.Name, user.Email); err != nil {
		return err
	}
	if password == strings.TrimSpace(currentPassword) {
		return ErrPasswordUnchanged
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return service.users.UpdatePassword(user.ID, passwordHash, false)
}

func hashPassword(password string) (string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(passwordHash), nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}
