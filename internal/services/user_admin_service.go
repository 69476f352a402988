package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/mealcredit/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidRole          = errors.New("invalid role")
	ErrAdminAlwaysApproved  = errors.New("admins cannot be unapproved")
	ErrCannotDeactivateSelf = errors.New("admins cannot deactivate their own account")
	ErrNoUserChanges        = errors.New("no user fields to update")
)

type AdminUserRepository interface {
	ExistsByNormalizedEmail(email string) (bool, error)
	FindByID(userID uint) (models.User, error)
	Create(user *models.User) error
	UpdateByID(userID uint, updates map[string]any) error
	ListUsers(filter models.UserFilter) ([]models.User, error)
}

type UserDeviceDeactivator interface {
	DeactivateByUserID(userID uint) error
}

type CreateUserInput struct {
	Name       string
	Department string
	Email      string
	Password   string
	Role       string
}

// UserUpdate carries optional field changes; nil means unchanged.
type UserUpdate struct {
	Name       *string
	Department *string
	Email      *string
	Role       *string
}

type UserAdminService struct {
	users   AdminUserRepository
	devices UserDeviceDeactivator
}

func NewUserAdminService(users AdminUserRepository, devices UserDeviceDeactivator) *UserAdminService {
	return &UserAdminService{users: users, devices: devices}
}

func (service *UserAdminService) List(filter models.UserFilter) ([]models.User, error) {
	return service.users.ListUsers(filter)
}

func (service *UserAdminService) Get(userID uint) (models.User, error) {
	user, err := service.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// Create adds an account on behalf of an admin. Admin-created staff are
// approved immediately. Email and password are optional for device-only users.
func (service *UserAdminService) Create(input CreateUserInput) (models.User, error) {
	name, err := NormalizePersonName(input.Name)
	if err != nil {
		return models.User{}, err
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.RoleStaff
	}
	if !models.ValidRole(role) {
		return models.User{}, ErrInvalidRole
	}

	user := models.User{
		Name:       name,
		Department: strings.TrimSpace(input.Department),
		Role:       role,
		IsActive:   true,
		IsApproved: true,
	}

	if strings.TrimSpace(input.Email) != "" || strings.TrimSpace(input.Password) != "" {
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
		user.Email = email
		user.PasswordHash = passwordHash
	}

	if err := service.users.Create(&user); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (service *UserAdminService) Update(userID uint, update UserUpdate) (models.User, error) {
	user, err := service.Get(userID)
	if err != nil {
		return models.User{}, err
	}

	changes := make(map[string]any)
	if update.Name != nil {
		name, err := NormalizePersonName(*update.Name)
		if err != nil {
			return models.User{}, err
		}
		changes["name"] = name
	}
	if update.Department != nil {
		changes["department"] = strings.TrimSpace(*update.Department)
	}
	if update.Email != nil {
		email := NormalizeAuthEmail(*update.Email)
		if email == "" {
			return models.User{}, ErrAuthCredentialsInvalid
		}
		if !strings.EqualFold(email, user.Email) {
			exists, err := service.users.ExistsByNormalizedEmail(email)
			if err != nil {
				return models.User{}, fmt.Errorf("check email: %w", err)
			}
			if exists {
				return models.User{}, ErrEmailTaken
			}
		}
		changes["email"] = email
	}
	if update.Role != nil {
		role := strings.TrimSpace(*update.Role)
		if !models.ValidRole(role) {
			return models.User{}, ErrInvalidRole
		}
		changes["role"] = role
		if role == models.RoleAdmin {
			changes["is_approved"] = true
		}
	}
	if len(changes) == 0 {
		return models.User{}, ErrNoUserChanges
	}

	if err := service.users.UpdateByID(userID, changes); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return service.Get(userID)
}

// SetApproval approves or revokes a staff account.
func (service *UserAdminService) SetApproval(userID uint, approved bool) (models.User, error) {
	user, err := service.Get(userID)
	if err != nil {
		return models.User{}, err
	}
	if user.IsAdmin() && !approved {
		return models.User{}, ErrAdminAlwaysApproved
	}
	if err := service.users.UpdateByID(userID, map[string]any{"is_approved": approved}); err != nil {
		return models.User{}, fmt.Errorf("update approval: %w", err)
	}
	user.IsApproved = approved
	return user, nil
}

// ToggleActive flips IsActive. Deactivation also releases the user's device.
func (service *UserAdminService) ToggleActive(actorID uint, userID uint) (models.User, error) {
	user, err := service.Get(userID)
	if err != nil {
		return models.User{}, err
	}
	if user.IsActive {
		return service.Deactivate(actorID, userID)
	}
	if err := service.users.UpdateByID(userID, map[string]any{"is_active": true}); err != nil {
		return models.User{}, fmt.Errorf("activate user: %w", err)
	}
	user.IsActive = true
	return user, nil
}

// Deactivate is the only deletion: the row stays so meal history keeps its owner.
func (service *UserAdminService) Deactivate(actorID uint, userID uint) (models.User, error) {
	if actorID == userID {
		return models.User{}, ErrCannotDeactivateSelf
	}
	user, err := service.Get(userID)
	if err != nil {
		return models.User{}, err
	}
	if err := service.users.UpdateByID(userID, map[string]any{"is_active": false}); err != nil {
		return models.User{}, fmt.Errorf("deactivate user: %w", err)
	}
	if err := service.devices.DeactivateByUserID(userID); err != nil {
		return models.User{}, fmt.Errorf("deactivate user devices: %w", err)
	}
	user.IsActive = false
	return user, nil
}
