package services

import (
	"errors"
	"testing"

	"github.com/terraincognita07/mealcredit/internal/models"
)

func stringPtr(value string) *string {
	return &value
}

func TestUserAdminServiceCreate(t *testing.T) {
	users := newUserRepositoryStub(models.User{ID: 1, Name: "Existing", Email: "taken@example.com"})
	service := NewUserAdminService(users, &deviceRepositoryStub{})

	deviceOnly, err := service.Create(CreateUserInput{Name: "Cook", Department: "Kitchen"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if deviceOnly.Email != "" || deviceOnly.PasswordHash != "" {
		t.Fatalf("expected a user without credentials, got %+v", deviceOnly)
	}
	if deviceOnly.Role != models.RoleStaff || !deviceOnly.IsApproved || !deviceOnly.IsActive {
		t.Fatalf("expected approved active staff, got %+v", deviceOnly)
	}

	withLogin, err := service.Create(CreateUserInput{Name: "Clerk", Email: "clerk@example.com", Password: "StrongPass1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if withLogin.Email != "clerk@example.com" || withLogin.PasswordHash == "" || withLogin.Role != models.RoleAdmin {
		t.Fatalf("expected admin with credentials, got %+v", withLogin)
	}

	if _, err := service.Create(CreateUserInput{Name: "X", Role: "owner"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := service.Create(CreateUserInput{Name: "X", Email: "taken@example.com", Password: "StrongPass1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := service.Create(CreateUserInput{Name: "X", Email: "x@example.com"}); !errors.Is(err, ErrAuthCredentialsInvalid) {
		t.Fatalf("expected ErrAuthCredentialsInvalid without password, got %v", err)
	}
}

func TestUserAdminServiceUpdate(t *testing.T) {
	users := newUserRepositoryStub(
		models.User{ID: 1, Name: "Staff", Email: "staff@example.com", Role: models.RoleStaff, IsActive: true},
		models.User{ID: 2, Name: "Other", Email: "other@example.com", Role: models.RoleStaff, IsActive: true},
	)
	service := NewUserAdminService(users, &deviceRepositoryStub{})

	updated, err := service.Update(1, UserUpdate{Name: stringPtr(" New  Name "), Role: stringPtr(models.RoleAdmin)})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if updated.Name != "New Name" || updated.Role != models.RoleAdmin || !updated.IsApproved {
		t.Fatalf("expected renamed approved admin, got %+v", updated)
	}

	if _, err := service.Update(1, UserUpdate{Email: stringPtr("OTHER@example.com")}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := service.Update(1, UserUpdate{}); !errors.Is(err, ErrNoUserChanges) {
		t.Fatalf("expected ErrNoUserChanges, got %v", err)
	}
	if _, err := service.Update(99, UserUpdate{Name: stringPtr("X")}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserAdminServiceSetApproval(t *testing.T) {
	users := newUserRepositoryStub(
		models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin, IsActive: true, IsApproved: true},
		models.User{ID: 2, Name: "Staff", Role: models.RoleStaff, IsActive: true},
	)
	service := NewUserAdminService(users, &deviceRepositoryStub{})

	approved, err := service.SetApproval(2, true)
	if err != nil {
		t.Fatalf("SetApproval() unexpected error: %v", err)
	}
	if !approved.IsApproved || !users.users[2].IsApproved {
		t.Fatalf("expected staff to be approved, got %+v", approved)
	}
	if _, err := service.SetApproval(1, false); !errors.Is(err, ErrAdminAlwaysApproved) {
		t.Fatalf("expected ErrAdminAlwaysApproved, got %v", err)
	}
}

func TestUserAdminServiceDeactivateReleasesDevices(t *testing.T) {
	users := newUserRepositoryStub(
		models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin, IsActive: true, IsApproved: true},
		models.User{ID: 2, Name: "Staff", Role: models.RoleStaff, IsActive: true, IsApproved: true},
	)
	devices := &deviceRepositoryStub{devices: []models.Device{{ID: 1, UserID: 2, Fingerprint: "fp", IsActive: true}}}
	service := NewUserAdminService(users, devices)

	if _, err := service.Deactivate(1, 1); !errors.Is(err, ErrCannotDeactivateSelf) {
		t.Fatalf("expected ErrCannotDeactivateSelf, got %v", err)
	}

	toggled, err := service.ToggleActive(1, 2)
	if err != nil {
		t.Fatalf("ToggleActive() unexpected error: %v", err)
	}
	if toggled.IsActive || users.users[2].IsActive {
		t.Fatalf("expected user to be deactivated, got %+v", toggled)
	}
	if devices.devices[0].IsActive {
		t.Fatal("expected device to be released")
	}

	reactivated, err := service.ToggleActive(1, 2)
	if err != nil {
		t.Fatalf("ToggleActive() unexpected error: %v", err)
	}
	if !reactivated.IsActive {
		t.Fatal("expected user to be reactivated")
	}
}

func TestUserAdminServiceListFilters(t *testing.T) {
	users := newUserRepositoryStub(
		models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin, IsActive: true},
		models.User{ID: 2, Name: "Staff", Role: models.RoleStaff, IsActive: true},
		models.User{ID: 3, Name: "Gone", Role: models.RoleStaff},
	)
	service := NewUserAdminService(users, &deviceRepositoryStub{})

	listed, err := service.List(models.UserFilter{Role: models.RoleStaff, OnlyActive: true})
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != 2 {
		t.Fatalf("expected only active staff, got %+v", listed)
	}
}
