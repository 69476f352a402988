package models

import "time"

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	Department         string    `gorm:"not null;default:''" json:"department"`
	Email              string    `gorm:"not null;default:''" json:"email,omitempty"`
	PasswordHash       string    `gorm:"not null;default:''" json:"-"`
	Role               string    `gorm:"not null;default:staff" json:"role"`
	IsActive           bool      `gorm:"not null" json:"is_active"`
	IsApproved         bool      `gorm:"not null;default:false" json:"is_approved"`
	MustChangePassword bool      `gorm:"not null;default:false" json:"must_change_password"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (user User) IsAdmin() bool {
	return user.Role == RoleAdmin
}

// CanTakeMeals reports whether the user passes the identity gates of the
// eligibility engine. Admins are always treated as approved.
func (user User) CanTakeMeals() bool {
	return user.IsActive && (user.IsApproved || user.IsAdmin())
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// UserFilter narrows user listings. Empty fields match everything.
type UserFilter struct {
	Role       string
	Department string
	Search     string
	OnlyActive bool
	Pending    bool
}
