package api

import "github.com/terraincognita07/mealcredit/internal/models"

type credentialsInput struct {
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RememberMe bool   `json:"remember_me" form:"remember_me"`
}

type registerInput struct {
	Name            string `json:"name" form:"name"`
	Department      string `json:"department" form:"department"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type takeMealInput struct {
	MealType string            `json:"meal_type"`
	Device   models.DeviceInfo `json:"device"`
}

type scanInput struct {
	Token  string            `json:"token"`
	Device models.DeviceInfo `json:"device"`
}

type issueQRInput struct {
	UserID   uint   `json:"user_id"`
	MealType string `json:"meal_type"`
}

type verifyQRInput struct {
	Token string `json:"token"`
}

type forceMealInput struct {
	UserID   uint   `json:"user_id"`
	MealType string `json:"meal_type"`
}

type refreshCreditsInput struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type createUserInput struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

type updateUserInput struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Email      *string `json:"email"`
	Role       *string `json:"role"`
}

type approvalInput struct {
	Approved bool `json:"approved"`
}
