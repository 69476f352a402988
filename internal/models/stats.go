package models

import "time"

// UserMealCount is a per-user, per-meal aggregate.
type UserMealCount struct {
	UserID   uint     `gorm:"column:user_id"`
	MealType MealType `gorm:"column:meal_type"`
	Count    int64    `gorm:"column:count"`
}

// RecentMeal is a meal record joined with its owner.
type RecentMeal struct {
	ID         uint      `gorm:"column:id" json:"id"`
	UserID     uint      `gorm:"column:user_id" json:"user_id"`
	UserName   string    `gorm:"column:user_name" json:"user_name"`
	Department string    `gorm:"column:department" json:"department"`
	MealType   MealType  `gorm:"column:meal_type" json:"meal_type"`
	Date       string    `gorm:"column:date" json:"date"`
	TakenAt    time.Time `gorm:"column:taken_at" json:"taken_at"`
	Forced     bool      `gorm:"column:forced" json:"forced"`
}

type ReasonCount struct {
	Reason string `gorm:"column:reason" json:"reason"`
	Count  int64  `gorm:"column:count" json:"count"`
}
