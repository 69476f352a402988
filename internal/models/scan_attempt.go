package models

import "time"

type ScanAttempt struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	DeviceFingerprint string    `gorm:"not null" json:"device_fingerprint"`
	UserID            *uint     `json:"user_id,omitempty"`
	Success           bool      `gorm:"not null;default:false" json:"success"`
	Reason            string    `gorm:"not null;default:''" json:"reason,omitempty"`
	IPAddress         string    `gorm:"not null;default:''" json:"ip_address,omitempty"`
	AttemptedAt       time.Time `gorm:"not null" json:"attempted_at"`
}
