package models

import "time"

type Device struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Fingerprint      string    `gorm:"not null;index" json:"fingerprint"`
	UserAgent        string    `gorm:"not null;default:''" json:"user_agent,omitempty"`
	ScreenResolution string    `gorm:"not null;default:''" json:"screen_resolution,omitempty"`
	Timezone         string    `gorm:"not null;default:''" json:"timezone,omitempty"`
	IsActive         bool      `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	LastUsedAt       time.Time `gorm:"not null" json:"last_used_at"`
}

// DeviceInfo is the client environment a fingerprint is derived from.
type DeviceInfo struct {
	UserAgent        string `json:"user_agent"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
}
