package models

import (
	"time"

	"gorm.io/gorm"
)

// Setting represents a key-value setting in the system
type Setting struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Key       string         `json:"key" gorm:"uniqueIndex;not null"`
	Value     string         `json:"value" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// VersionedSetting represents a versioned key-value setting
// Used for settings that require versioning/history
type VersionedSetting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"index;not null"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	Version   int       `json:"version" gorm:"not null"`
	Metadata  string    `json:"metadata" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the Setting model
func (Setting) TableName() string {
	return "settings"
}

// TableName returns the table name for the VersionedSetting model
func (VersionedSetting) TableName() string {
	return "versioned_settings"
}

// SystemSettings represents the global platform settings
type SystemSettings struct {
	PlatformName             string `json:"platform_name"`
	SupportEmail             string `json:"support_email"`
	EnableRegistration       bool   `json:"enable_registration"`
	RequireEmailVerification bool   `json:"require_email_verification"`
	DefaultSubscriptionLevel string `json:"default_subscription_level"`
	ScanRetentionDays        int    `json:"scan_retention_days"`
	LeadRetentionDays        int    `json:"lead_retention_days"`
	EnableAudit              bool   `json:"enable_audit"`
	LogLevel                 string `json:"log_level"`
	MaintenanceMode          bool   `json:"maintenance_mode"`
	MaintenanceMessage       string `json:"maintenance_message"`
}

// UserSettings represents user-specific portal preferences
type UserSettings struct {
	UITheme              string `json:"ui_theme"`
	ScansPerPage         int    `json:"scans_per_page"`
	LeadsPerPage         int    `json:"leads_per_page"`
	DefaultView          string `json:"default_view"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	RefreshInterval      int    `json:"refresh_interval"` // In seconds
}

// DefaultSystemSettings returns the default platform settings
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		PlatformName:             "CybrScan",
		EnableRegistration:       true,
		RequireEmailVerification: false,
		DefaultSubscriptionLevel: "basic",
		ScanRetentionDays:        365,
		LeadRetentionDays:        730,
		EnableAudit:              true,
		LogLevel:                 "info",
	}
}

// DefaultUserSettings returns the default user settings
func DefaultUserSettings() UserSettings {
	return UserSettings{
		UITheme:              "system",
		ScansPerPage:         20,
		LeadsPerPage:         20,
		DefaultView:          "dashboard",
		NotificationsEnabled: true,
		RefreshInterval:      30,
	}
}
