package models

import (
	"time"

	"gorm.io/gorm"
)

// DeployStatus represents the lifecycle state of a deployed scanner
type DeployStatus string

const (
	// DeployStatusPending means widget assets have not been generated yet
	DeployStatusPending DeployStatus = "pending"
	// DeployStatusDeployed means widget assets are live
	DeployStatusDeployed DeployStatus = "deployed"
	// DeployStatusInactive means the scanner is disabled
	DeployStatusInactive DeployStatus = "inactive"
)

// Scanner represents a white-labeled scanner widget deployed for a client
type Scanner struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	ClientID        uint           `json:"client_id" gorm:"index;not null"`
	Client          *Client        `json:"-" gorm:"foreignKey:ClientID"`
	UID             string         `json:"uid" gorm:"column:scanner_uid;unique;not null"`
	Name            string         `json:"name" gorm:"not null"`
	Subdomain       string         `json:"subdomain" gorm:"unique"`
	Domain          string         `json:"domain"`
	APIKey          string         `json:"api_key" gorm:"unique;not null"`
	DeployStatus    DeployStatus   `json:"deploy_status" gorm:"default:pending"`
	DeployPath      string         `json:"deploy_path"`
	TemplateVersion string         `json:"template_version"`
	DeployedAt      *time.Time     `json:"deployed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsDeployed reports whether the scanner is serving its widget
func (s *Scanner) IsDeployed() bool {
	return s.DeployStatus == DeployStatusDeployed
}
