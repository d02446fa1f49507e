package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionLevel identifies a client's plan tier
type SubscriptionLevel string

const (
	// SubscriptionBasic is the free tier
	SubscriptionBasic SubscriptionLevel = "basic"
	// SubscriptionStarter is the entry paid tier
	SubscriptionStarter SubscriptionLevel = "starter"
	// SubscriptionProfessional is the mid paid tier
	SubscriptionProfessional SubscriptionLevel = "professional"
	// SubscriptionEnterprise is the top paid tier
	SubscriptionEnterprise SubscriptionLevel = "enterprise"
)

// legacy plan names still present in older rows
var legacyPlanMapping = map[SubscriptionLevel]SubscriptionLevel{
	"business": SubscriptionProfessional,
	"pro":      SubscriptionProfessional,
}

// Normalize maps legacy or unknown plan names onto a known tier
func (l SubscriptionLevel) Normalize() SubscriptionLevel {
	if mapped, ok := legacyPlanMapping[l]; ok {
		return mapped
	}
	switch l {
	case SubscriptionBasic, SubscriptionStarter, SubscriptionProfessional, SubscriptionEnterprise:
		return l
	}
	return SubscriptionBasic
}

// SubscriptionFeatures describes the limits attached to a tier
type SubscriptionFeatures struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Scanners      int     `json:"scanners"`
	ScansPerMonth int     `json:"scans_per_month"`
	WhiteLabel    bool    `json:"white_label"`
	APIAccess     bool    `json:"api_access"`
	ClientPortal  bool    `json:"client_portal"`
}

var subscriptionFeatures = map[SubscriptionLevel]SubscriptionFeatures{
	SubscriptionBasic:        {Name: "Basic", Price: 0, Scanners: 1, ScansPerMonth: 10},
	SubscriptionStarter:      {Name: "Starter", Price: 59, Scanners: 1, ScansPerMonth: 50, WhiteLabel: true, ClientPortal: true},
	SubscriptionProfessional: {Name: "Professional", Price: 99, Scanners: 3, ScansPerMonth: 500, WhiteLabel: true, APIAccess: true, ClientPortal: true},
	SubscriptionEnterprise:   {Name: "Enterprise", Price: 149, Scanners: 10, ScansPerMonth: 1000, WhiteLabel: true, APIAccess: true, ClientPortal: true},
}

// Features returns the feature set for a tier, falling back to basic
func (l SubscriptionLevel) Features() SubscriptionFeatures {
	return subscriptionFeatures[l.Normalize()]
}

// Client represents a registered client business
type Client struct {
	ID                 uint              `json:"id" gorm:"primaryKey"`
	UserID             uint              `json:"user_id" gorm:"index;not null"`
	User               *User             `json:"-" gorm:"foreignKey:UserID"`
	BusinessName       string            `json:"business_name" gorm:"not null"`
	BusinessDomain     string            `json:"business_domain" gorm:"not null"`
	ContactEmail       string            `json:"contact_email" gorm:"not null"`
	ContactPhone       string            `json:"contact_phone"`
	SubscriptionLevel  SubscriptionLevel `json:"subscription_level" gorm:"default:basic"`
	SubscriptionStatus string            `json:"subscription_status" gorm:"default:active"`
	APIKey             string            `json:"api_key" gorm:"unique;not null"`
	Active             bool              `json:"active" gorm:"default:true"`
	CreatedBy          uint              `json:"created_by"`
	UpdatedBy          uint              `json:"updated_by"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `json:"-" gorm:"index"`

	Customization *Customization `json:"customization,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	Scanners      []Scanner      `json:"scanners,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

// ScannerLimit returns how many scanners this client may deploy
func (c *Client) ScannerLimit() int {
	return c.SubscriptionLevel.Features().Scanners
}

// MonthlyScanLimit returns how many scans this client may run per month
func (c *Client) MonthlyScanLimit() int {
	return c.SubscriptionLevel.Features().ScansPerMonth
}
