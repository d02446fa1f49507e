package models

import "time"

// Customization holds a client's widget branding and email text
type Customization struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	ClientID         uint      `json:"client_id" gorm:"uniqueIndex;not null"`
	PrimaryColor     string    `json:"primary_color" gorm:"default:#02054c"`
	SecondaryColor   string    `json:"secondary_color" gorm:"default:#35a310"`
	ButtonColor      string    `json:"button_color" gorm:"default:#28a745"`
	LogoURL          string    `json:"logo_url"`
	FaviconURL       string    `json:"favicon_url"`
	EmailSubject     string    `json:"email_subject"`
	EmailIntro       string    `json:"email_intro"`
	EmailFooter      string    `json:"email_footer"`
	DefaultScanTypes string    `json:"default_scan_types"` // JSON array of scan type names
	CSSOverride      string    `json:"css_override"`
	UpdatedBy        uint      `json:"updated_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
