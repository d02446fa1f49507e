package models

import (
	"time"
)

// PaginationRequest represents pagination parameters for API requests
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"gte=1" example:"1"`
	PageSize int `json:"page_size" form:"page_size" binding:"gte=1,lte=100" example:"10"`
}

// SetDefaults sets default values for the pagination request
func (p *PaginationRequest) SetDefaults() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 10
	} else if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// GetOffset returns the offset for the pagination request
func (p *PaginationRequest) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// SortRequest represents sorting parameters for API requests
type SortRequest struct {
	SortBy    string `json:"sort_by" form:"sort_by" example:"created_at"`
	SortOrder string `json:"sort_order" form:"sort_order" binding:"omitempty,oneof=asc desc" example:"desc"`
}

// SetDefaults sets default values for the sort request
func (s *SortRequest) SetDefaults(defaultSortBy string) {
	if s.SortBy == "" {
		s.SortBy = defaultSortBy
	}
	if s.SortOrder == "" {
		s.SortOrder = "asc"
	}
}

// FilterRequest represents filtering parameters for API requests
type FilterRequest struct {
	Search    string     `json:"search" form:"search" example:"acme"`
	Status    string     `json:"status" form:"status" example:"completed"`
	StartDate *time.Time `json:"start_date" form:"start_date" format:"date-time"`
	EndDate   *time.Time `json:"end_date" form:"end_date" format:"date-time"`
}

// -----------------------
// Authentication Requests
// -----------------------

// RegisterRequest represents a user registration request
// @description Data required for registering a new user account.
type RegisterRequest struct {
	// Username is the unique login name.
	// required: true
	Username string `json:"username" binding:"required,min=3,max=64" example:"acme-admin"`

	// Email is the user's email address.
	// required: true
	Email string `json:"email" binding:"required,email" example:"user@example.com"`

	// Password is the user's desired password (min 8 characters).
	// required: true
	Password string `json:"password" binding:"required,min=8" example:"StrongP@ssw0rd!"`

	// Name is the user's display name.
	Name string `json:"name" example:"Jordan Doe"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	// Username or email used to log in.
	Username string `json:"username" binding:"required" example:"acme-admin"`

	Password string `json:"password" binding:"required" example:"StrongP@ssw0rd!"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// PasswordResetRequest asks for a reset token to be emailed
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest redeems a reset token
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// AdminCreateUserRequest represents an admin creating a user
type AdminCreateUserRequest struct {
	Username string   `json:"username" binding:"required,min=3,max=64"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles" binding:"omitempty,dive,oneof=admin client guest"`
	Active   *bool    `json:"active"`
}

// AdminUpdateUserRequest represents an admin updating a user
type AdminUpdateUserRequest struct {
	Email  string   `json:"email" binding:"omitempty,email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles" binding:"omitempty,dive,oneof=admin client guest"`
	Active *bool    `json:"active"`
}

// -----------------------
// Client Requests
// -----------------------

// ClientCreateRequest registers a new client business
type ClientCreateRequest struct {
	UserID            uint   `json:"user_id" binding:"required"`
	BusinessName      string `json:"business_name" binding:"required,min=2,max=128"`
	BusinessDomain    string `json:"business_domain" binding:"required,fqdn"`
	ContactEmail      string `json:"contact_email" binding:"required,email"`
	ContactPhone      string `json:"contact_phone"`
	SubscriptionLevel string `json:"subscription_level" binding:"omitempty,oneof=basic starter professional enterprise"`
}

// ClientUpdateRequest updates an existing client business
type ClientUpdateRequest struct {
	BusinessName       string `json:"business_name" binding:"omitempty,min=2,max=128"`
	BusinessDomain     string `json:"business_domain" binding:"omitempty,fqdn"`
	ContactEmail       string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone       string `json:"contact_phone"`
	SubscriptionLevel  string `json:"subscription_level" binding:"omitempty,oneof=basic starter professional enterprise business pro"`
	SubscriptionStatus string `json:"subscription_status" binding:"omitempty,oneof=active suspended cancelled"`
	Active             *bool  `json:"active"`
}

// CustomizationUpdateRequest updates widget branding
type CustomizationUpdateRequest struct {
	PrimaryColor     string   `json:"primary_color" binding:"omitempty"`
	SecondaryColor   string   `json:"secondary_color" binding:"omitempty"`
	ButtonColor      string   `json:"button_color" binding:"omitempty"`
	LogoURL          string   `json:"logo_url" binding:"omitempty,url"`
	FaviconURL       string   `json:"favicon_url" binding:"omitempty,url"`
	EmailSubject     string   `json:"email_subject" binding:"omitempty,max=200"`
	EmailIntro       string   `json:"email_intro"`
	EmailFooter      string   `json:"email_footer"`
	DefaultScanTypes []string `json:"default_scan_types" binding:"omitempty"`
	CSSOverride      string   `json:"css_override"`
}

// -----------------------
// Scanner Requests
// -----------------------

// ScannerCreateRequest deploys a new scanner widget
type ScannerCreateRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=64"`
	Subdomain string `json:"subdomain" binding:"omitempty,hostname_rfc1123"`
	Domain    string `json:"domain" binding:"omitempty,fqdn"`
}

// ScannerUpdateRequest updates a deployed scanner
type ScannerUpdateRequest struct {
	Name         string `json:"name" binding:"omitempty,min=2,max=64"`
	Subdomain    string `json:"subdomain" binding:"omitempty,hostname_rfc1123"`
	Domain       string `json:"domain" binding:"omitempty,fqdn"`
	DeployStatus string `json:"deploy_status" binding:"omitempty,oneof=pending deployed inactive"`
}

// -----------------------
// Scan Requests
// -----------------------

// ScanSubmitRequest is a widget scan submission with lead capture
type ScanSubmitRequest struct {
	Target      string   `json:"target" binding:"required,max=2048"`
	ScanTypes   []string `json:"scan_types" binding:"omitempty"`
	LeadName    string   `json:"name" binding:"omitempty,max=128"`
	LeadEmail   string   `json:"email" binding:"required,email"`
	LeadPhone   string   `json:"phone" binding:"omitempty,max=32"`
	LeadCompany string   `json:"company" binding:"omitempty,max=128"`
	CompanySize string   `json:"company_size" binding:"omitempty,oneof=1-10 11-50 51-200 201-1000 1000+"`
}

// LeadUpdateRequest updates sales follow-up state on a lead
type LeadUpdateRequest struct {
	Status string `json:"status" binding:"omitempty,oneof=new contacted qualified converted"`
	Notes  string `json:"notes" binding:"omitempty,max=4000"`
}
