package models

import (
	"time"
)

// --- Standard API Response Structures ---

// SuccessResponse represents a standard successful API response structure.
type SuccessResponse struct {
	Success bool             `json:"success" example:"true"`
	Data    interface{}      `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Meta    MetadataResponse `json:"meta"`
}

// ErrorInfo represents the details of an API error.
// @description Detailed information about an error that occurred during an API request.
type ErrorInfo struct {
	// Code is a machine-readable error code identifying the specific error type.
	// required: true
	// example: RESOURCE_NOT_FOUND
	Code string `json:"code" example:"RESOURCE_NOT_FOUND"`

	// Message is a human-readable description of the error.
	// required: true
	// example: The requested scanner was not found.
	Message string `json:"message" example:"The requested scanner was not found."`

	// Details provides optional additional information about the error, such as validation failures.
	// example: {"field": "target", "error": "must be a fully qualified domain"}
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse represents a standard error API response structure.
// @description Standard structure for returning errors from the API.
type ErrorResponse struct {
	Success bool             `json:"success" example:"false"`
	Error   ErrorInfo        `json:"error"`
	Meta    MetadataResponse `json:"meta"`
}

// PaginationResponse represents pagination metadata for API responses
type PaginationResponse struct {
	Page       int `json:"page" example:"1"`
	PageSize   int `json:"page_size" example:"10"`
	TotalPages int `json:"total_pages" example:"5"`
	TotalItems int `json:"total_items" example:"42"`
}

// MetadataResponse represents common metadata for API responses
type MetadataResponse struct {
	Timestamp  time.Time           `json:"timestamp" example:"2023-10-27T10:30:00Z"`
	RequestID  string              `json:"request_id,omitempty" example:"req-12345"`
	Pagination *PaginationResponse `json:"pagination,omitempty"`
}

// PaginatedResponse is a generic structure for paginated list responses.
type PaginatedResponse struct {
	Success bool             `json:"success" example:"true"`
	Data    interface{}      `json:"data"` // Should hold the slice of items
	Meta    MetadataResponse `json:"meta"`
}

// -----------------------
// Authentication Responses
// -----------------------

// TokenResponse represents a token response for login and refresh operations
// @description Contains the JWT access and refresh tokens along with user details.
type TokenResponse struct {
	AccessToken  string    `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string    `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresIn    int       `json:"expires_in" example:"3600"` // seconds
	ExpiresAt    time.Time `json:"expires_at" example:"2023-10-27T11:00:00Z"`
	UserID       uint      `json:"user_id" example:"1"`
	Roles        []string  `json:"roles" example:"client"`
}

// UserResponse represents a user response, excluding sensitive information like password.
// @description Detailed information about a user account.
type UserResponse struct {
	ID            uint      `json:"id" example:"1"`
	Username      string    `json:"username" example:"acme-admin"`
	Email         string    `json:"email" example:"user@example.com"`
	Name          string    `json:"name" example:"Jordan Doe"`
	Roles         []string  `json:"roles" example:"client"`
	LastLogin     time.Time `json:"last_login,omitempty" example:"2023-10-27T10:00:00Z"`
	EmailVerified bool      `json:"email_verified" example:"true"`
	Active        bool      `json:"active" example:"true"`
	CreatedAt     time.Time `json:"created_at" example:"2023-01-15T09:30:00Z"`
	UpdatedAt     time.Time `json:"updated_at" example:"2023-10-26T15:45:00Z"`
}

// NewUserResponse builds a UserResponse from a User model
func NewUserResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Name:          u.Name,
		Roles:         u.GetRoleNames(),
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.LastLogin != nil {
		resp.LastLogin = *u.LastLogin
	}
	return resp
}

// -----------------------
// Scan Responses
// -----------------------

// ScanSubmitResponse acknowledges a widget scan submission
type ScanSubmitResponse struct {
	ScanUID string     `json:"scan_uid" example:"scan_9f86d081884c"`
	Status  ScanStatus `json:"status" example:"queued"`
	Target  string     `json:"target" example:"example.com"`
}

// ScanStatusResponse reports where a scan is in its lifecycle
type ScanStatusResponse struct {
	ScanUID     string     `json:"scan_uid" example:"scan_9f86d081884c"`
	Status      ScanStatus `json:"status" example:"running"`
	Progress    int        `json:"progress" example:"60"` // percent of phases finished
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ScanResultResponse carries the scored outcome of a completed scan
type ScanResultResponse struct {
	ScanUID              string         `json:"scan_uid" example:"scan_9f86d081884c"`
	Target               string         `json:"target" example:"example.com"`
	Status               ScanStatus     `json:"status" example:"completed"`
	SecurityScore        int            `json:"security_score" example:"72"`
	RiskLevel            string         `json:"risk_level" example:"Medium"`
	RiskColor            string         `json:"risk_color" example:"#17a2b8"`
	Grade                string         `json:"grade" example:"C"`
	VulnerabilitiesFound int            `json:"vulnerabilities_found" example:"4"`
	RecommendationsCount int            `json:"recommendations_count" example:"6"`
	DurationMs           int64          `json:"duration_ms" example:"4180"`
	Results              interface{}    `json:"results,omitempty"`
	ComponentScores      map[string]int `json:"component_scores,omitempty"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
}

// ScanProgressEvent is one streamed progress update for a running scan
type ScanProgressEvent struct {
	ScanUID   string     `json:"scan_uid"`
	Status    ScanStatus `json:"status"`
	Phase     string     `json:"phase,omitempty"`
	Message   string     `json:"message,omitempty"`
	Progress  int        `json:"progress"`
	Timestamp time.Time  `json:"timestamp"`
}

// -----------------------
// Dashboard Responses
// -----------------------

// AdminDashboardResponse aggregates platform-wide counts for the admin view
type AdminDashboardResponse struct {
	TotalUsers     int64      `json:"total_users"`
	TotalClients   int64      `json:"total_clients"`
	ActiveClients  int64      `json:"active_clients"`
	TotalScanners  int64      `json:"total_scanners"`
	TotalScans     int64      `json:"total_scans"`
	TotalLeads     int64      `json:"total_leads"`
	ScansThisMonth int64      `json:"scans_this_month"`
	AverageScore   float64    `json:"average_score"`
	RecentScans    []Scan     `json:"recent_scans"`
	RecentAudit    []AuditLog `json:"recent_audit"`
}

// ClientDashboardResponse aggregates a single client's activity
type ClientDashboardResponse struct {
	Client         *Client `json:"client"`
	ScannerCount   int64   `json:"scanner_count"`
	ScannerLimit   int     `json:"scanner_limit"`
	TotalScans     int64   `json:"total_scans"`
	ScansThisMonth int64   `json:"scans_this_month"`
	MonthlyLimit   int     `json:"monthly_limit"`
	TotalLeads     int64   `json:"total_leads"`
	NewLeads       int64   `json:"new_leads"`
	AverageScore   float64 `json:"average_score"`
	RecentScans    []Scan  `json:"recent_scans"`
}
