package models

import (
	"time"

	"gorm.io/gorm"
)

// ScanStatus represents the lifecycle state of a scan
type ScanStatus string

const (
	// ScanStatusQueued means the scan is waiting for a worker
	ScanStatusQueued ScanStatus = "queued"
	// ScanStatusRunning means checks are executing
	ScanStatusRunning ScanStatus = "running"
	// ScanStatusCompleted means all checks finished and results are stored
	ScanStatusCompleted ScanStatus = "completed"
	// ScanStatusFailed means the scan could not complete
	ScanStatusFailed ScanStatus = "failed"
)

// Scan represents one security scan triggered from a scanner widget
type Scan struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	ClientID  uint     `json:"client_id" gorm:"index;not null"`
	ScannerID uint     `json:"scanner_id" gorm:"index"`
	Scanner   *Scanner `json:"-" gorm:"foreignKey:ScannerID"`
	UID       string   `json:"uid" gorm:"column:scan_uid;unique;not null"`

	Target   string     `json:"target" gorm:"not null"`
	ScanType string     `json:"scan_type" gorm:"default:comprehensive"`
	Status   ScanStatus `json:"status" gorm:"default:queued;index"`
	Error    string     `json:"error,omitempty"`

	// Lead contact captured at submission time
	LeadName    string `json:"lead_name"`
	LeadEmail   string `json:"lead_email" gorm:"index"`
	LeadPhone   string `json:"lead_phone"`
	LeadCompany string `json:"lead_company"`
	CompanySize string `json:"company_size"`

	SecurityScore        int    `json:"security_score"`
	RiskLevel            string `json:"risk_level"`
	RiskColor            string `json:"risk_color"`
	Grade                string `json:"grade"`
	VulnerabilitiesFound int    `json:"vulnerabilities_found"`
	RecommendationsCount int    `json:"recommendations_count"`
	Results              string `json:"-" gorm:"type:text"` // JSON blob of full findings

	IPAddress   string         `json:"ip_address"`
	UserAgent   string         `json:"user_agent"`
	DurationMs  int64          `json:"duration_ms"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsTerminal reports whether the scan reached a final state
func (s *Scan) IsTerminal() bool {
	return s.Status == ScanStatusCompleted || s.Status == ScanStatusFailed
}

// Report represents a rendered report for a completed scan
type Report struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	ScanUID       string     `json:"scan_uid" gorm:"index;not null"`
	ClientID      uint       `json:"client_id" gorm:"index;not null"`
	ReportType    string     `json:"report_type" gorm:"default:pdf"`
	Path          string     `json:"path"`
	EmailSent     bool       `json:"email_sent" gorm:"default:false"`
	EmailSentAt   *time.Time `json:"email_sent_at,omitempty"`
	DownloadCount int        `json:"download_count" gorm:"default:0"`
	GeneratedAt   time.Time  `json:"generated_at"`
}
