package models

import (
	"time"

	"gorm.io/gorm"
)

// LeadStatus tracks sales follow-up progress
type LeadStatus string

const (
	// LeadStatusNew is a lead nobody has contacted yet
	LeadStatusNew LeadStatus = "new"
	// LeadStatusContacted means outreach has started
	LeadStatusContacted LeadStatus = "contacted"
	// LeadStatusQualified means the lead looks viable
	LeadStatusQualified LeadStatus = "qualified"
	// LeadStatusConverted means the lead became a customer
	LeadStatusConverted LeadStatus = "converted"
)

// Lead represents a scan submitter's contact info captured for sales follow-up.
// A lead is unique per client by email; repeat scans update the aggregate fields.
type Lead struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	ClientID         uint           `json:"client_id" gorm:"uniqueIndex:idx_leads_client_email;not null"`
	Email            string         `json:"email" gorm:"uniqueIndex:idx_leads_client_email;not null"`
	Name             string         `json:"name"`
	Phone            string         `json:"phone"`
	Company          string         `json:"company"`
	CompanySize      string         `json:"company_size"`
	Industry         string         `json:"industry"`
	FirstScanDate    time.Time      `json:"first_scan_date"`
	LastScanDate     time.Time      `json:"last_scan_date"`
	TotalScans       int            `json:"total_scans" gorm:"default:1"`
	AvgSecurityScore float64        `json:"avg_security_score"`
	Status           LeadStatus     `json:"status" gorm:"default:new;index"`
	Notes            string         `json:"notes"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

// RecordScan folds a new scan into the lead's aggregates
func (l *Lead) RecordScan(score int, at time.Time) {
	total := float64(l.TotalScans)
	l.AvgSecurityScore = (l.AvgSecurityScore*total + float64(score)) / (total + 1)
	l.TotalScans++
	l.LastScanDate = at
}
