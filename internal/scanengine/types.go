// Package scanengine provides the concurrent security-scan pipeline.
package scanengine

import (
	"time"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// Category identifies the scan phase a check belongs to.
type Category string

const (
	CategoryNetwork Category = "network"
	CategoryWeb     Category = "web"
	CategoryEmail   Category = "email"
	CategorySystem  Category = "system"
)

// AllCategories lists every scan phase in execution order.
var AllCategories = []Category{CategoryNetwork, CategoryWeb, CategoryEmail, CategorySystem}

// Finding represents a single security observation produced by a check.
type Finding struct {
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Evidence       string   `json:"evidence,omitempty"`
}

// CheckResult holds the outcome of one check within a scan.
type CheckResult struct {
	Check    string                 `json:"check"`
	Category Category               `json:"category"`
	Findings []Finding              `json:"findings,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Duration time.Duration          `json:"duration_ms"`
}

// SSLStatus classifies the state of a target's TLS certificate.
type SSLStatus string

const (
	SSLStatusValid    SSLStatus = "valid"
	SSLStatusExpiring SSLStatus = "expiring"
	SSLStatusExpired  SSLStatus = "expired"
	SSLStatusInvalid  SSLStatus = "invalid"
	SSLStatusError    SSLStatus = "error"
)

// SSLInfo summarizes the TLS certificate analysis for scoring.
type SSLInfo struct {
	Status        SSLStatus `json:"status"`
	Subject       string    `json:"subject,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	NotBefore     time.Time `json:"not_before,omitempty"`
	NotAfter      time.Time `json:"not_after,omitempty"`
	DaysRemaining int       `json:"days_remaining"`
	Protocol      string    `json:"protocol,omitempty"`
	CipherSuite   string    `json:"cipher_suite,omitempty"`
}

// Results is the aggregated output of a full scan, stored as JSON on the
// scan record and rendered into reports.
type Results struct {
	Target          string         `json:"target"`
	ScanTypes       []string       `json:"scan_types"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
	Checks          []CheckResult  `json:"checks"`
	SSL             *SSLInfo       `json:"ssl,omitempty"`
	HeaderScore     int            `json:"header_score"`
	SecurityScore   int            `json:"security_score"`
	RiskLevel       string         `json:"risk_level"`
	RiskColor       string         `json:"risk_color"`
	Grade           string         `json:"grade"`
	ComponentScores map[string]int `json:"component_scores"`
	Recommendations []string       `json:"recommendations"`
}

// Findings returns all findings across every check.
func (r *Results) Findings() []Finding {
	var all []Finding
	for _, c := range r.Checks {
		all = append(all, c.Findings...)
	}
	return all
}

// ScoredFindings returns the findings that carry score deductions. The
// header and certificate checks are excluded: missing headers are priced
// through the aggregate header score and certificate problems through the
// certificate-state penalty, so their findings exist only for reporting.
func (r *Results) ScoredFindings() []Finding {
	var scored []Finding
	for _, c := range r.Checks {
		switch c.Check {
		case "security_headers", "ssl_certificate":
			continue
		}
		scored = append(scored, c.Findings...)
	}
	return scored
}

// VulnerabilityCount returns the number of findings at Medium severity or
// above.
func (r *Results) VulnerabilityCount() int {
	n := 0
	for _, f := range r.Findings() {
		switch f.Severity {
		case SeverityCritical, SeverityHigh, SeverityMedium:
			n++
		}
	}
	return n
}

// ProgressEvent is a single progress update emitted while a scan runs.
type ProgressEvent struct {
	ScanUID   string    `json:"scan_uid"`
	Phase     string    `json:"phase,omitempty"`
	Message   string    `json:"message,omitempty"`
	Percent   int       `json:"percent"`
	Status    string    `json:"status,omitempty"`
	Done      bool      `json:"done,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
