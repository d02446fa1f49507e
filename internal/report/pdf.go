package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/scanengine"
)

// Branding carries the client's white-label settings into the report.
type Branding struct {
	BusinessName   string
	ContactEmail   string
	PrimaryColor   string
	SecondaryColor string
	FooterText     string
}

// BrandingForClient builds report branding from a client and its
// customization, falling back to platform defaults.
func BrandingForClient(client *models.Client) Branding {
	b := Branding{
		PrimaryColor:   "#02054c",
		SecondaryColor: "#35a310",
	}
	if client == nil {
		return b
	}
	b.BusinessName = client.BusinessName
	b.ContactEmail = client.ContactEmail
	if c := client.Customization; c != nil {
		if c.PrimaryColor != "" {
			b.PrimaryColor = c.PrimaryColor
		}
		if c.SecondaryColor != "" {
			b.SecondaryColor = c.SecondaryColor
		}
		b.FooterText = c.EmailFooter
	}
	return b
}

var severityOrder = []scanengine.Severity{
	scanengine.SeverityCritical,
	scanengine.SeverityHigh,
	scanengine.SeverityMedium,
	scanengine.SeverityLow,
	scanengine.SeverityInfo,
}

var severityColors = map[scanengine.Severity]string{
	scanengine.SeverityCritical: "#dc3545",
	scanengine.SeverityHigh:     "#fd7e14",
	scanengine.SeverityMedium:   "#ffc107",
	scanengine.SeverityLow:      "#17a2b8",
	scanengine.SeverityInfo:     "#6c757d",
}

// PDFRenderer renders completed scan results as a branded PDF document.
type PDFRenderer struct {
	log *logrus.Logger
}

// NewPDFRenderer creates a PDF report renderer.
func NewPDFRenderer(log *logrus.Logger) *PDFRenderer {
	return &PDFRenderer{log: log}
}

// Render produces the PDF bytes for a completed scan.
func (r *PDFRenderer) Render(scan *models.Scan, results *scanengine.Results, branding Branding) ([]byte, error) {
	if scan == nil || results == nil {
		return nil, fmt.Errorf("scan and results are required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Security Scan Report - %s", scan.Target), false)
	pdf.SetAuthor(branding.BusinessName, false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	r.renderHeader(pdf, scan, branding)
	r.renderScoreBlock(pdf, scan, results)
	r.renderComponentScores(pdf, results)
	r.renderFindings(pdf, results)
	r.renderRecommendations(pdf, results)
	r.renderFooter(pdf, branding)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"scan_uid": scan.UID,
		"bytes":    buf.Len(),
	}).Debug("Rendered scan report")

	return buf.Bytes(), nil
}

func (r *PDFRenderer) renderHeader(pdf *gofpdf.Fpdf, scan *models.Scan, branding Branding) {
	pr, pg, pb := hexToRGB(branding.PrimaryColor)

	pdf.SetFillColor(pr, pg, pb)
	pdf.Rect(0, 0, 210, 30, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(15, 8)
	title := "Security Scan Report"
	if branding.BusinessName != "" {
		title = branding.BusinessName + " Security Scan Report"
	}
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(15)
	pdf.CellFormat(0, 6, fmt.Sprintf("Target: %s", scan.Target), "", 1, "L", false, 0, "")

	pdf.SetTextColor(60, 60, 60)
	pdf.SetY(36)
	pdf.SetFont("Helvetica", "", 9)
	completed := scan.CreatedAt
	if scan.CompletedAt != nil {
		completed = *scan.CompletedAt
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Scan ID: %s", scan.UID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Completed: %s", completed.Format(time.RFC1123)), "", 1, "L", false, 0, "")
	if len(scan.LeadCompany) > 0 {
		pdf.CellFormat(0, 5, fmt.Sprintf("Prepared for: %s", scan.LeadCompany), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *PDFRenderer) renderScoreBlock(pdf *gofpdf.Fpdf, scan *models.Scan, results *scanengine.Results) {
	cr, cg, cb := hexToRGB(results.RiskColor)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(0, 8, "Overall Security Posture", "", 1, "L", false, 0, "")

	y := pdf.GetY()
	pdf.SetFillColor(cr, cg, cb)
	pdf.RoundedRect(15, y, 60, 24, 3, "1234", "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(15, y+4)
	pdf.CellFormat(60, 10, fmt.Sprintf("%d / 100", results.SecurityScore), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetX(15)
	pdf.CellFormat(60, 6, fmt.Sprintf("Grade %s", results.Grade), "", 1, "C", false, 0, "")

	pdf.SetTextColor(30, 30, 30)
	pdf.SetXY(82, y+2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Risk level: %s", results.RiskLevel), "", 1, "L", false, 0, "")
	pdf.SetX(82)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Vulnerabilities found: %d", results.VulnerabilityCount()), "", 1, "L", false, 0, "")
	pdf.SetX(82)
	pdf.CellFormat(0, 6, fmt.Sprintf("Checks performed: %d", len(results.Checks)), "", 1, "L", false, 0, "")

	pdf.SetY(y + 30)

	if ssl := results.SSL; ssl != nil {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "TLS Certificate", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("Status: %s", ssl.Status), "", 1, "L", false, 0, "")
		if ssl.Status != scanengine.SSLStatusError {
			pdf.CellFormat(0, 5, fmt.Sprintf("Issuer: %s", ssl.Issuer), "", 1, "L", false, 0, "")
			pdf.CellFormat(0, 5, fmt.Sprintf("Expires: %s (%d days)", ssl.NotAfter.Format("2006-01-02"), ssl.DaysRemaining), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}
}

func (r *PDFRenderer) renderComponentScores(pdf *gofpdf.Fpdf, results *scanengine.Results) {
	if len(results.ComponentScores) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Component Scores", "", 1, "L", false, 0, "")

	names := make([]string, 0, len(results.ComponentScores))
	for name := range results.ComponentScores {
		names = append(names, name)
	}
	sort.Strings(names)

	pdf.SetFont("Helvetica", "", 10)
	for _, name := range names {
		score := results.ComponentScores[name]
		pdf.CellFormat(50, 6, strings.Title(name), "B", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(score), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *PDFRenderer) renderFindings(pdf *gofpdf.Fpdf, results *scanengine.Results) {
	findings := results.Findings()
	if len(findings) == 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Findings", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "No security issues were identified.", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Findings (%d)", len(findings)), "", 1, "L", false, 0, "")

	for _, severity := range severityOrder {
		group := findingsBySeverity(findings, severity)
		if len(group) == 0 {
			continue
		}

		sr, sg, sb := hexToRGB(severityColors[severity])
		pdf.SetFillColor(sr, sg, sb)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("  %s (%d)", severity, len(group)), "", 1, "L", true, 0, "")
		pdf.SetTextColor(30, 30, 30)

		for _, f := range group {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(0, 6, f.Title, "", 1, "L", false, 0, "")
			if f.Description != "" {
				pdf.SetFont("Helvetica", "", 9)
				pdf.MultiCell(0, 4.5, f.Description, "", "L", false)
			}
			if f.Recommendation != "" {
				pdf.SetFont("Helvetica", "I", 9)
				pdf.MultiCell(0, 4.5, "Recommendation: "+f.Recommendation, "", "L", false)
			}
			pdf.Ln(2)
		}
		pdf.Ln(2)
	}
}

func (r *PDFRenderer) renderRecommendations(pdf *gofpdf.Fpdf, results *scanengine.Results) {
	if len(results.Recommendations) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Recommended Actions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for i, rec := range results.Recommendations {
		pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", i+1, rec), "", "L", false)
	}
	pdf.Ln(4)
}

func (r *PDFRenderer) renderFooter(pdf *gofpdf.Fpdf, branding Branding) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	footer := branding.FooterText
	if footer == "" && branding.BusinessName != "" {
		footer = fmt.Sprintf("Report generated by %s. Questions? Contact %s.", branding.BusinessName, branding.ContactEmail)
	}
	if footer != "" {
		pdf.Ln(4)
		pdf.MultiCell(0, 4, footer, "", "L", false)
	}
}

func findingsBySeverity(findings []scanengine.Finding, severity scanengine.Severity) []scanengine.Finding {
	var out []scanengine.Finding
	for _, f := range findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

// hexToRGB parses a #RRGGBB color, returning dark gray when malformed.
func hexToRGB(hex string) (int, int, int) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return 52, 58, 64
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 52, 58, 64
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
