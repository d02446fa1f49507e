package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/scanengine"
)

// ErrScanNotCompleted is returned when a report is requested for a scan
// that has not finished successfully.
var ErrScanNotCompleted = errors.New("scan has not completed")

// ErrMailDisabled is returned when email delivery is requested but no
// SMTP relay is configured.
var ErrMailDisabled = errors.New("email delivery is not configured")

// Service generates, stores and delivers scan reports.
type Service struct {
	dir      string
	renderer *PDFRenderer
	mailer   Mailer
	scans    repositories.ScanRepository
	log      *logrus.Logger
}

// NewService creates a report service. mailer may be nil when SMTP
// delivery is disabled.
func NewService(dir string, renderer *PDFRenderer, mailer Mailer, scans repositories.ScanRepository, log *logrus.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Service{
		dir:      dir,
		renderer: renderer,
		mailer:   mailer,
		scans:    scans,
		log:      log,
	}, nil
}

// ReportPath returns the on-disk location of a scan's PDF report.
func (s *Service) ReportPath(scanUID string) string {
	return filepath.Join(s.dir, scanUID+".pdf")
}

// Ensure returns the stored report for a scan, rendering and persisting
// it on first request.
func (s *Service) Ensure(ctx context.Context, scan *models.Scan, client *models.Client) (*models.Report, error) {
	if scan.Status != models.ScanStatusCompleted {
		return nil, ErrScanNotCompleted
	}

	existing, err := s.scans.GetReportByScanUID(ctx, scan.UID)
	if err == nil {
		if _, statErr := os.Stat(existing.Path); statErr == nil {
			return existing, nil
		}
		// Report row exists but the file is gone. Re-render in place.
		if err := s.renderToFile(scan, client, existing.Path); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	path := s.ReportPath(scan.UID)
	if err := s.renderToFile(scan, client, path); err != nil {
		return nil, err
	}

	rep := &models.Report{
		ScanUID:     scan.UID,
		ClientID:    scan.ClientID,
		ReportType:  "pdf",
		Path:        path,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.scans.CreateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to store report record: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"scan_uid": scan.UID,
		"path":     path,
	}).Info("Scan report generated")

	return rep, nil
}

// Open returns the PDF content of a scan's report and bumps its download
// counter.
func (s *Service) Open(ctx context.Context, scan *models.Scan, client *models.Client) ([]byte, error) {
	rep, err := s.Ensure(ctx, scan, client)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(rep.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	if err := s.scans.IncrementReportDownloads(ctx, rep.ID); err != nil {
		s.log.WithError(err).WithField("scan_uid", scan.UID).Warning("Failed to record report download")
	}

	return data, nil
}

// Email renders the report if needed and sends it to the lead captured
// on the scan, copying the client's contact address so the business sees
// the reports its widget produces. Uses the client's customized email text.
func (s *Service) Email(ctx context.Context, scan *models.Scan, client *models.Client) error {
	if s.mailer == nil {
		return ErrMailDisabled
	}
	if scan.LeadEmail == "" {
		return fmt.Errorf("scan %s has no lead email", scan.UID)
	}

	rep, err := s.Ensure(ctx, scan, client)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(rep.Path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	subject, body := s.emailText(scan, client)
	msg := Message{
		To:         scan.LeadEmail,
		Subject:    subject,
		Body:       body,
		Attachment: data,
		AttachName: fmt.Sprintf("security-report-%s.pdf", scan.UID),
	}
	if client != nil && client.ContactEmail != "" && client.ContactEmail != scan.LeadEmail {
		msg.CC = client.ContactEmail
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send report email: %w", err)
	}

	if err := s.scans.MarkReportEmailed(ctx, rep.ID); err != nil {
		s.log.WithError(err).WithField("scan_uid", scan.UID).Warning("Failed to record report delivery")
	}

	return nil
}

func (s *Service) emailText(scan *models.Scan, client *models.Client) (subject, body string) {
	businessName := "CybrScan"
	var custom *models.Customization
	if client != nil {
		businessName = client.BusinessName
		custom = client.Customization
	}

	subject = fmt.Sprintf("Your Security Scan Report from %s", businessName)
	intro := fmt.Sprintf("Thank you for running a security scan with %s.", businessName)
	footer := fmt.Sprintf("This report was prepared by %s.", businessName)

	if custom != nil {
		if custom.EmailSubject != "" {
			subject = custom.EmailSubject
		}
		if custom.EmailIntro != "" {
			intro = custom.EmailIntro
		}
		if custom.EmailFooter != "" {
			footer = custom.EmailFooter
		}
	}

	greeting := "Hello,"
	if scan.LeadName != "" {
		greeting = fmt.Sprintf("Hello %s,", scan.LeadName)
	}

	body = fmt.Sprintf(`%s

%s

Target: %s
Security score: %d / 100 (grade %s)
Risk level: %s

Your full report is attached as a PDF.

%s
`, greeting, intro, scan.Target, scan.SecurityScore, scan.Grade, scan.RiskLevel, footer)

	return subject, body
}

func (s *Service) renderToFile(scan *models.Scan, client *models.Client, path string) error {
	var results scanengine.Results
	if err := json.Unmarshal([]byte(scan.Results), &results); err != nil {
		return fmt.Errorf("failed to decode scan results: %w", err)
	}

	data, err := s.renderer.Render(scan, &results, BrandingForClient(client))
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
