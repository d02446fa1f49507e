package report

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func setupServiceTest(t *testing.T, mailer Mailer) (*Service, repositories.ScanRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Scan{}, &models.Report{}))

	scans := repositories.NewScanRepository(db)

	svc, err := NewService(t.TempDir(), NewPDFRenderer(testLogger()), mailer, scans, testLogger())
	require.NoError(t, err)

	return svc, scans
}

func storedScan(t *testing.T, scans repositories.ScanRepository) *models.Scan {
	t.Helper()

	scan := completedScan()
	raw, err := json.Marshal(sampleResults())
	require.NoError(t, err)
	scan.Results = string(raw)
	require.NoError(t, scans.Create(context.Background(), scan))
	return scan
}

func TestService_EnsureGeneratesReport(t *testing.T) {
	svc, scans := setupServiceTest(t, nil)
	ctx := context.Background()

	scan := storedScan(t, scans)

	rep, err := svc.Ensure(ctx, scan, nil)
	require.NoError(t, err)
	assert.Equal(t, scan.UID, rep.ScanUID)
	assert.Equal(t, scan.ClientID, rep.ClientID)
	assert.Equal(t, "pdf", rep.ReportType)

	data, err := os.ReadFile(rep.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))

	// second call reuses the stored report
	again, err := svc.Ensure(ctx, scan, nil)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, again.ID)
}

func TestService_EnsureRejectsIncompleteScan(t *testing.T) {
	svc, _ := setupServiceTest(t, nil)

	scan := completedScan()
	scan.Status = models.ScanStatusRunning

	_, err := svc.Ensure(context.Background(), scan, nil)
	assert.ErrorIs(t, err, ErrScanNotCompleted)
}

func TestService_EnsureRegeneratesMissingFile(t *testing.T) {
	svc, scans := setupServiceTest(t, nil)
	ctx := context.Background()

	scan := storedScan(t, scans)
	rep, err := svc.Ensure(ctx, scan, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(rep.Path))

	again, err := svc.Ensure(ctx, scan, nil)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, again.ID)
	_, err = os.Stat(again.Path)
	assert.NoError(t, err)
}

func TestService_OpenCountsDownloads(t *testing.T) {
	svc, scans := setupServiceTest(t, nil)
	ctx := context.Background()

	scan := storedScan(t, scans)

	data, err := svc.Open(ctx, scan, nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))

	_, err = svc.Open(ctx, scan, nil)
	require.NoError(t, err)

	rep, err := scans.GetReportByScanUID(ctx, scan.UID)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.DownloadCount)
}

func TestService_EmailSendsAndMarksDelivered(t *testing.T) {
	mailer := &captureMailer{}
	svc, scans := setupServiceTest(t, mailer)
	ctx := context.Background()

	scan := storedScan(t, scans)
	client := &models.Client{
		ID:           42,
		BusinessName: "Acme MSP",
		ContactEmail: "sales@acme.example.com",
		Customization: &models.Customization{
			EmailSubject: "Your Acme security results",
			EmailIntro:   "Thanks for scanning with Acme.",
			EmailFooter:  "The Acme team",
		},
	}

	require.NoError(t, svc.Email(ctx, scan, client))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, scan.LeadEmail, msg.To)
	assert.Equal(t, "sales@acme.example.com", msg.CC)
	assert.Equal(t, "Your Acme security results", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Jane Doe,")
	assert.Contains(t, msg.Body, "Thanks for scanning with Acme.")
	assert.Contains(t, msg.Body, "The Acme team")
	assert.NotEmpty(t, msg.Attachment)

	rep, err := scans.GetReportByScanUID(ctx, scan.UID)
	require.NoError(t, err)
	assert.True(t, rep.EmailSent)
	require.NotNil(t, rep.EmailSentAt)
}

func TestService_EmailSkipsDuplicateCopy(t *testing.T) {
	mailer := &captureMailer{}
	svc, scans := setupServiceTest(t, mailer)

	scan := storedScan(t, scans)
	client := &models.Client{
		ID:           42,
		BusinessName: "Acme MSP",
		ContactEmail: scan.LeadEmail,
	}

	require.NoError(t, svc.Email(context.Background(), scan, client))

	require.Len(t, mailer.sent, 1)
	assert.Empty(t, mailer.sent[0].CC)
}

func TestService_EmailWithoutMailer(t *testing.T) {
	svc, scans := setupServiceTest(t, nil)

	scan := storedScan(t, scans)
	err := svc.Email(context.Background(), scan, nil)
	assert.ErrorIs(t, err, ErrMailDisabled)
}

func TestService_EmailRequiresLead(t *testing.T) {
	mailer := &captureMailer{}
	svc, scans := setupServiceTest(t, mailer)

	scan := storedScan(t, scans)
	scan.LeadEmail = ""

	err := svc.Email(context.Background(), scan, nil)
	assert.Error(t, err)
	assert.Empty(t, mailer.sent)
}
