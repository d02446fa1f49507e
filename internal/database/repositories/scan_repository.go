package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cybrscan/cybrscan/internal/models"
	"gorm.io/gorm"
)

// ScanRepository defines the interface for scan data operations
type ScanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	GetByUID(ctx context.Context, uid string) (*models.Scan, error)
	Update(ctx context.Context, scan *models.Scan) error
	UpdateStatus(ctx context.Context, uid string, status models.ScanStatus, scanErr string) error
	ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Scan, int64, error)
	ListByScanner(ctx context.Context, scannerID uint, offset, limit int) ([]models.Scan, int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Scan, error)
	ListRecentByClient(ctx context.Context, clientID uint, limit int) ([]models.Scan, error)
	CountByClientSince(ctx context.Context, clientID uint, since time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	AverageScore(ctx context.Context, clientID uint) (float64, error)
	AverageScoreAll(ctx context.Context) (float64, error)

	CreateReport(ctx context.Context, report *models.Report) error
	GetReportByScanUID(ctx context.Context, scanUID string) (*models.Report, error)
	MarkReportEmailed(ctx context.Context, reportID uint) error
	IncrementReportDownloads(ctx context.Context, reportID uint) error
}

type scanRepo struct {
	db *gorm.DB
}

// NewScanRepository creates a new scan repository
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepo{
		db: db,
	}
}

// Create creates a new scan record
func (r *scanRepo) Create(ctx context.Context, scan *models.Scan) error {
	result := r.db.WithContext(ctx).Create(scan)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: scan uid already in use", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetByUID finds a scan by its public UID
func (r *scanRepo) GetByUID(ctx context.Context, uid string) (*models.Scan, error) {
	var scan models.Scan
	result := r.db.WithContext(ctx).
		Where("scan_uid = ?", uid).
		First(&scan)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &scan, nil
}

// Update updates a scan
func (r *scanRepo) Update(ctx context.Context, scan *models.Scan) error {
	result := r.db.WithContext(ctx).
		Model(scan).
		Omit("CreatedAt").
		Updates(scan)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateStatus transitions a scan to a new lifecycle state
func (r *scanRepo) UpdateStatus(ctx context.Context, uid string, status models.ScanStatus, scanErr string) error {
	updates := map[string]interface{}{
		"status": status,
		"error":  scanErr,
	}
	if status == models.ScanStatusCompleted || status == models.ScanStatusFailed {
		now := time.Now()
		updates["completed_at"] = now
	}

	result := r.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("scan_uid = ?", uid).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByClient lists a client's scans with pagination, newest first
func (r *scanRepo) ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Scan, int64, error) {
	var scans []models.Scan
	var count int64

	base := r.db.WithContext(ctx).Model(&models.Scan{}).Where("client_id = ?", clientID)
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&scans)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return scans, count, nil
}

// ListByScanner lists scans submitted through one scanner
func (r *scanRepo) ListByScanner(ctx context.Context, scannerID uint, offset, limit int) ([]models.Scan, int64, error) {
	var scans []models.Scan
	var count int64

	base := r.db.WithContext(ctx).Model(&models.Scan{}).Where("scanner_id = ?", scannerID)
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&scans)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return scans, count, nil
}

// ListRecent lists the newest scans across all clients
func (r *scanRepo) ListRecent(ctx context.Context, limit int) ([]models.Scan, error) {
	var scans []models.Scan
	result := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&scans)

	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return scans, nil
}

// ListRecentByClient lists a client's newest scans
func (r *scanRepo) ListRecentByClient(ctx context.Context, clientID uint, limit int) ([]models.Scan, error) {
	var scans []models.Scan
	result := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&scans)

	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return scans, nil
}

// CountByClientSince counts a client's scans created after a point in time.
// Used to enforce monthly subscription limits.
func (r *scanRepo) CountByClientSince(ctx context.Context, clientID uint, since time.Time) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("client_id = ? AND created_at >= ?", clientID, since).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// Count counts all scans
func (r *scanRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Scan{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return count, nil
}

// CountSince counts scans created after a point in time
func (r *scanRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("created_at >= ?", since).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// AverageScore computes the mean security score of a client's completed scans
func (r *scanRepo) AverageScore(ctx context.Context, clientID uint) (float64, error) {
	var avg *float64
	result := r.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("client_id = ? AND status = ?", clientID, models.ScanStatusCompleted).
		Select("AVG(security_score)").
		Scan(&avg)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// AverageScoreAll computes the mean security score of all completed scans
func (r *scanRepo) AverageScoreAll(ctx context.Context) (float64, error) {
	var avg *float64
	result := r.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("status = ?", models.ScanStatusCompleted).
		Select("AVG(security_score)").
		Scan(&avg)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// CreateReport records a rendered report
func (r *scanRepo) CreateReport(ctx context.Context, report *models.Report) error {
	result := r.db.WithContext(ctx).Create(report)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetReportByScanUID finds the report for a scan
func (r *scanRepo) GetReportByScanUID(ctx context.Context, scanUID string) (*models.Report, error) {
	var report models.Report
	result := r.db.WithContext(ctx).
		Where("scan_uid = ?", scanUID).
		First(&report)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &report, nil
}

// MarkReportEmailed records a successful report email delivery
func (r *scanRepo) MarkReportEmailed(ctx context.Context, reportID uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"email_sent":    true,
			"email_sent_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementReportDownloads bumps the report download counter
func (r *scanRepo) IncrementReportDownloads(ctx context.Context, reportID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", reportID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
