package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cybrscan/cybrscan/internal/models"
	"gorm.io/gorm"
)

// ScannerRepository defines the interface for scanner data operations
type ScannerRepository interface {
	Create(ctx context.Context, scanner *models.Scanner) error
	GetByID(ctx context.Context, id uint) (*models.Scanner, error)
	GetByUID(ctx context.Context, uid string) (*models.Scanner, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Scanner, error)
	Update(ctx context.Context, scanner *models.Scanner) error
	Delete(ctx context.Context, id uint) error
	ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Scanner, int64, error)
	CountByClient(ctx context.Context, clientID uint) (int64, error)
	Count(ctx context.Context) (int64, error)
	MarkDeployed(ctx context.Context, id uint, deployPath, templateVersion string) error
}

type scannerRepo struct {
	db *gorm.DB
}

// NewScannerRepository creates a new scanner repository
func NewScannerRepository(db *gorm.DB) ScannerRepository {
	return &scannerRepo{
		db: db,
	}
}

// Create creates a new scanner
func (r *scannerRepo) Create(ctx context.Context, scanner *models.Scanner) error {
	result := r.db.WithContext(ctx).Create(scanner)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: scanner uid, subdomain or api key already in use", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// GetByID finds a scanner by ID
func (r *scannerRepo) GetByID(ctx context.Context, id uint) (*models.Scanner, error) {
	var scanner models.Scanner
	result := r.db.WithContext(ctx).First(&scanner, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &scanner, nil
}

// GetByUID finds a scanner by its public UID
func (r *scannerRepo) GetByUID(ctx context.Context, uid string) (*models.Scanner, error) {
	var scanner models.Scanner
	result := r.db.WithContext(ctx).
		Where("scanner_uid = ?", uid).
		First(&scanner)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &scanner, nil
}

// GetByAPIKey finds a scanner by its API key
func (r *scannerRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Scanner, error) {
	var scanner models.Scanner
	result := r.db.WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&scanner)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &scanner, nil
}

// Update updates a scanner
func (r *scannerRepo) Update(ctx context.Context, scanner *models.Scanner) error {
	result := r.db.WithContext(ctx).
		Model(scanner).
		Omit("CreatedAt").
		Updates(scanner)

	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: subdomain already in use", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes a scanner
func (r *scannerRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Scanner{}, id)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByClient lists a client's scanners with pagination
func (r *scannerRepo) ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Scanner, int64, error) {
	var scanners []models.Scanner
	var count int64

	base := r.db.WithContext(ctx).Model(&models.Scanner{}).Where("client_id = ?", clientID)
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&scanners)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return scanners, count, nil
}

// CountByClient counts a client's scanners
func (r *scannerRepo) CountByClient(ctx context.Context, clientID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Scanner{}).
		Where("client_id = ?", clientID).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// Count counts all scanners
func (r *scannerRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Scanner{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return count, nil
}

// MarkDeployed records successful widget generation for a scanner
func (r *scannerRepo) MarkDeployed(ctx context.Context, id uint, deployPath, templateVersion string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Scanner{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deploy_status":    models.DeployStatusDeployed,
			"deploy_path":      deployPath,
			"template_version": templateVersion,
			"deployed_at":      now,
		})

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
