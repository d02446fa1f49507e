package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cybrscan/cybrscan/internal/models"
	"gorm.io/gorm"
)

// LeadRepository defines the interface for lead data operations
type LeadRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Lead, error)
	GetByEmail(ctx context.Context, clientID uint, email string) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Lead, int64, error)
	ListByStatus(ctx context.Context, clientID uint, status models.LeadStatus, offset, limit int) ([]models.Lead, int64, error)
	CountByClient(ctx context.Context, clientID uint) (int64, error)
	CountByStatus(ctx context.Context, clientID uint, status models.LeadStatus) (int64, error)
	Count(ctx context.Context) (int64, error)

	// RecordScan creates the lead on first contact or folds the new
	// scan into the aggregates on repeat scans.
	RecordScan(ctx context.Context, clientID uint, contact models.Lead, score int, at time.Time) (*models.Lead, error)
}

type leadRepo struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepo{
		db: db,
	}
}

// GetByID finds a lead by ID
func (r *leadRepo) GetByID(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	result := r.db.WithContext(ctx).First(&lead, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &lead, nil
}

// GetByEmail finds a client's lead by email
func (r *leadRepo) GetByEmail(ctx context.Context, clientID uint, email string) (*models.Lead, error) {
	var lead models.Lead
	result := r.db.WithContext(ctx).
		Where("client_id = ? AND email = ?", clientID, email).
		First(&lead)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &lead, nil
}

// Update updates a lead
func (r *leadRepo) Update(ctx context.Context, lead *models.Lead) error {
	result := r.db.WithContext(ctx).
		Model(lead).
		Omit("CreatedAt").
		Updates(lead)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByClient lists a client's leads with pagination, newest activity first
func (r *leadRepo) ListByClient(ctx context.Context, clientID uint, offset, limit int) ([]models.Lead, int64, error) {
	var leads []models.Lead
	var count int64

	base := r.db.WithContext(ctx).Model(&models.Lead{}).Where("client_id = ?", clientID)
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("last_scan_date DESC").
		Find(&leads)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return leads, count, nil
}

// ListByStatus lists a client's leads in a given follow-up state
func (r *leadRepo) ListByStatus(ctx context.Context, clientID uint, status models.LeadStatus, offset, limit int) ([]models.Lead, int64, error) {
	var leads []models.Lead
	var count int64

	base := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("client_id = ? AND status = ?", clientID, status)
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("last_scan_date DESC").
		Find(&leads)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return leads, count, nil
}

// CountByClient counts a client's leads
func (r *leadRepo) CountByClient(ctx context.Context, clientID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("client_id = ?", clientID).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// CountByStatus counts a client's leads in a given follow-up state
func (r *leadRepo) CountByStatus(ctx context.Context, clientID uint, status models.LeadStatus) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("client_id = ? AND status = ?", clientID, status).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// Count counts all leads
func (r *leadRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Lead{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return count, nil
}

// RecordScan upserts the lead row for a scan submission
func (r *leadRepo) RecordScan(ctx context.Context, clientID uint, contact models.Lead, score int, at time.Time) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("client_id = ? AND email = ?", clientID, contact.Email).First(&lead).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
			}

			lead = models.Lead{
				ClientID:         clientID,
				Email:            contact.Email,
				Name:             contact.Name,
				Phone:            contact.Phone,
				Company:          contact.Company,
				CompanySize:      contact.CompanySize,
				FirstScanDate:    at,
				LastScanDate:     at,
				TotalScans:       1,
				AvgSecurityScore: float64(score),
				Status:           models.LeadStatusNew,
			}
			if err := tx.Create(&lead).Error; err != nil {
				return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
			}
			return nil
		}

		// Refresh contact details on repeat scans
		if contact.Name != "" {
			lead.Name = contact.Name
		}
		if contact.Phone != "" {
			lead.Phone = contact.Phone
		}
		if contact.Company != "" {
			lead.Company = contact.Company
		}
		if contact.CompanySize != "" {
			lead.CompanySize = contact.CompanySize
		}
		lead.RecordScan(score, at)

		if err := tx.Save(&lead).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &lead, nil
}
