package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cybrscan/cybrscan/internal/models"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit log operations
type AuditRepository interface {
	Record(ctx context.Context, entry *models.AuditLog) error
	RecordChange(ctx context.Context, userID *uint, action, entityType string, entityID uint, changes interface{}, ipAddress string) error
	List(ctx context.Context, offset, limit int) ([]models.AuditLog, int64, error)
	ListByEntity(ctx context.Context, entityType string, entityID uint, offset, limit int) ([]models.AuditLog, int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepo{
		db: db,
	}
}

// Record writes a prepared audit entry
func (r *auditRepo) Record(ctx context.Context, entry *models.AuditLog) error {
	result := r.db.WithContext(ctx).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return nil
}

// RecordChange serializes the change set and writes an audit entry
func (r *auditRepo) RecordChange(ctx context.Context, userID *uint, action, entityType string, entityID uint, changes interface{}, ipAddress string) error {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("%w: failed to serialize changes: %v", ErrInvalidInput, err)
		}
		changesJSON = string(data)
	}

	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changesJSON,
		IPAddress:  ipAddress,
	}
	return r.Record(ctx, entry)
}

// List lists audit entries with pagination, newest first
func (r *auditRepo) List(ctx context.Context, offset, limit int) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.AuditLog{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := r.db.WithContext(ctx).
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&entries)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return entries, count, nil
}

// ListByEntity lists audit entries for one entity
func (r *auditRepo) ListByEntity(ctx context.Context, entityType string, entityID uint, offset, limit int) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog
	var count int64

	base := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&entries)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return entries, count, nil
}

// ListRecent lists the newest audit entries
func (r *auditRepo) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	result := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries)

	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return entries, nil
}
