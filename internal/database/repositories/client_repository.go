package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cybrscan/cybrscan/internal/models"
	"gorm.io/gorm"
)

// ErrActiveClientExists is returned when a user already has an active client
var ErrActiveClientExists = errors.New("user already has an active client")

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uint) (*models.Client, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Client, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]models.Client, int64, error)
	Search(ctx context.Context, query string, offset, limit int) ([]models.Client, int64, error)
	Deactivate(ctx context.Context, id uint) error
	CountActive(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)

	GetCustomization(ctx context.Context, clientID uint) (*models.Customization, error)
	UpsertCustomization(ctx context.Context, custom *models.Customization) error
}

type clientRepo struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepo{
		db: db,
	}
}

// Create creates a new client.
// A user may only hold one active client at a time.
func (r *clientRepo) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Client{}).
			Where("user_id = ? AND active = ?", client.UserID, true).
			Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}
		if count > 0 && client.Active {
			return ErrActiveClientExists
		}

		if err := tx.Create(client).Error; err != nil {
			if isDuplicateKeyError(err) {
				return fmt.Errorf("%w: api key already in use", ErrDuplicateKey)
			}
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}
		return nil
	})
}

// GetByID finds a client by ID
func (r *clientRepo) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	result := r.db.WithContext(ctx).
		Preload("Customization").
		First(&client, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &client, nil
}

// GetByUserID finds the active client owned by a user
func (r *clientRepo) GetByUserID(ctx context.Context, userID uint) (*models.Client, error) {
	var client models.Client
	result := r.db.WithContext(ctx).
		Preload("Customization").
		Where("user_id = ? AND active = ?", userID, true).
		First(&client)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &client, nil
}

// GetByAPIKey finds a client by its API key
func (r *clientRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	var client models.Client
	result := r.db.WithContext(ctx).
		Preload("Customization").
		Where("api_key = ?", apiKey).
		First(&client)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &client, nil
}

// Update updates a client
func (r *clientRepo) Update(ctx context.Context, client *models.Client) error {
	result := r.db.WithContext(ctx).
		Model(client).
		Omit("CreatedAt").
		Updates(client)

	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("%w: api key already in use", ErrDuplicateKey)
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes a client
func (r *clientRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Client{}, id)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List lists clients with pagination
func (r *clientRepo) List(ctx context.Context, offset, limit int) ([]models.Client, int64, error) {
	var clients []models.Client
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.Client{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := r.db.WithContext(ctx).
		Preload("Customization").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&clients)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return clients, count, nil
}

// Search lists clients whose business name or domain matches the query
func (r *clientRepo) Search(ctx context.Context, query string, offset, limit int) ([]models.Client, int64, error) {
	var clients []models.Client
	var count int64

	pattern := "%" + query + "%"
	base := r.db.WithContext(ctx).Model(&models.Client{}).
		Where("business_name LIKE ? OR business_domain LIKE ?", pattern, pattern)

	if err := base.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	result := base.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&clients)

	if result.Error != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return clients, count, nil
}

// Deactivate marks a client inactive
func (r *clientRepo) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ?", id).
		Update("active", false)

	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// CountActive counts active clients
func (r *clientRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("active = ?", true).
		Count(&count)

	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return count, nil
}

// Count counts all clients
func (r *clientRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Client{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return count, nil
}

// GetCustomization finds a client's customization
func (r *clientRepo) GetCustomization(ctx context.Context, clientID uint) (*models.Customization, error) {
	var custom models.Customization
	result := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&custom)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}

	return &custom, nil
}

// UpsertCustomization creates or updates a client's customization row
func (r *clientRepo) UpsertCustomization(ctx context.Context, custom *models.Customization) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Customization
		err := tx.Where("client_id = ?", custom.ClientID).First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(custom).Error; err != nil {
					return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
				}
				return nil
			}
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}

		custom.ID = existing.ID
		custom.CreatedAt = existing.CreatedAt
		if err := tx.Model(&existing).Omit("CreatedAt").Updates(custom).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
		}
		return nil
	})
}
