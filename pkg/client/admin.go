package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cybrscan/cybrscan/internal/models"
)

// GetAdminDashboard returns platform-wide totals and recent activity
func (c *APIClient) GetAdminDashboard(ctx context.Context) (*models.AdminDashboardResponse, error) {
	var dashboard models.AdminDashboardResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathAdminDashboard, nil, &dashboard); err != nil {
		return nil, fmt.Errorf("failed to get admin dashboard: %w", err)
	}
	return &dashboard, nil
}

// ListUsers lists user accounts
func (c *APIClient) ListUsers(ctx context.Context, page, pageSize int) ([]models.UserResponse, error) {
	var users []models.UserResponse
	if err := c.doRequest(ctx, http.MethodGet, pagedPath(APIPathAdminUsers, page, pageSize), nil, &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser creates a user account
func (c *APIClient) CreateUser(ctx context.Context, req *models.AdminCreateUserRequest) (*models.UserResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("user create request cannot be nil")
	}
	if req.Username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	var user models.UserResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAdminUsers, req, &user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// UpdateUser updates a user account
func (c *APIClient) UpdateUser(ctx context.Context, id uint, req *models.AdminUpdateUserRequest) (*models.UserResponse, error) {
	if id == 0 {
		return nil, fmt.Errorf("user id cannot be zero")
	}
	if req == nil {
		return nil, fmt.Errorf("user update request cannot be nil")
	}

	var user models.UserResponse
	path := fmt.Sprintf("%s/%d", APIPathAdminUsers, id)
	if err := c.doRequest(ctx, http.MethodPut, path, req, &user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// DeleteUser deletes a user account
func (c *APIClient) DeleteUser(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("user id cannot be zero")
	}

	path := fmt.Sprintf("%s/%d", APIPathAdminUsers, id)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListClients lists registered client businesses
func (c *APIClient) ListClients(ctx context.Context, page, pageSize int) ([]models.Client, error) {
	var clients []models.Client
	if err := c.doRequest(ctx, http.MethodGet, pagedPath(APIPathAdminClients, page, pageSize), nil, &clients); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// CreateClient registers a new client business for an existing user
func (c *APIClient) CreateClient(ctx context.Context, req *models.ClientCreateRequest) (*models.Client, error) {
	if req == nil {
		return nil, fmt.Errorf("client create request cannot be nil")
	}
	if req.BusinessName == "" {
		return nil, fmt.Errorf("business name cannot be empty")
	}

	var created models.Client
	if err := c.doRequest(ctx, http.MethodPost, APIPathAdminClients, req, &created); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &created, nil
}

// GetClient gets one client business by ID
func (c *APIClient) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	if id == 0 {
		return nil, fmt.Errorf("client id cannot be zero")
	}

	var found models.Client
	path := fmt.Sprintf("%s/%d", APIPathAdminClients, id)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &found); err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &found, nil
}

// UpdateClient updates a client business, including its subscription
func (c *APIClient) UpdateClient(ctx context.Context, id uint, req *models.ClientUpdateRequest) (*models.Client, error) {
	if id == 0 {
		return nil, fmt.Errorf("client id cannot be zero")
	}
	if req == nil {
		return nil, fmt.Errorf("client update request cannot be nil")
	}

	var updated models.Client
	path := fmt.Sprintf("%s/%d", APIPathAdminClients, id)
	if err := c.doRequest(ctx, http.MethodPut, path, req, &updated); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return &updated, nil
}

// DeactivateClient deactivates a client business and its scanners
func (c *APIClient) DeactivateClient(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("client id cannot be zero")
	}

	path := fmt.Sprintf("%s/%d", APIPathAdminClients, id)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to deactivate client: %w", err)
	}
	return nil
}

// GetSettings returns the platform settings
func (c *APIClient) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	if err := c.doRequest(ctx, http.MethodGet, APIPathAdminSettings, nil, &settings); err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings replaces the platform settings
func (c *APIClient) UpdateSettings(ctx context.Context, settings *models.SystemSettings) (*models.SystemSettings, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	var updated models.SystemSettings
	if err := c.doRequest(ctx, http.MethodPut, APIPathAdminSettings, settings, &updated); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return &updated, nil
}

// ListAudit lists audit log entries, optionally scoped to one entity
func (c *APIClient) ListAudit(ctx context.Context, entityType string, entityID uint, page, pageSize int) ([]models.AuditLog, error) {
	query := url.Values{}
	if entityType != "" {
		query.Set("entity_type", entityType)
		query.Set("entity_id", strconv.FormatUint(uint64(entityID), 10))
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}

	path := APIPathAdminAudit
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var entries []models.AuditLog
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
