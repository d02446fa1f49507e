package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cybrscan/cybrscan/internal/models"
)

// pagedPath appends page/page_size query parameters when set
func pagedPath(base string, page, pageSize int) string {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

// GetClientDashboard returns the authenticated client's activity summary
func (c *APIClient) GetClientDashboard(ctx context.Context) (*models.ClientDashboardResponse, error) {
	var dashboard models.ClientDashboardResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathClientDashboard, nil, &dashboard); err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	return &dashboard, nil
}

// ListScanners lists the client's scanner widgets
func (c *APIClient) ListScanners(ctx context.Context, page, pageSize int) ([]models.Scanner, error) {
	var scanners []models.Scanner
	if err := c.doRequest(ctx, http.MethodGet, pagedPath(APIPathClientScanners, page, pageSize), nil, &scanners); err != nil {
		return nil, fmt.Errorf("failed to list scanners: %w", err)
	}
	return scanners, nil
}

// CreateScanner deploys a new white-labeled scanner widget
func (c *APIClient) CreateScanner(ctx context.Context, req *models.ScannerCreateRequest) (*models.Scanner, error) {
	if req == nil {
		return nil, fmt.Errorf("scanner create request cannot be nil")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("scanner name cannot be empty")
	}

	var scanner models.Scanner
	if err := c.doRequest(ctx, http.MethodPost, APIPathClientScanners, req, &scanner); err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	return &scanner, nil
}

// GetScanner gets a scanner widget by UID
func (c *APIClient) GetScanner(ctx context.Context, uid string) (*models.Scanner, error) {
	if uid == "" {
		return nil, fmt.Errorf("scanner UID cannot be empty")
	}

	var scanner models.Scanner
	path := fmt.Sprintf("%s/%s", APIPathClientScanners, uid)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &scanner); err != nil {
		return nil, fmt.Errorf("failed to get scanner: %w", err)
	}
	return &scanner, nil
}

// UpdateScanner updates a scanner widget and redeploys its assets
func (c *APIClient) UpdateScanner(ctx context.Context, uid string, req *models.ScannerUpdateRequest) (*models.Scanner, error) {
	if uid == "" {
		return nil, fmt.Errorf("scanner UID cannot be empty")
	}
	if req == nil {
		return nil, fmt.Errorf("scanner update request cannot be nil")
	}

	var scanner models.Scanner
	path := fmt.Sprintf("%s/%s", APIPathClientScanners, uid)
	if err := c.doRequest(ctx, http.MethodPut, path, req, &scanner); err != nil {
		return nil, fmt.Errorf("failed to update scanner: %w", err)
	}
	return &scanner, nil
}

// DeleteScanner removes a scanner widget and its deployed assets
func (c *APIClient) DeleteScanner(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("scanner UID cannot be empty")
	}

	path := fmt.Sprintf("%s/%s", APIPathClientScanners, uid)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete scanner: %w", err)
	}
	return nil
}

// DownloadScannerBundle downloads the widget's asset bundle as a gzipped tar
func (c *APIClient) DownloadScannerBundle(ctx context.Context, uid string) ([]byte, error) {
	if uid == "" {
		return nil, fmt.Errorf("scanner UID cannot be empty")
	}

	data, err := c.doRaw(ctx, fmt.Sprintf("%s/%s/bundle", APIPathClientScanners, uid))
	if err != nil {
		return nil, fmt.Errorf("failed to download scanner bundle: %w", err)
	}
	return data, nil
}

// GetCustomization returns the client's widget branding
func (c *APIClient) GetCustomization(ctx context.Context) (*models.Customization, error) {
	var custom models.Customization
	if err := c.doRequest(ctx, http.MethodGet, APIPathClientCustomization, nil, &custom); err != nil {
		return nil, fmt.Errorf("failed to get customization: %w", err)
	}
	return &custom, nil
}

// UpdateCustomization updates widget branding and redeploys live widgets
func (c *APIClient) UpdateCustomization(ctx context.Context, req *models.CustomizationUpdateRequest) (*models.Customization, error) {
	if req == nil {
		return nil, fmt.Errorf("customization update request cannot be nil")
	}

	var custom models.Customization
	if err := c.doRequest(ctx, http.MethodPut, APIPathClientCustomization, req, &custom); err != nil {
		return nil, fmt.Errorf("failed to update customization: %w", err)
	}
	return &custom, nil
}
