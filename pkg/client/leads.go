package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cybrscan/cybrscan/internal/models"
)

// ListLeads lists the client's captured leads, optionally filtered by
// follow-up status (new, contacted, qualified, converted)
func (c *APIClient) ListLeads(ctx context.Context, status string, page, pageSize int) ([]models.Lead, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}

	path := APIPathClientLeads
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var leads []models.Lead
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &leads); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// UpdateLead updates a lead's follow-up status and notes
func (c *APIClient) UpdateLead(ctx context.Context, id uint, req *models.LeadUpdateRequest) (*models.Lead, error) {
	if id == 0 {
		return nil, fmt.Errorf("lead id cannot be zero")
	}
	if req == nil {
		return nil, fmt.Errorf("lead update request cannot be nil")
	}

	var lead models.Lead
	path := fmt.Sprintf("%s/%d", APIPathClientLeads, id)
	if err := c.doRequest(ctx, http.MethodPut, path, req, &lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return &lead, nil
}
