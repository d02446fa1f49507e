package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cybrscan/cybrscan/internal/models"
)

// ListScans lists the client's scan history
func (c *APIClient) ListScans(ctx context.Context, page, pageSize int) ([]models.Scan, error) {
	var scans []models.Scan
	if err := c.doRequest(ctx, http.MethodGet, pagedPath(APIPathClientScans, page, pageSize), nil, &scans); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// GetScan returns one scan's status and, once completed, its scored results
func (c *APIClient) GetScan(ctx context.Context, uid string) (*models.ScanResultResponse, error) {
	if uid == "" {
		return nil, fmt.Errorf("scan UID cannot be empty")
	}

	var result models.ScanResultResponse
	path := fmt.Sprintf("%s/%s", APIPathClientScans, uid)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &result, nil
}

// DownloadReport downloads the PDF report for a completed scan
func (c *APIClient) DownloadReport(ctx context.Context, uid string) ([]byte, error) {
	if uid == "" {
		return nil, fmt.Errorf("scan UID cannot be empty")
	}

	data, err := c.doRaw(ctx, fmt.Sprintf("%s/%s/report", APIPathClientScans, uid))
	if err != nil {
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	return data, nil
}

// EmailReport asks the server to email the PDF report to the scan's lead
func (c *APIClient) EmailReport(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("scan UID cannot be empty")
	}

	path := fmt.Sprintf("%s/%s/report/email", APIPathClientScans, uid)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to email report: %w", err)
	}
	return nil
}

// SubmitScan submits a scan through a widget's key-authenticated endpoint.
// The client must be configured with the scanner's API key.
func (c *APIClient) SubmitScan(ctx context.Context, scannerUID string, req *models.ScanSubmitRequest) (*models.ScanSubmitResponse, error) {
	if scannerUID == "" {
		return nil, fmt.Errorf("scanner UID cannot be empty")
	}
	if req == nil {
		return nil, fmt.Errorf("scan submit request cannot be nil")
	}
	if req.Target == "" {
		return nil, fmt.Errorf("scan target cannot be empty")
	}
	if req.LeadEmail == "" {
		return nil, fmt.Errorf("lead email cannot be empty")
	}

	var submitted models.ScanSubmitResponse
	path := fmt.Sprintf("%s/%s/scan", APIPathScanner, scannerUID)
	if err := c.doKeyRequest(ctx, http.MethodPost, path, req, &submitted); err != nil {
		return nil, fmt.Errorf("failed to submit scan: %w", err)
	}
	return &submitted, nil
}

// GetScanStatus polls a widget-submitted scan. While the scan runs only the
// lifecycle fields are populated; results appear on completion.
func (c *APIClient) GetScanStatus(ctx context.Context, scannerUID, scanUID string) (*models.ScanResultResponse, error) {
	if scannerUID == "" {
		return nil, fmt.Errorf("scanner UID cannot be empty")
	}
	if scanUID == "" {
		return nil, fmt.Errorf("scan UID cannot be empty")
	}

	var result models.ScanResultResponse
	path := fmt.Sprintf("%s/%s/scan/%s", APIPathScanner, scannerUID, scanUID)
	if err := c.doKeyRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get scan status: %w", err)
	}
	return &result, nil
}
