package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybrscan/cybrscan/internal/models"
)

// TestListScans tests listing the client's scan history
func TestListScans(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/client/scans", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"success": true,
			"data": [
				{"id": 1, "uid": "scan_aaa", "target": "example.com", "status": "completed", "security_score": 72},
				{"id": 2, "uid": "scan_bbb", "target": "example.org", "status": "running"}
			]
		}`))
	}))
	defer server.Close()

	client := newPortalTestClient(t, server.URL)

	scans, err := client.ListScans(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "scan_aaa", scans[0].UID)
	assert.Equal(t, 72, scans[0].SecurityScore)
	assert.Equal(t, models.ScanStatusRunning, scans[1].Status)
}

// TestGetScanSDK tests fetching a completed scan's scored result
func TestGetScanSDK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/client/scans/scan_aaa", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"success": true,
			"data": {
				"scan_uid": "scan_aaa",
				"target": "example.com",
				"status": "completed",
				"security_score": 72,
				"grade": "C",
				"risk_level": "Medium",
				"component_scores": {"web": 80, "email": 60}
			}
		}`))
	}))
	defer server.Close()

	client := newPortalTestClient(t, server.URL)

	result, err := client.GetScan(context.Background(), "scan_aaa")
	require.NoError(t, err)
	assert.Equal(t, "scan_aaa", result.ScanUID)
	assert.Equal(t, 72, result.SecurityScore)
	assert.Equal(t, "C", result.Grade)
	assert.Equal(t, 80, result.ComponentScores["web"])

	_, err = client.GetScan(context.Background(), "")
	assert.Error(t, err)
}

// TestDownloadReportSDK tests fetching a scan's PDF report
func TestDownloadReportSDK(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake report body")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/client/scans/scan_aaa/report", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)

		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	}))
	defer server.Close()

	client := newPortalTestClient(t, server.URL)

	data, err := client.DownloadReport(context.Background(), "scan_aaa")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	_, err = client.DownloadReport(context.Background(), "")
	assert.Error(t, err)
}

// TestEmailReportSDK tests asking the server to email a report to the lead
func TestEmailReportSDK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/client/scans/scan_aaa/report/email", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success": true, "message": "report queued for delivery"}`))
	}))
	defer server.Close()

	client := newPortalTestClient(t, server.URL)

	require.NoError(t, client.EmailReport(context.Background(), "scan_aaa"))
	assert.Error(t, client.EmailReport(context.Background(), ""))
}

// TestSubmitScanSDK tests a widget scan submission authenticated by API key
func TestSubmitScanSDK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scanner/scn_widget01/scan", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "sk_widget_key", r.Header.Get(HeaderAPIKey))
		assert.Empty(t, r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req models.ScanSubmitRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "example.com", req.Target)
		assert.Equal(t, "jane@example.com", req.LeadEmail)

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success": true, "data": {"scan_uid": "scan_new01", "status": "queued", "target": "example.com"}}`))
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("sk_widget_key"),
	)
	require.NoError(t, err)

	resp, err := client.SubmitScan(context.Background(), "scn_widget01", &models.ScanSubmitRequest{
		Target:    "example.com",
		LeadName:  "Jane Doe",
		LeadEmail: "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "scan_new01", resp.ScanUID)
	assert.Equal(t, models.ScanStatusQueued, resp.Status)

	// Missing required fields never reach the server
	_, err = client.SubmitScan(context.Background(), "", &models.ScanSubmitRequest{Target: "example.com", LeadEmail: "jane@example.com"})
	assert.Error(t, err)
	_, err = client.SubmitScan(context.Background(), "scn_widget01", nil)
	assert.Error(t, err)
	_, err = client.SubmitScan(context.Background(), "scn_widget01", &models.ScanSubmitRequest{LeadEmail: "jane@example.com"})
	assert.Error(t, err)
	_, err = client.SubmitScan(context.Background(), "scn_widget01", &models.ScanSubmitRequest{Target: "example.com"})
	assert.Error(t, err)
}

// TestGetScanStatusSDK tests polling a scan through the widget API
func TestGetScanStatusSDK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scanner/scn_widget01/scan/scan_new01", r.URL.Path)
		assert.Equal(t, "sk_widget_key", r.Header.Get(HeaderAPIKey))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success": true, "data": {"scan_uid": "scan_new01", "status": "running"}}`))
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("sk_widget_key"),
	)
	require.NoError(t, err)

	status, err := client.GetScanStatus(context.Background(), "scn_widget01", "scan_new01")
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusRunning, status.Status)

	_, err = client.GetScanStatus(context.Background(), "", "scan_new01")
	assert.Error(t, err)
	_, err = client.GetScanStatus(context.Background(), "scn_widget01", "")
	assert.Error(t, err)
}
