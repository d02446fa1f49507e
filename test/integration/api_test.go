package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybrscan/cybrscan/internal/models"
)

// registerClientBusiness signs up an owner account and has the admin register
// a client business for it, returning the owner tokens and the client record.
func registerClientBusiness(t *testing.T, env *testEnv, admin tokenSet) (tokenSet, models.Client) {
	t.Helper()

	owner := env.register(t, "acme-owner", "owner@acme.example.com", "another-strong-pass")

	rec := env.doJSON(t, http.MethodPost, "/api/v1/admin/clients", admin.AccessToken, map[string]interface{}{
		"user_id":            owner.UserID,
		"business_name":      "Acme Corp",
		"business_domain":    "acme.example.com",
		"contact_email":      "owner@acme.example.com",
		"subscription_level": "professional",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var client models.Client
	decodeData(t, rec, &client)
	require.Equal(t, "Acme Corp", client.BusinessName)
	return owner, client
}

// seedCompletedScan inserts a finished scan with scored results and the lead
// it captured, simulating what the engine records after a widget submission.
func seedCompletedScan(t *testing.T, env *testEnv, clientID, scannerID uint, uid string) {
	t.Helper()

	results := map[string]interface{}{
		"target":           "example.com",
		"security_score":   72,
		"risk_level":       "Medium",
		"risk_color":       "#17a2b8",
		"grade":            "C",
		"component_scores": map[string]int{"web": 80, "email": 60},
	}
	blob, err := json.Marshal(results)
	require.NoError(t, err)

	now := time.Now()
	scan := models.Scan{
		ClientID:      clientID,
		ScannerID:     scannerID,
		UID:           uid,
		Target:        "example.com",
		ScanType:      "comprehensive",
		Status:        models.ScanStatusCompleted,
		LeadName:      "Jane Doe",
		LeadEmail:     "jane@example.com",
		LeadCompany:   "Example Inc",
		SecurityScore: 72,
		RiskLevel:     "Medium",
		Grade:         "C",
		Results:       string(blob),
		CompletedAt:   &now,
	}
	require.NoError(t, env.DB.DB().Create(&scan).Error)

	lead := models.Lead{
		ClientID:         clientID,
		Email:            "jane@example.com",
		Name:             "Jane Doe",
		Company:          "Example Inc",
		FirstScanDate:    now,
		LastScanDate:     now,
		TotalScans:       1,
		AvgSecurityScore: 72,
		Status:           models.LeadStatusNew,
	}
	require.NoError(t, env.DB.DB().Create(&lead).Error)
}

// TestAdminClientLifecycle registers a client business and manages it
func TestAdminClientLifecycle(t *testing.T) {
	env := setupEnv(t)
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	_, client := registerClientBusiness(t, env, admin)

	// Listing includes the new business
	rec := env.doJSON(t, http.MethodGet, "/api/v1/admin/clients", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var clients []models.Client
	decodeData(t, rec, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, models.SubscriptionProfessional, clients[0].SubscriptionLevel)

	// Upgrade the plan
	rec = env.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/clients/%d", client.ID), admin.AccessToken, map[string]string{
		"subscription_level": "enterprise",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Client
	decodeData(t, rec, &updated)
	assert.Equal(t, models.SubscriptionEnterprise, updated.SubscriptionLevel)

	// Dashboard reflects the platform state
	rec = env.doJSON(t, http.MethodGet, "/api/v1/admin/dashboard", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dashboard models.AdminDashboardResponse
	decodeData(t, rec, &dashboard)
	assert.Equal(t, int64(2), dashboard.TotalUsers)
	assert.Equal(t, int64(1), dashboard.TotalClients)

	// The registration and update are in the audit trail
	rec = env.doJSON(t, http.MethodGet, "/api/v1/admin/audit", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var audit []models.AuditLog
	decodeData(t, rec, &audit)
	assert.NotEmpty(t, audit)
}

// TestAdminAccessControl verifies non-admin users cannot reach admin routes
func TestAdminAccessControl(t *testing.T) {
	env := setupEnv(t)
	env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	owner := env.register(t, "acme-owner", "owner@acme.example.com", "another-strong-pass")

	rec := env.doJSON(t, http.MethodGet, "/api/v1/admin/dashboard", owner.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/api/v1/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestScannerLifecycle creates a scanner, serves its widget, and tears it down
func TestScannerLifecycle(t *testing.T) {
	env := setupEnv(t)
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	owner, _ := registerClientBusiness(t, env, admin)

	// The owner starts with an empty portal
	rec := env.doJSON(t, http.MethodGet, "/api/v1/client/dashboard", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dashboard models.ClientDashboardResponse
	decodeData(t, rec, &dashboard)
	assert.Zero(t, dashboard.ScannerCount)
	assert.Equal(t, 3, dashboard.ScannerLimit)

	// Create a scanner
	rec = env.doJSON(t, http.MethodPost, "/api/v1/client/scanners", owner.AccessToken, map[string]string{
		"name": "Homepage Widget",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var scanner models.Scanner
	decodeData(t, rec, &scanner)
	require.NotEmpty(t, scanner.UID)
	require.NotEmpty(t, scanner.APIKey)

	// The public embed page serves the generated widget
	rec = env.doJSON(t, http.MethodGet, "/scanner/"+scanner.UID+"/embed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), scanner.UID)

	// Delete the scanner and confirm it is gone
	rec = env.doJSON(t, http.MethodDelete, "/api/v1/client/scanners/"+scanner.UID, owner.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/api/v1/client/scanners/"+scanner.UID, owner.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestWidgetScanSubmission submits a scan through the API-key widget endpoint
func TestWidgetScanSubmission(t *testing.T) {
	env := setupEnv(t)
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	owner, _ := registerClientBusiness(t, env, admin)

	rec := env.doJSON(t, http.MethodPost, "/api/v1/client/scanners", owner.AccessToken, map[string]string{
		"name": "Homepage Widget",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var scanner models.Scanner
	decodeData(t, rec, &scanner)

	// Submit through the widget with the scanner's API key
	req := env.doKeyJSON(t, http.MethodPost, "/api/v1/scanner/"+scanner.UID+"/scan", scanner.APIKey, map[string]string{
		"target":  "example.com",
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"company": "Example Inc",
	})
	require.Equal(t, http.StatusAccepted, req.Code, req.Body.String())

	var submitted models.ScanSubmitResponse
	decodeData(t, req, &submitted)
	require.NotEmpty(t, submitted.ScanUID)
	assert.Equal(t, models.ScanStatusQueued, submitted.Status)

	// The widget can poll the scan while it waits for a worker
	req = env.doKeyJSON(t, http.MethodGet, "/api/v1/scanner/"+scanner.UID+"/scan/"+submitted.ScanUID, scanner.APIKey, nil)
	require.Equal(t, http.StatusOK, req.Code)

	var status models.ScanStatusResponse
	decodeData(t, req, &status)
	assert.Equal(t, models.ScanStatusQueued, status.Status)

	// A wrong key is rejected
	req = env.doKeyJSON(t, http.MethodPost, "/api/v1/scanner/"+scanner.UID+"/scan", "not-the-key", map[string]string{
		"target": "example.com",
		"email":  "jane@example.com",
	})
	assert.Equal(t, http.StatusUnauthorized, req.Code)
}

// TestClientScanAndLeadPortal walks the portal views over recorded scan data
func TestClientScanAndLeadPortal(t *testing.T) {
	env := setupEnv(t)
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	owner, client := registerClientBusiness(t, env, admin)

	rec := env.doJSON(t, http.MethodPost, "/api/v1/client/scanners", owner.AccessToken, map[string]string{
		"name": "Homepage Widget",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var scanner models.Scanner
	decodeData(t, rec, &scanner)

	seedCompletedScan(t, env, client.ID, scanner.ID, "scan_integration01")

	// Scan history and the scored result
	rec = env.doJSON(t, http.MethodGet, "/api/v1/client/scans", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var scans []models.Scan
	decodeData(t, rec, &scans)
	require.Len(t, scans, 1)

	rec = env.doJSON(t, http.MethodGet, "/api/v1/client/scans/scan_integration01", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ScanResultResponse
	decodeData(t, rec, &result)
	assert.Equal(t, 72, result.SecurityScore)
	assert.Equal(t, "C", result.Grade)

	// The PDF report renders on demand
	rec = env.doJSON(t, http.MethodGet, "/api/v1/client/scans/scan_integration01/report", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, len(rec.Body.Bytes()) > 4 && string(rec.Body.Bytes()[:4]) == "%PDF")

	// The captured lead can be worked
	rec = env.doJSON(t, http.MethodGet, "/api/v1/client/leads", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []models.Lead
	decodeData(t, rec, &leads)
	require.Len(t, leads, 1)

	rec = env.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/client/leads/%d", leads[0].ID), owner.AccessToken, map[string]string{
		"status": "contacted",
		"notes":  "left voicemail",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Lead
	decodeData(t, rec, &updated)
	assert.Equal(t, models.LeadStatusContacted, updated.Status)
}

// TestCustomizationFlow updates branding through the portal
func TestCustomizationFlow(t *testing.T) {
	env := setupEnv(t)
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	owner, _ := registerClientBusiness(t, env, admin)

	rec := env.doJSON(t, http.MethodPut, "/api/v1/client/customization", owner.AccessToken, map[string]string{
		"primary_color": "#112233",
		"email_subject": "Your Acme security report",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.doJSON(t, http.MethodGet, "/api/v1/client/customization", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var custom models.Customization
	decodeData(t, rec, &custom)
	assert.Equal(t, "#112233", custom.PrimaryColor)
	assert.Equal(t, "Your Acme security report", custom.EmailSubject)
}

// TestIntegrationKeyScanAPI exercises the programmatic scan surface that
// authenticates with the client's own API key instead of a portal session.
func TestIntegrationKeyScanAPI(t *testing.T) {
	env := setupEnv(t)
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	owner, client := registerClientBusiness(t, env, admin)

	rec := env.doJSON(t, http.MethodPost, "/api/v1/client/scanners", owner.AccessToken, map[string]string{
		"name": "Homepage Widget",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var scanner models.Scanner
	decodeData(t, rec, &scanner)

	seedCompletedScan(t, env, client.ID, scanner.ID, "scan_integration02")

	require.NotEmpty(t, client.APIKey)

	rec = env.doKeyJSON(t, http.MethodGet, "/api/v1/scans", client.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var scans []models.Scan
	decodeData(t, rec, &scans)
	require.Len(t, scans, 1)
	assert.Equal(t, "scan_integration02", scans[0].UID)

	rec = env.doKeyJSON(t, http.MethodGet, "/api/v1/scans/scan_integration02", client.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ScanResultResponse
	decodeData(t, rec, &result)
	assert.Equal(t, 72, result.SecurityScore)
	assert.Equal(t, "C", result.Grade)

	// A scanner key is not a client key
	rec = env.doKeyJSON(t, http.MethodGet, "/api/v1/scans", scanner.APIKey, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doKeyJSON(t, http.MethodGet, "/api/v1/scans", "sk_bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
