package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/deploy"
	"github.com/cybrscan/cybrscan/internal/middleware"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/scanengine"
	"github.com/cybrscan/cybrscan/internal/utils"
)

// scanUpgrader upgrades widget progress connections to WebSocket
var scanUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Widgets are embedded on arbitrary client sites
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ScanController handles the public widget API: scan submission with lead
// capture, status polling, progress streaming and widget asset serving.
type ScanController struct {
	scanRepo    repositories.ScanRepository
	scannerRepo repositories.ScannerRepository
	clientRepo  repositories.ClientRepository
	engine      *scanengine.Engine
	hub         *scanengine.Hub
	generator   *deploy.Generator
	logger      *logrus.Logger
}

// NewScanController creates a new widget scan controller
func NewScanController(
	scanRepo repositories.ScanRepository,
	scannerRepo repositories.ScannerRepository,
	clientRepo repositories.ClientRepository,
	engine *scanengine.Engine,
	hub *scanengine.Hub,
	generator *deploy.Generator,
	logger *logrus.Logger,
) *ScanController {
	return &ScanController{
		scanRepo:    scanRepo,
		scannerRepo: scannerRepo,
		clientRepo:  clientRepo,
		engine:      engine,
		hub:         hub,
		generator:   generator,
		logger:      logger,
	}
}

// scannerForRequest returns the key-authenticated scanner after checking it
// matches the :uid path segment and is not disabled.
func (ctrl *ScanController) scannerForRequest(c *gin.Context) (*models.Scanner, *models.Client, bool) {
	scanner, err := middleware.GetScanner(c)
	if err != nil {
		utils.Unauthorized(c, "Scanner API key required")
		return nil, nil, false
	}

	if scanner.UID != c.Param("uid") {
		utils.Forbidden(c, "API key does not belong to this scanner")
		return nil, nil, false
	}

	if scanner.DeployStatus == models.DeployStatusInactive {
		utils.Forbidden(c, "Scanner is disabled")
		return nil, nil, false
	}

	client, err := middleware.GetClient(c)
	if err != nil {
		utils.Unauthorized(c, "Scanner API key required")
		return nil, nil, false
	}

	return scanner, client, true
}

// SubmitScan godoc
// @Summary Submit a security scan
// @Description Queues a security scan for the given target and captures the
// @Description submitter as a sales lead. Returns 202 with the scan UID to
// @Description poll. Fails with 429 when the client's monthly scan quota is
// @Description exhausted or the queue is full.
// @Tags Widget
// @Accept json
// @Produce json
// @Param uid path string true "Scanner UID"
// @Param scan body models.ScanSubmitRequest true "Target and lead contact"
// @Success 202 {object} models.SuccessResponse{data=models.ScanSubmitResponse} "Scan queued"
// @Failure 400 {object} models.ErrorResponse "Invalid target"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid API key"
// @Failure 403 {object} models.ErrorResponse "Scanner disabled or key mismatch"
// @Failure 429 {object} models.ErrorResponse "Monthly scan quota exhausted"
// @Router /api/v1/scanner/{uid}/scan [post]
func (ctrl *ScanController) SubmitScan(c *gin.Context) {
	scanner, client, ok := ctrl.scannerForRequest(c)
	if !ok {
		return
	}

	var req models.ScanSubmitRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	target := utils.NormalizeTarget(req.Target)
	if err := utils.ValidateScanTarget(target, utils.ValidationOptions{Required: true, MaxLength: 253, StrictMode: true}); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if len(req.ScanTypes) > 0 {
		if result := utils.ValidateScanTypes(req.ScanTypes); !result.IsValid() {
			utils.BadRequest(c, result.First().Message)
			return
		}
	}

	ctx := c.Request.Context()

	used, err := ctrl.scanRepo.CountByClientSince(ctx, client.ID, startOfMonth(time.Now()))
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to check scan quota")
		utils.InternalServerError(c, "Failed to submit scan")
		return
	}
	if int(used) >= client.MonthlyScanLimit() {
		utils.TooManyRequests(c, "Monthly scan limit for this service has been reached")
		return
	}

	uid, err := auth.GenerateScanUID()
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to generate scan UID")
		utils.InternalServerError(c, "Failed to submit scan")
		return
	}

	scan := &models.Scan{
		ClientID:    client.ID,
		ScannerID:   scanner.ID,
		UID:         uid,
		Target:      target,
		ScanType:    scanTypeFor(req.ScanTypes),
		Status:      models.ScanStatusQueued,
		LeadName:    req.LeadName,
		LeadEmail:   req.LeadEmail,
		LeadPhone:   req.LeadPhone,
		LeadCompany: req.LeadCompany,
		CompanySize: req.CompanySize,
		IPAddress:   utils.GetClientIP(c),
		UserAgent:   c.Request.UserAgent(),
	}

	if err := ctrl.scanRepo.Create(ctx, scan); err != nil {
		ctrl.logger.WithError(err).Error("Failed to persist scan")
		utils.InternalServerError(c, "Failed to submit scan")
		return
	}

	if err := ctrl.engine.Submit(scan); err != nil {
		_ = ctrl.scanRepo.UpdateStatus(ctx, scan.UID, models.ScanStatusFailed, "scan could not be queued")
		if errors.Is(err, scanengine.ErrQueueFull) {
			utils.TooManyRequests(c, "Scan queue is full, try again shortly")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to queue scan")
		utils.ServiceUnavailable(c, "Scanning is temporarily unavailable")
		return
	}

	c.JSON(http.StatusAccepted, models.SuccessResponse{
		Success: true,
		Data: models.ScanSubmitResponse{
			ScanUID: scan.UID,
			Status:  scan.Status,
			Target:  scan.Target,
		},
		Meta: models.MetadataResponse{
			Timestamp: time.Now(),
			RequestID: utils.GetRequestID(c),
		},
	})
}

// GetScan godoc
// @Summary Poll a scan's status and results
// @Description Returns lifecycle status while the scan runs and the scored
// @Description results once it completes.
// @Tags Widget
// @Produce json
// @Param uid path string true "Scanner UID"
// @Param scan_uid path string true "Scan UID"
// @Success 200 {object} models.SuccessResponse{data=models.ScanResultResponse} "Scan state"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid API key"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Router /api/v1/scanner/{uid}/scan/{scan_uid} [get]
func (ctrl *ScanController) GetScan(c *gin.Context) {
	_, client, ok := ctrl.scannerForRequest(c)
	if !ok {
		return
	}

	scan, ok := ctrl.loadScan(c, client)
	if !ok {
		return
	}

	if scan.Status == models.ScanStatusCompleted {
		utils.SuccessResponse(c, scanResultResponse(scan))
		return
	}

	utils.SuccessResponse(c, models.ScanStatusResponse{
		ScanUID:     scan.UID,
		Status:      scan.Status,
		Progress:    progressFor(scan.Status),
		Error:       scan.Error,
		CompletedAt: scan.CompletedAt,
	})
}

// StreamScanEvents godoc
// @Summary Stream scan progress over SSE
// @Description Streams progress events for a running scan as server-sent
// @Description events. The stream ends when the scan reaches a final state.
// @Tags Widget
// @Produce text/event-stream
// @Param uid path string true "Scanner UID"
// @Param scan_uid path string true "Scan UID"
// @Success 200 {string} string "SSE stream of progress events"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Router /api/v1/scanner/{uid}/scan/{scan_uid}/events [get]
func (ctrl *ScanController) StreamScanEvents(c *gin.Context) {
	_, client, ok := ctrl.scannerForRequest(c)
	if !ok {
		return
	}

	scan, ok := ctrl.loadScan(c, client)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// The server's write timeout is shorter than a full scan, so lift it
	// for the lifetime of the stream. Writers that cannot adjust deadlines
	// (test recorders) are left alone.
	if err := clearWriteDeadline(c.Writer); err != nil && !errors.Is(err, http.ErrNotSupported) {
		ctrl.logger.WithError(err).Debug("Failed to clear write deadline for SSE stream")
	}

	// Terminal scans get a single synthetic event instead of a subscription
	if scan.IsTerminal() {
		event := progressEventFor(scan)
		data, _ := json.Marshal(event)
		sse.Encode(c.Writer, sse.Event{Event: "progress", Data: string(data)})
		return
	}

	events, cancel := ctrl.hub.Subscribe(scan.UID)
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-events:
			if !open {
				return false
			}
			data, err := json.Marshal(toScanProgressEvent(event))
			if err != nil {
				ctrl.logger.WithError(err).Error("Failed to encode progress event")
				return true
			}
			sse.Encode(w, sse.Event{Event: "progress", Data: string(data)})
			return !event.Done
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// StreamScanSocket godoc
// @Summary Stream scan progress over WebSocket
// @Description Upgrades the connection and pushes JSON progress events until
// @Description the scan reaches a final state.
// @Tags Widget
// @Param uid path string true "Scanner UID"
// @Param scan_uid path string true "Scan UID"
// @Success 101 {string} string "Switching protocols"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Router /api/v1/scanner/{uid}/scan/{scan_uid}/ws [get]
func (ctrl *ScanController) StreamScanSocket(c *gin.Context) {
	_, client, ok := ctrl.scannerForRequest(c)
	if !ok {
		return
	}

	scan, ok := ctrl.loadScan(c, client)
	if !ok {
		return
	}

	// The upgrade hijacks the connection and clears its deadlines, so the
	// server-wide write timeout does not apply to the socket.
	ws, err := scanUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctrl.logger.WithError(err).Warn("Failed to upgrade progress connection")
		return
	}
	defer ws.Close()

	if scan.IsTerminal() {
		_ = ws.WriteJSON(progressEventFor(scan))
		return
	}

	events, cancel := ctrl.hub.Subscribe(scan.UID)
	defer cancel()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			if err := ws.WriteJSON(toScanProgressEvent(event)); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					ctrl.logger.WithError(err).Debug("Progress socket closed unexpectedly")
				}
				return
			}
			if event.Done {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// ServeWidgetPage godoc
// @Summary Serve the embeddable scanner page
// @Description Serves the scanner widget's HTML page for iframe embedding.
// @Description Stale deployments are regenerated on demand.
// @Tags Widget
// @Produce html
// @Param uid path string true "Scanner UID"
// @Success 200 {string} string "Widget page"
// @Failure 404 {object} models.ErrorResponse "Scanner not found"
// @Router /scanner/{uid}/embed [get]
func (ctrl *ScanController) ServeWidgetPage(c *gin.Context) {
	ctrl.serveWidgetAsset(c, deploy.FileIndex, "text/html; charset=utf-8")
}

// ServeWidgetAsset serves the widget's static css/js companion files
func (ctrl *ScanController) ServeWidgetAsset(c *gin.Context) {
	switch c.Param("file") {
	case deploy.FileCSS:
		ctrl.serveWidgetAsset(c, deploy.FileCSS, "text/css; charset=utf-8")
	case deploy.FileJS:
		ctrl.serveWidgetAsset(c, deploy.FileJS, "application/javascript; charset=utf-8")
	case deploy.FileDocs:
		ctrl.serveWidgetAsset(c, deploy.FileDocs, "text/markdown; charset=utf-8")
	default:
		utils.NotFound(c, "Asset not found")
	}
}

func (ctrl *ScanController) serveWidgetAsset(c *gin.Context, file, contentType string) {
	uid := c.Param("uid")

	scanner, err := ctrl.scannerRepo.GetByUID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "Scanner not found")
			return
		}
		ctrl.logger.WithError(err).WithField("scanner_uid", uid).Error("Failed to fetch scanner")
		utils.InternalServerError(c, "Failed to serve widget")
		return
	}

	if scanner.DeployStatus == models.DeployStatusInactive {
		utils.NotFound(c, "Scanner not found")
		return
	}

	// Regenerate stale or missing deployments before serving
	client, err := ctrl.clientRepo.GetByID(c.Request.Context(), scanner.ClientID)
	if err != nil {
		ctrl.logger.WithError(err).WithField("scanner_uid", uid).Error("Failed to load client for widget")
		utils.InternalServerError(c, "Failed to serve widget")
		return
	}
	if !client.Active {
		utils.NotFound(c, "Scanner not found")
		return
	}
	if ctrl.generator.NeedsRegeneration(scanner, client) {
		if err := ctrl.generator.Generate(c.Request.Context(), scanner, client); err != nil {
			ctrl.logger.WithError(err).WithField("scanner_uid", uid).Error("Failed to regenerate widget assets")
		}
	}

	path := ctrl.generator.AssetPath(uid, file)
	data, err := os.ReadFile(path)
	if err != nil {
		ctrl.logger.WithError(err).WithField("path", path).Error("Failed to read widget asset")
		utils.NotFound(c, "Widget assets are not deployed")
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

// ListClientScans godoc
// @Summary List scans over the integration API
// @Description Lists the authenticated client's scans, newest first. This is
// @Description the programmatic surface for integrations holding a client
// @Description API key rather than a portal session.
// @Tags Integration
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.Scan} "Scans"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid API key"
// @Router /api/v1/scans [get]
func (ctrl *ScanController) ListClientScans(c *gin.Context) {
	client, ok := ctrl.clientForRequest(c)
	if !ok {
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	scans, total, err := ctrl.scanRepo.ListByClient(c.Request.Context(), client.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		ctrl.logger.WithError(err).WithField("clientID", client.ID).Error("Failed to list scans")
		utils.InternalServerError(c, "Failed to list scans")
		return
	}

	utils.PaginatedResponse(c, scans, page, pageSize, int(total))
}

// GetClientScan godoc
// @Summary Fetch a scan over the integration API
// @Description Returns lifecycle status while the scan runs and the scored
// @Description results once it completes.
// @Tags Integration
// @Produce json
// @Param scan_uid path string true "Scan UID"
// @Success 200 {object} models.SuccessResponse{data=models.ScanResultResponse} "Scan state"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid API key"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Router /api/v1/scans/{scan_uid} [get]
func (ctrl *ScanController) GetClientScan(c *gin.Context) {
	client, ok := ctrl.clientForRequest(c)
	if !ok {
		return
	}

	scan, ok := ctrl.loadScan(c, client)
	if !ok {
		return
	}

	if scan.Status == models.ScanStatusCompleted {
		utils.SuccessResponse(c, scanResultResponse(scan))
		return
	}

	utils.SuccessResponse(c, models.ScanStatusResponse{
		ScanUID:     scan.UID,
		Status:      scan.Status,
		Progress:    progressFor(scan.Status),
		Error:       scan.Error,
		CompletedAt: scan.CompletedAt,
	})
}

// clientForRequest returns the key-authenticated client on integration routes
func (ctrl *ScanController) clientForRequest(c *gin.Context) (*models.Client, bool) {
	client, err := middleware.GetClient(c)
	if err != nil {
		utils.Unauthorized(c, "Client API key required")
		return nil, false
	}
	return client, true
}

// loadScan fetches the scan at :scan_uid and verifies it belongs to the
// authenticated scanner's client
func (ctrl *ScanController) loadScan(c *gin.Context, client *models.Client) (*models.Scan, bool) {
	uid := c.Param("scan_uid")
	scan, err := ctrl.scanRepo.GetByUID(c.Request.Context(), uid)
	if err != nil || scan.ClientID != client.ID {
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			ctrl.logger.WithError(err).WithField("scan_uid", uid).Error("Failed to fetch scan")
			utils.InternalServerError(c, "Failed to retrieve scan")
			return nil, false
		}
		utils.NotFound(c, "Scan not found")
		return nil, false
	}
	return scan, true
}

// scanTypeFor reduces the requested scan type list to the stored scan type
func scanTypeFor(types []string) string {
	if len(types) == 1 && types[0] != "" {
		return types[0]
	}
	return "comprehensive"
}

// clearWriteDeadline removes the connection's write deadline so a progress
// stream can outlive the server-wide write timeout. Scans run for minutes;
// the timeout guards ordinary request handlers.
func clearWriteDeadline(w http.ResponseWriter) error {
	return http.NewResponseController(w).SetWriteDeadline(time.Time{})
}

// progressFor approximates poll progress from lifecycle state; live
// percentages come from the event stream
func progressFor(status models.ScanStatus) int {
	switch status {
	case models.ScanStatusQueued:
		return 0
	case models.ScanStatusRunning:
		return 50
	default:
		return 100
	}
}

// progressEventFor synthesizes a final progress event from a stored scan
func progressEventFor(scan *models.Scan) models.ScanProgressEvent {
	event := models.ScanProgressEvent{
		ScanUID:   scan.UID,
		Status:    scan.Status,
		Progress:  100,
		Timestamp: time.Now(),
	}
	if scan.Status == models.ScanStatusFailed {
		event.Message = scan.Error
	}
	return event
}

// toScanProgressEvent converts an engine event into the API shape
func toScanProgressEvent(event scanengine.ProgressEvent) models.ScanProgressEvent {
	status := models.ScanStatus(event.Status)
	if status == "" {
		status = models.ScanStatusRunning
	}
	return models.ScanProgressEvent{
		ScanUID:   event.ScanUID,
		Status:    status,
		Phase:     event.Phase,
		Message:   event.Message,
		Progress:  event.Percent,
		Timestamp: event.Timestamp,
	}
}

// scanResultResponse builds the full result payload for a completed scan
func scanResultResponse(scan *models.Scan) models.ScanResultResponse {
	resp := models.ScanResultResponse{
		ScanUID:              scan.UID,
		Target:               scan.Target,
		Status:               scan.Status,
		SecurityScore:        scan.SecurityScore,
		RiskLevel:            scan.RiskLevel,
		RiskColor:            scan.RiskColor,
		Grade:                scan.Grade,
		VulnerabilitiesFound: scan.VulnerabilitiesFound,
		RecommendationsCount: scan.RecommendationsCount,
		DurationMs:           scan.DurationMs,
		CompletedAt:          scan.CompletedAt,
	}

	if scan.Results != "" {
		var results scanengine.Results
		if err := json.Unmarshal([]byte(scan.Results), &results); err == nil {
			resp.Results = &results
			resp.ComponentScores = results.ComponentScores
		}
	}

	return resp
}
