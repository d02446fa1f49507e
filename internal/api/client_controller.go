package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/deploy"
	"github.com/cybrscan/cybrscan/internal/middleware"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/report"
	"github.com/cybrscan/cybrscan/internal/utils"
)

// ClientController handles the client portal: the client's dashboard,
// scanner widget management, branding, scan history and lead follow-up.
type ClientController struct {
	clientRepo  repositories.ClientRepository
	scannerRepo repositories.ScannerRepository
	scanRepo    repositories.ScanRepository
	leadRepo    repositories.LeadRepository
	auditRepo   repositories.AuditRepository
	generator   *deploy.Generator
	reports     *report.Service
	logger      *logrus.Logger
}

// NewClientController creates a new client portal controller
func NewClientController(
	clientRepo repositories.ClientRepository,
	scannerRepo repositories.ScannerRepository,
	scanRepo repositories.ScanRepository,
	leadRepo repositories.LeadRepository,
	auditRepo repositories.AuditRepository,
	generator *deploy.Generator,
	reports *report.Service,
	logger *logrus.Logger,
) *ClientController {
	return &ClientController{
		clientRepo:  clientRepo,
		scannerRepo: scannerRepo,
		scanRepo:    scanRepo,
		leadRepo:    leadRepo,
		auditRepo:   auditRepo,
		generator:   generator,
		reports:     reports,
		logger:      logger,
	}
}

// currentClient resolves the client business owned by the authenticated user.
// It writes the error response itself when resolution fails.
func (ctrl *ClientController) currentClient(c *gin.Context) (*models.Client, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.Unauthorized(c, "Authentication required")
		return nil, false
	}

	client, err := ctrl.clientRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.Forbidden(c, "No client business is registered for this account")
			return nil, false
		}
		ctrl.logger.WithError(err).WithField("userID", userID).Error("Failed to resolve client")
		utils.InternalServerError(c, "Failed to resolve client account")
		return nil, false
	}

	if !client.Active {
		utils.Forbidden(c, "Client account is deactivated")
		return nil, false
	}

	return client, true
}

// Dashboard godoc
// @Summary Client dashboard
// @Description Returns the client's activity summary: scanner and scan usage
// @Description against plan limits, lead counts and recent scans.
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse{data=models.ClientDashboardResponse} "Dashboard data"
// @Failure 403 {object} models.ErrorResponse "No client registered"
// @Router /client/dashboard [get]
func (ctrl *ClientController) Dashboard(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	resp := models.ClientDashboardResponse{
		Client:       client,
		ScannerLimit: client.ScannerLimit(),
		MonthlyLimit: client.MonthlyScanLimit(),
	}

	var err error
	if resp.ScannerCount, err = ctrl.scannerRepo.CountByClient(ctx, client.ID); err != nil {
		ctrl.dashboardError(c, err, "count scanners")
		return
	}
	if _, resp.TotalScans, err = ctrl.scanRepo.ListByClient(ctx, client.ID, 0, 1); err != nil {
		ctrl.dashboardError(c, err, "count scans")
		return
	}
	if resp.ScansThisMonth, err = ctrl.scanRepo.CountByClientSince(ctx, client.ID, startOfMonth(time.Now())); err != nil {
		ctrl.dashboardError(c, err, "count scans this month")
		return
	}
	if resp.TotalLeads, err = ctrl.leadRepo.CountByClient(ctx, client.ID); err != nil {
		ctrl.dashboardError(c, err, "count leads")
		return
	}
	if resp.NewLeads, err = ctrl.leadRepo.CountByStatus(ctx, client.ID, models.LeadStatusNew); err != nil {
		ctrl.dashboardError(c, err, "count new leads")
		return
	}
	if resp.AverageScore, err = ctrl.scanRepo.AverageScore(ctx, client.ID); err != nil {
		ctrl.dashboardError(c, err, "average score")
		return
	}
	if resp.RecentScans, err = ctrl.scanRepo.ListRecentByClient(ctx, client.ID, 10); err != nil {
		ctrl.dashboardError(c, err, "recent scans")
		return
	}

	utils.SuccessResponse(c, resp)
}

func (ctrl *ClientController) dashboardError(c *gin.Context, err error, what string) {
	ctrl.logger.WithError(err).WithField("query", what).Error("Failed to build client dashboard")
	utils.InternalServerError(c, "Failed to load dashboard data")
}

// ListScanners godoc
// @Summary List the client's scanner widgets
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.Scanner} "Scanners"
// @Router /client/scanners [get]
func (ctrl *ClientController) ListScanners(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	scanners, total, err := ctrl.scannerRepo.ListByClient(c.Request.Context(), client.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		ctrl.logger.WithError(err).WithField("clientID", client.ID).Error("Failed to list scanners")
		utils.InternalServerError(c, "Failed to list scanners")
		return
	}

	utils.PaginatedResponse(c, scanners, page, pageSize, int(total))
}

// CreateScanner godoc
// @Summary Deploy a new scanner widget
// @Description Creates a scanner widget and generates its embeddable assets.
// @Description Fails with 403 when the plan's scanner limit is reached.
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param scanner body models.ScannerCreateRequest true "Scanner details"
// @Success 201 {object} models.SuccessResponse{data=models.Scanner} "Created scanner"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 403 {object} models.ErrorResponse "Scanner limit reached"
// @Router /client/scanners [post]
func (ctrl *ClientController) CreateScanner(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	var req models.ScannerCreateRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := utils.ValidateScannerName(req.Name); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if req.Subdomain != "" {
		if err := utils.ValidateSubdomain(req.Subdomain); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()

	count, err := ctrl.scannerRepo.CountByClient(ctx, client.ID)
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to count scanners")
		utils.InternalServerError(c, "Failed to create scanner")
		return
	}
	if int(count) >= client.ScannerLimit() {
		utils.Forbidden(c, "Scanner limit for your subscription has been reached")
		return
	}

	uid, err := auth.GenerateScannerUID()
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to generate scanner UID")
		utils.InternalServerError(c, "Failed to create scanner")
		return
	}
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to generate scanner API key")
		utils.InternalServerError(c, "Failed to create scanner")
		return
	}

	subdomain := req.Subdomain
	if subdomain == "" {
		subdomain = utils.SanitizeSubdomain(req.Name) + "-" + uid[len(uid)-6:]
	}

	scanner := &models.Scanner{
		ClientID:     client.ID,
		UID:          uid,
		Name:         req.Name,
		Subdomain:    subdomain,
		Domain:       req.Domain,
		APIKey:       apiKey,
		DeployStatus: models.DeployStatusPending,
	}

	if err := ctrl.scannerRepo.Create(ctx, scanner); err != nil {
		ctrl.logger.WithError(err).Error("Failed to create scanner")
		utils.InternalServerError(c, "Failed to create scanner")
		return
	}

	if err := ctrl.generator.Generate(ctx, scanner, client); err != nil {
		// The scanner row exists; deployment can be retried via update
		ctrl.logger.WithError(err).WithField("scanner_uid", uid).Error("Failed to generate widget assets")
	}

	ctrl.audit(c, "create", "scanner", scanner.ID, req)

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    scanner,
		Meta: models.MetadataResponse{
			Timestamp: time.Now(),
			RequestID: utils.GetRequestID(c),
		},
	})
}

// GetScanner godoc
// @Summary Get one of the client's scanners
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Scanner UID"
// @Success 200 {object} models.SuccessResponse{data=models.Scanner} "Scanner"
// @Failure 404 {object} models.ErrorResponse "Scanner not found"
// @Router /client/scanners/{uid} [get]
func (ctrl *ClientController) GetScanner(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scanner, ok := ctrl.ownedScanner(c, client)
	if !ok {
		return
	}

	utils.SuccessResponse(c, scanner)
}

// UpdateScanner godoc
// @Summary Update a scanner widget
// @Description Updates scanner settings and regenerates widget assets when
// @Description the deployment is stale.
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Scanner UID"
// @Param scanner body models.ScannerUpdateRequest true "Fields to update"
// @Success 200 {object} models.SuccessResponse{data=models.Scanner} "Updated scanner"
// @Failure 404 {object} models.ErrorResponse "Scanner not found"
// @Router /client/scanners/{uid} [put]
func (ctrl *ClientController) UpdateScanner(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scanner, ok := ctrl.ownedScanner(c, client)
	if !ok {
		return
	}

	var req models.ScannerUpdateRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	if req.Name != "" {
		if err := utils.ValidateScannerName(req.Name); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		scanner.Name = req.Name
	}
	if req.Subdomain != "" {
		if err := utils.ValidateSubdomain(req.Subdomain); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		scanner.Subdomain = utils.SanitizeSubdomain(req.Subdomain)
	}
	if req.Domain != "" {
		scanner.Domain = req.Domain
	}
	if req.DeployStatus != "" {
		scanner.DeployStatus = models.DeployStatus(req.DeployStatus)
	}

	ctx := c.Request.Context()
	if err := ctrl.scannerRepo.Update(ctx, scanner); err != nil {
		ctrl.logger.WithError(err).WithField("scanner_uid", scanner.UID).Error("Failed to update scanner")
		utils.InternalServerError(c, "Failed to update scanner")
		return
	}

	if scanner.DeployStatus != models.DeployStatusInactive {
		if err := ctrl.generator.Generate(ctx, scanner, client); err != nil {
			ctrl.logger.WithError(err).WithField("scanner_uid", scanner.UID).Error("Failed to regenerate widget assets")
		}
	}

	ctrl.audit(c, "update", "scanner", scanner.ID, req)

	utils.SuccessResponse(c, scanner)
}

// DeleteScanner godoc
// @Summary Delete a scanner widget
// @Description Removes the scanner and its deployed widget assets. Scan
// @Description history from the scanner is retained.
// @Tags Client
// @Security BearerAuth
// @Param uid path string true "Scanner UID"
// @Success 204 "Scanner deleted"
// @Failure 404 {object} models.ErrorResponse "Scanner not found"
// @Router /client/scanners/{uid} [delete]
func (ctrl *ClientController) DeleteScanner(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scanner, ok := ctrl.ownedScanner(c, client)
	if !ok {
		return
	}

	if err := ctrl.scannerRepo.Delete(c.Request.Context(), scanner.ID); err != nil {
		ctrl.logger.WithError(err).WithField("scanner_uid", scanner.UID).Error("Failed to delete scanner")
		utils.InternalServerError(c, "Failed to delete scanner")
		return
	}

	if err := ctrl.generator.Remove(scanner.UID); err != nil {
		ctrl.logger.WithError(err).WithField("scanner_uid", scanner.UID).Warn("Failed to remove widget assets")
	}

	ctrl.audit(c, "delete", "scanner", scanner.ID, nil)

	c.Status(http.StatusNoContent)
}

// DownloadScannerBundle godoc
// @Summary Download widget assets as an archive
// @Description Streams the scanner's deployed widget files as a tar.gz for
// @Description self-hosting.
// @Tags Client
// @Produce application/gzip
// @Security BearerAuth
// @Param uid path string true "Scanner UID"
// @Success 200 {file} binary "Widget asset archive"
// @Failure 404 {object} models.ErrorResponse "Scanner not found or not deployed"
// @Router /client/scanners/{uid}/bundle [get]
func (ctrl *ClientController) DownloadScannerBundle(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scanner, ok := ctrl.ownedScanner(c, client)
	if !ok {
		return
	}

	bundle, err := ctrl.generator.Bundle(scanner.UID)
	if err != nil {
		ctrl.logger.WithError(err).WithField("scanner_uid", scanner.UID).Error("Failed to build widget bundle")
		utils.NotFound(c, "Widget assets are not deployed for this scanner")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+scanner.UID+".tar.gz")
	c.Header("Content-Type", "application/gzip")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, bundle); err != nil {
		ctrl.logger.WithError(err).Warn("Failed to stream widget bundle")
	}
}

// GetCustomization godoc
// @Summary Get widget branding
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse{data=models.Customization} "Branding"
// @Router /client/customization [get]
func (ctrl *ClientController) GetCustomization(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	custom, err := ctrl.clientRepo.GetCustomization(c.Request.Context(), client.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.SuccessResponse(c, &models.Customization{ClientID: client.ID})
			return
		}
		ctrl.logger.WithError(err).WithField("clientID", client.ID).Error("Failed to fetch customization")
		utils.InternalServerError(c, "Failed to retrieve branding")
		return
	}

	utils.SuccessResponse(c, custom)
}

// UpdateCustomization godoc
// @Summary Update widget branding
// @Description Updates branding and email text, then regenerates the widget
// @Description assets of every deployed scanner so changes go live immediately.
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param branding body models.CustomizationUpdateRequest true "Branding fields"
// @Success 200 {object} models.SuccessResponse{data=models.Customization} "Updated branding"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Router /client/customization [put]
func (ctrl *ClientController) UpdateCustomization(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	var req models.CustomizationUpdateRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	for _, color := range []string{req.PrimaryColor, req.SecondaryColor, req.ButtonColor} {
		if color == "" {
			continue
		}
		if err := utils.ValidateHexColor(color); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
	}
	if len(req.DefaultScanTypes) > 0 {
		if result := utils.ValidateScanTypes(req.DefaultScanTypes); !result.IsValid() {
			utils.BadRequest(c, result.First().Message)
			return
		}
	}

	ctx := c.Request.Context()

	custom, err := ctrl.clientRepo.GetCustomization(ctx, client.ID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			ctrl.logger.WithError(err).WithField("clientID", client.ID).Error("Failed to fetch customization")
			utils.InternalServerError(c, "Failed to update branding")
			return
		}
		custom = &models.Customization{ClientID: client.ID}
	}

	if req.PrimaryColor != "" {
		custom.PrimaryColor = req.PrimaryColor
	}
	if req.SecondaryColor != "" {
		custom.SecondaryColor = req.SecondaryColor
	}
	if req.ButtonColor != "" {
		custom.ButtonColor = req.ButtonColor
	}
	if req.LogoURL != "" {
		custom.LogoURL = req.LogoURL
	}
	if req.FaviconURL != "" {
		custom.FaviconURL = req.FaviconURL
	}
	if req.EmailSubject != "" {
		custom.EmailSubject = req.EmailSubject
	}
	if req.EmailIntro != "" {
		custom.EmailIntro = req.EmailIntro
	}
	if req.EmailFooter != "" {
		custom.EmailFooter = req.EmailFooter
	}
	if req.CSSOverride != "" {
		custom.CSSOverride = req.CSSOverride
	}
	if len(req.DefaultScanTypes) > 0 {
		encoded, err := json.Marshal(req.DefaultScanTypes)
		if err == nil {
			custom.DefaultScanTypes = string(encoded)
		}
	}
	if userID, err := middleware.GetUserID(c); err == nil {
		custom.UpdatedBy = userID
	}

	if err := ctrl.clientRepo.UpsertCustomization(ctx, custom); err != nil {
		ctrl.logger.WithError(err).WithField("clientID", client.ID).Error("Failed to store customization")
		utils.InternalServerError(c, "Failed to update branding")
		return
	}

	// Push the new branding into every live widget
	client.Customization = custom
	scanners, _, err := ctrl.scannerRepo.ListByClient(ctx, client.ID, 0, 100)
	if err != nil {
		ctrl.logger.WithError(err).Warn("Failed to list scanners for redeployment")
	} else {
		for i := range scanners {
			if scanners[i].DeployStatus == models.DeployStatusInactive {
				continue
			}
			if err := ctrl.generator.Generate(ctx, &scanners[i], client); err != nil {
				ctrl.logger.WithError(err).WithField("scanner_uid", scanners[i].UID).Error("Failed to regenerate widget assets")
			}
		}
	}

	ctrl.audit(c, "update", "customization", client.ID, req)

	utils.SuccessResponse(c, custom)
}

// ListScans godoc
// @Summary List the client's scan history
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.Scan} "Scans"
// @Router /client/scans [get]
func (ctrl *ClientController) ListScans(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
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

// GetScan godoc
// @Summary Get a scan with full results
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Scan UID"
// @Success 200 {object} models.SuccessResponse{data=models.ScanResultResponse} "Scan results"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Router /client/scans/{uid} [get]
func (ctrl *ClientController) GetScan(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scan, ok := ctrl.ownedScan(c, client)
	if !ok {
		return
	}

	utils.SuccessResponse(c, scanResultResponse(scan))
}

// DownloadReport godoc
// @Summary Download a scan's PDF report
// @Description Renders the report on first download and streams the PDF.
// @Tags Client
// @Produce application/pdf
// @Security BearerAuth
// @Param uid path string true "Scan UID"
// @Success 200 {file} binary "PDF report"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Failure 409 {object} models.ErrorResponse "Scan has not completed"
// @Router /client/scans/{uid}/report [get]
func (ctrl *ClientController) DownloadReport(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scan, ok := ctrl.ownedScan(c, client)
	if !ok {
		return
	}

	data, err := ctrl.reports.Open(c.Request.Context(), scan, client)
	if err != nil {
		if errors.Is(err, report.ErrScanNotCompleted) {
			utils.Conflict(c, "Scan has not completed yet")
			return
		}
		ctrl.logger.WithError(err).WithField("scan_uid", scan.UID).Error("Failed to produce report")
		utils.InternalServerError(c, "Failed to produce report")
		return
	}

	utils.FileResponse(c, data, "security-report-"+scan.UID+".pdf", "application/pdf")
}

// EmailReport godoc
// @Summary Email a scan's PDF report to the lead
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Scan UID"
// @Success 202 {object} models.SuccessResponse "Report queued for delivery"
// @Failure 404 {object} models.ErrorResponse "Scan not found"
// @Failure 409 {object} models.ErrorResponse "Scan has not completed"
// @Failure 503 {object} models.ErrorResponse "Mail delivery not configured"
// @Router /client/scans/{uid}/report/email [post]
func (ctrl *ClientController) EmailReport(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	scan, ok := ctrl.ownedScan(c, client)
	if !ok {
		return
	}

	if err := ctrl.reports.Email(c.Request.Context(), scan, client); err != nil {
		switch {
		case errors.Is(err, report.ErrScanNotCompleted):
			utils.Conflict(c, "Scan has not completed yet")
		case errors.Is(err, report.ErrMailDisabled):
			utils.ServiceUnavailable(c, "Mail delivery is not configured")
		default:
			ctrl.logger.WithError(err).WithField("scan_uid", scan.UID).Error("Failed to email report")
			utils.InternalServerError(c, "Failed to email report")
		}
		return
	}

	ctrl.audit(c, "email_report", "scan", scan.ID, nil)

	utils.StatusAccepted(c, "Report sent to "+scan.LeadEmail)
}

// ListLeads godoc
// @Summary List captured leads
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(new, contacted, qualified, converted)
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.Lead} "Leads"
// @Router /client/leads [get]
func (ctrl *ClientController) ListLeads(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	offset := (page - 1) * pageSize

	var (
		leads []models.Lead
		total int64
		err   error
	)
	if status := c.Query("status"); status != "" {
		leads, total, err = ctrl.leadRepo.ListByStatus(c.Request.Context(), client.ID, models.LeadStatus(status), offset, pageSize)
	} else {
		leads, total, err = ctrl.leadRepo.ListByClient(c.Request.Context(), client.ID, offset, pageSize)
	}
	if err != nil {
		ctrl.logger.WithError(err).WithField("clientID", client.ID).Error("Failed to list leads")
		utils.InternalServerError(c, "Failed to list leads")
		return
	}

	utils.PaginatedResponse(c, leads, page, pageSize, int(total))
}

// UpdateLead godoc
// @Summary Update a lead's follow-up state
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param lead body models.LeadUpdateRequest true "Status and notes"
// @Success 200 {object} models.SuccessResponse{data=models.Lead} "Updated lead"
// @Failure 404 {object} models.ErrorResponse "Lead not found"
// @Router /client/leads/{id} [put]
func (ctrl *ClientController) UpdateLead(c *gin.Context) {
	client, ok := ctrl.currentClient(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.LeadUpdateRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	lead, err := ctrl.leadRepo.GetByID(ctx, id)
	if err != nil || lead.ClientID != client.ID {
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			ctrl.logger.WithError(err).WithField("leadID", id).Error("Failed to fetch lead")
			utils.InternalServerError(c, "Failed to update lead")
			return
		}
		utils.NotFound(c, "Lead not found")
		return
	}

	if req.Status != "" {
		lead.Status = models.LeadStatus(req.Status)
	}
	if req.Notes != "" {
		lead.Notes = req.Notes
	}

	if err := ctrl.leadRepo.Update(ctx, lead); err != nil {
		ctrl.logger.WithError(err).WithField("leadID", id).Error("Failed to update lead")
		utils.InternalServerError(c, "Failed to update lead")
		return
	}

	ctrl.audit(c, "update", "lead", lead.ID, req)

	utils.SuccessResponse(c, lead)
}

// ownedScanner loads the scanner at :uid and verifies client ownership
func (ctrl *ClientController) ownedScanner(c *gin.Context, client *models.Client) (*models.Scanner, bool) {
	uid := c.Param("uid")
	scanner, err := ctrl.scannerRepo.GetByUID(c.Request.Context(), uid)
	if err != nil || scanner.ClientID != client.ID {
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			ctrl.logger.WithError(err).WithField("scanner_uid", uid).Error("Failed to fetch scanner")
			utils.InternalServerError(c, "Failed to retrieve scanner")
			return nil, false
		}
		utils.NotFound(c, "Scanner not found")
		return nil, false
	}
	return scanner, true
}

// ownedScan loads the scan at :uid and verifies client ownership
func (ctrl *ClientController) ownedScan(c *gin.Context, client *models.Client) (*models.Scan, bool) {
	uid := c.Param("uid")
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

// audit writes an audit entry for a client action, logging on failure
func (ctrl *ClientController) audit(c *gin.Context, action, entityType string, entityID uint, changes interface{}) {
	if ctrl.auditRepo == nil {
		return
	}
	var userID *uint
	if id, err := middleware.GetUserID(c); err == nil {
		userID = &id
	}
	if err := ctrl.auditRepo.RecordChange(c.Request.Context(), userID, action, entityType, entityID, changes, utils.GetClientIP(c)); err != nil {
		ctrl.logger.WithError(err).WithField("action", action).Warn("Failed to record audit entry")
	}
}
