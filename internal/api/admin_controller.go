package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/middleware"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/utils"
)

// systemSettingsKey is the settings-store key for platform configuration
const systemSettingsKey = "system.settings"

// AdminController handles MSP admin endpoints: the platform dashboard,
// user management, client onboarding and platform settings.
type AdminController struct {
	authService  auth.Service
	userRepo     repositories.UserRepository
	clientRepo   repositories.ClientRepository
	scannerRepo  repositories.ScannerRepository
	scanRepo     repositories.ScanRepository
	leadRepo     repositories.LeadRepository
	auditRepo    repositories.AuditRepository
	settingsRepo *repositories.SettingsRepository
	logger       *logrus.Logger
}

// NewAdminController creates a new admin controller
func NewAdminController(
	authService auth.Service,
	userRepo repositories.UserRepository,
	clientRepo repositories.ClientRepository,
	scannerRepo repositories.ScannerRepository,
	scanRepo repositories.ScanRepository,
	leadRepo repositories.LeadRepository,
	auditRepo repositories.AuditRepository,
	settingsRepo *repositories.SettingsRepository,
	logger *logrus.Logger,
) *AdminController {
	return &AdminController{
		authService:  authService,
		userRepo:     userRepo,
		clientRepo:   clientRepo,
		scannerRepo:  scannerRepo,
		scanRepo:     scanRepo,
		leadRepo:     leadRepo,
		auditRepo:    auditRepo,
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// Dashboard godoc
// @Summary Platform dashboard
// @Description Returns platform-wide aggregates for the MSP admin dashboard.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse{data=models.AdminDashboardResponse} "Dashboard data"
// @Failure 401 {object} models.ErrorResponse "Authentication required"
// @Failure 403 {object} models.ErrorResponse "Admin role required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /admin/dashboard [get]
func (ctrl *AdminController) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	var resp models.AdminDashboardResponse
	var err error

	if _, resp.TotalUsers, err = ctrl.userRepo.List(ctx, 0, 1); err != nil {
		ctrl.dashboardError(c, err, "count users")
		return
	}
	if resp.TotalClients, err = ctrl.clientRepo.Count(ctx); err != nil {
		ctrl.dashboardError(c, err, "count clients")
		return
	}
	if resp.ActiveClients, err = ctrl.clientRepo.CountActive(ctx); err != nil {
		ctrl.dashboardError(c, err, "count active clients")
		return
	}
	if resp.TotalScanners, err = ctrl.scannerRepo.Count(ctx); err != nil {
		ctrl.dashboardError(c, err, "count scanners")
		return
	}
	if resp.TotalScans, err = ctrl.scanRepo.Count(ctx); err != nil {
		ctrl.dashboardError(c, err, "count scans")
		return
	}
	if resp.TotalLeads, err = ctrl.leadRepo.Count(ctx); err != nil {
		ctrl.dashboardError(c, err, "count leads")
		return
	}
	if resp.ScansThisMonth, err = ctrl.scanRepo.CountSince(ctx, startOfMonth(time.Now())); err != nil {
		ctrl.dashboardError(c, err, "count scans this month")
		return
	}
	if resp.AverageScore, err = ctrl.scanRepo.AverageScoreAll(ctx); err != nil {
		ctrl.dashboardError(c, err, "average score")
		return
	}
	if resp.RecentScans, err = ctrl.scanRepo.ListRecent(ctx, 10); err != nil {
		ctrl.dashboardError(c, err, "recent scans")
		return
	}
	if resp.RecentAudit, err = ctrl.auditRepo.ListRecent(ctx, 10); err != nil {
		ctrl.dashboardError(c, err, "recent audit")
		return
	}

	utils.SuccessResponse(c, resp)
}

func (ctrl *AdminController) dashboardError(c *gin.Context, err error, what string) {
	ctrl.logger.WithError(err).WithField("query", what).Error("Failed to build admin dashboard")
	utils.InternalServerError(c, "Failed to load dashboard data")
}

// ListUsers godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.UserResponse} "Users"
// @Failure 403 {object} models.ErrorResponse "Admin role required"
// @Router /admin/users [get]
func (ctrl *AdminController) ListUsers(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)

	users, total, err := ctrl.userRepo.List(c.Request.Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to list users")
		utils.InternalServerError(c, "Failed to list users")
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, models.NewUserResponse(&users[i]))
	}

	utils.PaginatedResponse(c, responses, page, pageSize, int(total))
}

// CreateUser godoc
// @Summary Create a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body models.AdminCreateUserRequest true "User details"
// @Success 201 {object} models.SuccessResponse{data=models.UserResponse} "Created user"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 409 {object} models.ErrorResponse "Username or email already in use"
// @Router /admin/users [post]
func (ctrl *AdminController) CreateUser(c *gin.Context) {
	var req models.AdminCreateUserRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	hashed, err := ctrl.authService.HashPassword(req.Password)
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to hash password for new user")
		utils.InternalServerError(c, "Failed to create user")
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
		Name:     req.Name,
		Active:   true,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if len(req.Roles) == 0 {
		user.Roles = []models.UserRole{{Role: models.RoleClient}}
	}
	for _, role := range req.Roles {
		user.Roles = append(user.Roles, models.UserRole{Role: models.Role(role)})
	}

	if err := ctrl.userRepo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			utils.Conflict(c, "Username or email is already in use")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to create user")
		utils.InternalServerError(c, "Failed to create user")
		return
	}

	ctrl.audit(c, "create", "user", user.ID, req)

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    models.NewUserResponse(user),
		Meta: models.MetadataResponse{
			Timestamp: time.Now(),
			RequestID: utils.GetRequestID(c),
		},
	})
}

// GetUser godoc
// @Summary Get a user by ID
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.SuccessResponse{data=models.UserResponse} "User"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Router /admin/users/{id} [get]
func (ctrl *AdminController) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := ctrl.userRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		ctrl.logger.WithError(err).WithField("userID", id).Error("Failed to fetch user")
		utils.InternalServerError(c, "Failed to retrieve user")
		return
	}

	utils.SuccessResponse(c, models.NewUserResponse(user))
}

// UpdateUser godoc
// @Summary Update a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param user body models.AdminUpdateUserRequest true "Fields to update"
// @Success 200 {object} models.SuccessResponse{data=models.UserResponse} "Updated user"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 409 {object} models.ErrorResponse "Email already in use"
// @Router /admin/users/{id} [put]
func (ctrl *AdminController) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.AdminUpdateUserRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := ctrl.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		ctrl.logger.WithError(err).WithField("userID", id).Error("Failed to fetch user for update")
		utils.InternalServerError(c, "Failed to update user")
		return
	}

	if req.Email != "" && req.Email != user.Email {
		exists, err := ctrl.userRepo.CheckEmailExists(ctx, req.Email)
		if err != nil {
			ctrl.logger.WithError(err).Error("Failed to check email availability")
			utils.InternalServerError(c, "Failed to update user")
			return
		}
		if exists {
			utils.Conflict(c, "Email address is already in use")
			return
		}
		user.Email = req.Email
		user.EmailVerified = false
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := ctrl.userRepo.Update(ctx, user); err != nil {
		ctrl.logger.WithError(err).WithField("userID", id).Error("Failed to update user")
		utils.InternalServerError(c, "Failed to update user")
		return
	}

	if len(req.Roles) > 0 {
		roles := make([]models.Role, 0, len(req.Roles))
		for _, r := range req.Roles {
			roles = append(roles, models.Role(r))
		}
		if err := ctrl.userRepo.UpdateRoles(ctx, user.ID, roles); err != nil {
			ctrl.logger.WithError(err).WithField("userID", id).Error("Failed to update user roles")
			utils.InternalServerError(c, "Failed to update user roles")
			return
		}
		user, err = ctrl.userRepo.GetByID(ctx, id)
		if err != nil {
			ctrl.logger.WithError(err).Error("Failed to reload user after role update")
			utils.InternalServerError(c, "Failed to update user")
			return
		}
	}

	ctrl.audit(c, "update", "user", user.ID, req)

	utils.SuccessResponse(c, models.NewUserResponse(user))
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204 "User deleted"
// @Failure 400 {object} models.ErrorResponse "Cannot delete own account"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Router /admin/users/{id} [delete]
func (ctrl *AdminController) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if callerID, err := middleware.GetUserID(c); err == nil && callerID == id {
		utils.BadRequest(c, "You cannot delete your own account")
		return
	}

	if err := ctrl.userRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		ctrl.logger.WithError(err).WithField("userID", id).Error("Failed to delete user")
		utils.InternalServerError(c, "Failed to delete user")
		return
	}

	ctrl.audit(c, "delete", "user", id, nil)

	c.Status(http.StatusNoContent)
}

// ListClients godoc
// @Summary List client businesses
// @Description Lists registered client businesses, optionally filtered by a
// @Description search query over business name, domain and contact email.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search query"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.Client} "Clients"
// @Router /admin/clients [get]
func (ctrl *AdminController) ListClients(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	offset := (page - 1) * pageSize

	var (
		clients []models.Client
		total   int64
		err     error
	)
	if query := c.Query("q"); query != "" {
		clients, total, err = ctrl.clientRepo.Search(c.Request.Context(), query, offset, pageSize)
	} else {
		clients, total, err = ctrl.clientRepo.List(c.Request.Context(), offset, pageSize)
	}
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to list clients")
		utils.InternalServerError(c, "Failed to list clients")
		return
	}

	utils.PaginatedResponse(c, clients, page, pageSize, int(total))
}

// CreateClient godoc
// @Summary Register a client business
// @Description Registers a client business under an existing user account and
// @Description issues its API key. A default customization row is created so
// @Description widgets render with platform branding until the client rebrands.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param client body models.ClientCreateRequest true "Client details"
// @Success 201 {object} models.SuccessResponse{data=models.Client} "Created client"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 404 {object} models.ErrorResponse "Owning user not found"
// @Failure 409 {object} models.ErrorResponse "User already has a client"
// @Router /admin/clients [post]
func (ctrl *AdminController) CreateClient(c *gin.Context) {
	var req models.ClientCreateRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	owner, err := ctrl.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "Owning user not found")
			return
		}
		ctrl.logger.WithError(err).Error("Failed to fetch owning user")
		utils.InternalServerError(c, "Failed to register client")
		return
	}

	if existing, err := ctrl.clientRepo.GetByUserID(ctx, owner.ID); err == nil && existing != nil {
		utils.Conflict(c, "User already has a registered client business")
		return
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to generate client API key")
		utils.InternalServerError(c, "Failed to register client")
		return
	}

	callerID, _ := middleware.GetUserID(c)

	client := &models.Client{
		UserID:             owner.ID,
		BusinessName:       req.BusinessName,
		BusinessDomain:     req.BusinessDomain,
		ContactEmail:       req.ContactEmail,
		ContactPhone:       req.ContactPhone,
		SubscriptionLevel:  models.SubscriptionLevel(req.SubscriptionLevel).Normalize(),
		SubscriptionStatus: "active",
		APIKey:             apiKey,
		Active:             true,
		CreatedBy:          callerID,
	}

	if err := ctrl.clientRepo.Create(ctx, client); err != nil {
		ctrl.logger.WithError(err).Error("Failed to create client")
		utils.InternalServerError(c, "Failed to register client")
		return
	}

	// Seed default branding so the first widget deployment has something to render
	custom := &models.Customization{ClientID: client.ID, UpdatedBy: callerID}
	if err := ctrl.clientRepo.UpsertCustomization(ctx, custom); err != nil {
		ctrl.logger.WithError(err).WithField("clientID", client.ID).Warn("Failed to seed default customization")
	}

	// Grant the owning user the client role if they don't have it yet
	if !owner.HasRole(models.RoleClient) {
		roles := make([]models.Role, 0, len(owner.Roles)+1)
		for _, r := range owner.Roles {
			roles = append(roles, r.Role)
		}
		roles = append(roles, models.RoleClient)
		if err := ctrl.userRepo.UpdateRoles(ctx, owner.ID, roles); err != nil {
			ctrl.logger.WithError(err).WithField("userID", owner.ID).Warn("Failed to grant client role")
		}
	}

	ctrl.audit(c, "create", "client", client.ID, req)

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    client,
		Meta: models.MetadataResponse{
			Timestamp: time.Now(),
			RequestID: utils.GetRequestID(c),
		},
	})
}

// GetClient godoc
// @Summary Get a client by ID
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Client ID"
// @Success 200 {object} models.SuccessResponse{data=models.Client} "Client"
// @Failure 404 {object} models.ErrorResponse "Client not found"
// @Router /admin/clients/{id} [get]
func (ctrl *AdminController) GetClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	client, err := ctrl.clientRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "Client not found")
			return
		}
		ctrl.logger.WithError(err).WithField("clientID", id).Error("Failed to fetch client")
		utils.InternalServerError(c, "Failed to retrieve client")
		return
	}

	utils.SuccessResponse(c, client)
}

// UpdateClient godoc
// @Summary Update a client business
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Client ID"
// @Param client body models.ClientUpdateRequest true "Fields to update"
// @Success 200 {object} models.SuccessResponse{data=models.Client} "Updated client"
// @Failure 404 {object} models.ErrorResponse "Client not found"
// @Router /admin/clients/{id} [put]
func (ctrl *AdminController) UpdateClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.ClientUpdateRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	client, err := ctrl.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "Client not found")
			return
		}
		ctrl.logger.WithError(err).WithField("clientID", id).Error("Failed to fetch client for update")
		utils.InternalServerError(c, "Failed to update client")
		return
	}

	if req.BusinessName != "" {
		client.BusinessName = req.BusinessName
	}
	if req.BusinessDomain != "" {
		client.BusinessDomain = req.BusinessDomain
	}
	if req.ContactEmail != "" {
		client.ContactEmail = req.ContactEmail
	}
	if req.ContactPhone != "" {
		client.ContactPhone = req.ContactPhone
	}
	if req.SubscriptionLevel != "" {
		client.SubscriptionLevel = models.SubscriptionLevel(req.SubscriptionLevel).Normalize()
	}
	if req.SubscriptionStatus != "" {
		client.SubscriptionStatus = req.SubscriptionStatus
	}
	if req.Active != nil {
		client.Active = *req.Active
	}
	if callerID, err := middleware.GetUserID(c); err == nil {
		client.UpdatedBy = callerID
	}

	if err := ctrl.clientRepo.Update(ctx, client); err != nil {
		ctrl.logger.WithError(err).WithField("clientID", id).Error("Failed to update client")
		utils.InternalServerError(c, "Failed to update client")
		return
	}

	ctrl.audit(c, "update", "client", client.ID, req)

	utils.SuccessResponse(c, client)
}

// DeactivateClient godoc
// @Summary Deactivate a client business
// @Description Deactivates a client. Its scanner widgets stop accepting scans
// @Description but all historical data is retained.
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "Client ID"
// @Success 204 "Client deactivated"
// @Failure 404 {object} models.ErrorResponse "Client not found"
// @Router /admin/clients/{id} [delete]
func (ctrl *AdminController) DeactivateClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.clientRepo.Deactivate(c.Request.Context(), id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.NotFound(c, "Client not found")
			return
		}
		ctrl.logger.WithError(err).WithField("clientID", id).Error("Failed to deactivate client")
		utils.InternalServerError(c, "Failed to deactivate client")
		return
	}

	ctrl.audit(c, "deactivate", "client", id, nil)

	c.Status(http.StatusNoContent)
}

// ListAudit godoc
// @Summary List audit log entries
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param entity_type query string false "Filter by entity type"
// @Param entity_id query int false "Filter by entity ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.AuditLog} "Audit entries"
// @Router /admin/audit [get]
func (ctrl *AdminController) ListAudit(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	offset := (page - 1) * pageSize

	var (
		entries []models.AuditLog
		total   int64
		err     error
	)
	if entityType := c.Query("entity_type"); entityType != "" {
		entityID, _ := strconv.ParseUint(c.Query("entity_id"), 10, 32)
		entries, total, err = ctrl.auditRepo.ListByEntity(c.Request.Context(), entityType, uint(entityID), offset, pageSize)
	} else {
		entries, total, err = ctrl.auditRepo.List(c.Request.Context(), offset, pageSize)
	}
	if err != nil {
		ctrl.logger.WithError(err).Error("Failed to list audit entries")
		utils.InternalServerError(c, "Failed to list audit entries")
		return
	}

	utils.PaginatedResponse(c, entries, page, pageSize, int(total))
}

// GetSettings godoc
// @Summary Get platform settings
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse{data=models.SystemSettings} "Platform settings"
// @Router /admin/settings [get]
func (ctrl *AdminController) GetSettings(c *gin.Context) {
	settings := models.DefaultSystemSettings()
	err := ctrl.settingsRepo.GetObject(c.Request.Context(), systemSettingsKey, &settings)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		ctrl.logger.WithError(err).Error("Failed to load platform settings")
		utils.InternalServerError(c, "Failed to load settings")
		return
	}

	utils.SuccessResponse(c, settings)
}

// UpdateSettings godoc
// @Summary Update platform settings
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param settings body models.SystemSettings true "Platform settings"
// @Success 200 {object} models.SuccessResponse{data=models.SystemSettings} "Updated settings"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Router /admin/settings [put]
func (ctrl *AdminController) UpdateSettings(c *gin.Context) {
	var settings models.SystemSettings
	if !utils.BindJSON(c, &settings) {
		return
	}

	if err := ctrl.settingsRepo.SetObject(c.Request.Context(), systemSettingsKey, &settings); err != nil {
		ctrl.logger.WithError(err).Error("Failed to store platform settings")
		utils.InternalServerError(c, "Failed to store settings")
		return
	}

	ctrl.audit(c, "update", "settings", 0, settings)

	utils.SuccessResponse(c, settings)
}

// audit writes an audit entry for an admin action, logging on failure
func (ctrl *AdminController) audit(c *gin.Context, action, entityType string, entityID uint, changes interface{}) {
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

// pathID parses a numeric path parameter, writing a 400 on failure
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.BadRequest(c, "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(id), true
}

// startOfMonth truncates a time to midnight on the first of its month
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
