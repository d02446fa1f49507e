package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/middleware"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/report"
	"github.com/cybrscan/cybrscan/internal/utils"
)

// AuthController handles authentication-related API endpoints
type AuthController struct {
	authService   auth.Service
	userRepo      repositories.UserRepository
	auditRepo     repositories.AuditRepository
	mailer        report.Mailer // nil disables reset-token delivery by email
	publicBaseURL string
	tokenExpiry   time.Duration
	logger        *logrus.Logger
}

// NewAuthController creates a new authentication controller
func NewAuthController(
	authService auth.Service,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditRepository,
	mailer report.Mailer,
	publicBaseURL string,
	tokenExpiry time.Duration,
	logger *logrus.Logger,
) *AuthController {
	return &AuthController{
		authService:   authService,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		mailer:        mailer,
		publicBaseURL: publicBaseURL,
		tokenExpiry:   tokenExpiry,
		logger:        logger,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Registers a new user account. The first account created on the
// @Description platform receives the admin role; later signups are client users.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.SuccessResponse{data=models.TokenResponse} "Account created"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 409 {object} models.ErrorResponse "Username or email already in use"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	validationResult := utils.NewValidationResult()

	if err := utils.ValidateUsername(req.Username, utils.ValidationOptions{Required: true, MinLength: 3, MaxLength: 64}); err != nil {
		validationResult.AddError("username", "INVALID_USERNAME", err.Error(), req.Username)
	}

	if err := utils.ValidateEmail(req.Email, utils.ValidationOptions{Required: true, MaxLength: 255}); err != nil {
		validationResult.AddError("email", "INVALID_EMAIL", err.Error(), req.Email)
	}

	if err := utils.ValidatePassword(req.Password, utils.ValidationOptions{Required: true, MinLength: 8, MaxLength: 72}); err != nil {
		validationResult.AddError("password", "INVALID_PASSWORD", err.Error(), "[REDACTED]")
	}

	if !validationResult.IsValid() {
		respondValidationErrors(c, "Invalid registration request", validationResult)
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
	}

	// The first account on a fresh installation becomes the MSP admin
	_, total, err := ac.userRepo.List(c.Request.Context(), 0, 1)
	if err != nil {
		ac.logger.WithError(err).Error("Failed to count users during registration")
		utils.InternalServerError(c, "Failed to process registration")
		return
	}
	if total == 0 {
		user.Roles = append(user.Roles, models.UserRole{Role: models.RoleAdmin})
	}

	hashedPassword, err := ac.authService.HashPassword(req.Password)
	if err != nil {
		ac.logger.WithError(err).Error("Failed to hash password during registration")
		utils.InternalServerError(c, "Failed to process registration")
		return
	}
	user.Password = hashedPassword

	tokens, err := ac.authService.Register(c.Request.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			utils.Conflict(c, "Username is already in use")
		case errors.Is(err, auth.ErrEmailTaken):
			utils.Conflict(c, "Email address is already in use")
		default:
			ac.logger.WithError(err).Error("Failed to register user")
			utils.InternalServerError(c, "Failed to register user")
		}
		return
	}

	ac.recordAudit(c, &user.ID, "register", "user", user.ID, nil)

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    ac.tokenResponse(tokens, user.ID, user.GetRoleNames()),
		Meta: models.MetadataResponse{
			Timestamp: time.Now(),
			RequestID: utils.GetRequestID(c),
		},
	})
}

// Login godoc
// @Summary Log in a user
// @Description Logs in a user with username or email and password, returning JWT tokens.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "User login credentials"
// @Success 200 {object} models.SuccessResponse{data=models.TokenResponse} "Successfully logged in"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	tokens, err := ac.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ac.logger.WithError(err).WithField("login", req.Username).Info("Failed login attempt")
		utils.Unauthorized(c, "Invalid username or password")
		return
	}

	details, err := ac.authService.Verify(c.Request.Context(), tokens.AccessToken)
	if err != nil {
		ac.logger.WithError(err).Error("Failed to verify newly issued token")
		utils.InternalServerError(c, "Failed to complete login")
		return
	}

	ac.recordAudit(c, &details.UserID, "login", "user", details.UserID, nil)

	utils.SuccessResponse(c, ac.tokenResponse(tokens, details.UserID, details.Roles))
}

// Refresh godoc
// @Summary Refresh JWT tokens
// @Description Refreshes the access and refresh tokens using a valid refresh token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param token body models.RefreshTokenRequest true "Refresh token details"
// @Success 200 {object} models.SuccessResponse{data=models.TokenResponse} "Successfully refreshed tokens"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired refresh token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (ac *AuthController) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	tokens, err := ac.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		ac.logger.WithError(err).Info("Failed to refresh token")
		utils.Unauthorized(c, "Invalid or expired refresh token")
		return
	}

	details, err := ac.authService.Verify(c.Request.Context(), tokens.AccessToken)
	if err != nil {
		ac.logger.WithError(err).Error("Failed to verify newly issued token")
		utils.InternalServerError(c, "Failed to complete token refresh")
		return
	}

	utils.SuccessResponse(c, ac.tokenResponse(tokens, details.UserID, details.Roles))
}

// Logout godoc
// @Summary Log out a user
// @Description Invalidates the current access token.
// @Tags Auth
// @Security BearerAuth
// @Success 204 "Successfully logged out"
// @Failure 400 {object} models.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} models.ErrorResponse "Authentication required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (ac *AuthController) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		utils.BadRequest(c, "Invalid Authorization header")
		return
	}

	if err := ac.authService.Logout(c.Request.Context(), authHeader[7:]); err != nil {
		ac.logger.WithError(err).Error("Failed to logout")
		utils.InternalServerError(c, "Failed to complete logout")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCurrentUser godoc
// @Summary Get current user details
// @Description Retrieves the details of the currently authenticated user.
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse{data=models.UserResponse} "Successfully retrieved user details"
// @Failure 401 {object} models.ErrorResponse "Authentication required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /user/me [get]
func (ac *AuthController) GetCurrentUser(c *gin.Context) {
	tokenDetails, err := middleware.GetTokenDetails(c)
	if err != nil {
		utils.Unauthorized(c, fmt.Sprintf("Failed to get token details: %v", err))
		return
	}

	user, err := ac.userRepo.GetByID(c.Request.Context(), tokenDetails.UserID)
	if err != nil {
		ac.logger.WithError(err).WithField("userID", tokenDetails.UserID).Error("Failed to fetch user")
		utils.InternalServerError(c, "Failed to retrieve user information")
		return
	}

	utils.SuccessResponse(c, models.NewUserResponse(user))
}

// UpdateCurrentUser godoc
// @Summary Update current user details
// @Description Updates the name and/or email of the currently authenticated user. Changing email requires re-verification.
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body object{name=string,email=string} true "User update details"
// @Success 200 {object} models.SuccessResponse{data=models.UserResponse} "Successfully updated user details"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Authentication required"
// @Failure 409 {object} models.ErrorResponse "Email already in use"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /user/me [put]
func (ac *AuthController) UpdateCurrentUser(c *gin.Context) {
	tokenDetails, err := middleware.GetTokenDetails(c)
	if err != nil {
		utils.Unauthorized(c, fmt.Sprintf("Failed to get token details: %v", err))
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if !utils.BindJSON(c, &req) {
		return
	}

	validationResult := utils.NewValidationResult()
	if len(req.Name) > 100 {
		validationResult.AddError("name", "TOO_LONG", "Name cannot exceed 100 characters", req.Name)
	}
	if req.Email != "" {
		if err := utils.ValidateEmail(req.Email, utils.ValidationOptions{MaxLength: 255}); err != nil {
			validationResult.AddError("email", "INVALID_EMAIL", err.Error(), req.Email)
		}
	}
	if !validationResult.IsValid() {
		respondValidationErrors(c, "Invalid update request", validationResult)
		return
	}

	user, err := ac.userRepo.GetByID(c.Request.Context(), tokenDetails.UserID)
	if err != nil {
		ac.logger.WithError(err).WithField("userID", tokenDetails.UserID).Error("Failed to fetch user for update")
		utils.InternalServerError(c, "Failed to update user")
		return
	}

	if req.Email != "" && req.Email != user.Email {
		exists, err := ac.userRepo.CheckEmailExists(c.Request.Context(), req.Email)
		if err != nil {
			ac.logger.WithError(err).Error("Failed to check email availability")
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

	if err := ac.userRepo.Update(c.Request.Context(), user); err != nil {
		ac.logger.WithError(err).WithField("userID", tokenDetails.UserID).Error("Failed to update user")
		utils.InternalServerError(c, "Failed to update user")
		return
	}

	ac.recordAudit(c, &user.ID, "update", "user", user.ID, req)

	utils.SuccessResponse(c, models.NewUserResponse(user))
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Description Verifies the current password and replaces it with a new one.
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param passwords body models.ChangePasswordRequest true "Current and new password"
// @Success 204 "Password changed"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Current password is incorrect"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /user/me/password [put]
func (ac *AuthController) ChangePassword(c *gin.Context) {
	tokenDetails, err := middleware.GetTokenDetails(c)
	if err != nil {
		utils.Unauthorized(c, fmt.Sprintf("Failed to get token details: %v", err))
		return
	}

	var req models.ChangePasswordRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := utils.ValidatePassword(req.NewPassword, utils.ValidationOptions{Required: true, MinLength: 8, MaxLength: 72}); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := ac.userRepo.GetByID(c.Request.Context(), tokenDetails.UserID)
	if err != nil {
		ac.logger.WithError(err).WithField("userID", tokenDetails.UserID).Error("Failed to fetch user for password change")
		utils.InternalServerError(c, "Failed to change password")
		return
	}

	if !ac.authService.CheckPassword(req.CurrentPassword, user.Password) {
		utils.Unauthorized(c, "Current password is incorrect")
		return
	}

	hashed, err := ac.authService.HashPassword(req.NewPassword)
	if err != nil {
		ac.logger.WithError(err).Error("Failed to hash new password")
		utils.InternalServerError(c, "Failed to change password")
		return
	}

	if err := ac.userRepo.UpdatePassword(c.Request.Context(), user.ID, hashed); err != nil {
		ac.logger.WithError(err).WithField("userID", user.ID).Error("Failed to store new password")
		utils.InternalServerError(c, "Failed to change password")
		return
	}

	ac.recordAudit(c, &user.ID, "change_password", "user", user.ID, nil)

	c.Status(http.StatusNoContent)
}

// RequestPasswordReset godoc
// @Summary Request a password reset
// @Description Issues a single-use reset token and emails it to the account's
// @Description address. The response is identical whether or not the email is
// @Description registered, so it cannot be used to probe for accounts.
// @Tags Auth
// @Accept json
// @Produce json
// @Param email body models.PasswordResetRequest true "Account email"
// @Success 202 {object} models.SuccessResponse "Reset requested"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Router /auth/password-reset [post]
func (ac *AuthController) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	reset, err := ac.authService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			ac.logger.WithError(err).Error("Failed to create password reset token")
		}
		// Fall through to the generic response either way
	} else if ac.mailer != nil {
		msg := report.Message{
			To:      req.Email,
			Subject: "Password reset request",
			Body: fmt.Sprintf(
				"A password reset was requested for your account.\r\n\r\n"+
					"Visit %s/reset-password?token=%s to choose a new password.\r\n\r\n"+
					"The link expires at %s. If you did not request this, you can ignore this email.\r\n",
				ac.publicBaseURL, reset.Token, reset.ExpiresAt.Format(time.RFC1123)),
		}
		if err := ac.mailer.Send(c.Request.Context(), msg); err != nil {
			ac.logger.WithError(err).WithField("email", req.Email).Error("Failed to send password reset email")
		}
	} else {
		ac.logger.WithField("email", req.Email).Warn("Password reset requested but mail delivery is not configured")
	}

	utils.StatusAccepted(c, "If the email address is registered, a reset link has been sent")
}

// ConfirmPasswordReset godoc
// @Summary Redeem a password reset token
// @Description Consumes a reset token and sets the account's new password.
// @Tags Auth
// @Accept json
// @Produce json
// @Param reset body models.PasswordResetConfirmRequest true "Reset token and new password"
// @Success 204 "Password reset"
// @Failure 400 {object} models.ErrorResponse "Invalid token or password"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/password-reset/confirm [post]
func (ac *AuthController) ConfirmPasswordReset(c *gin.Context) {
	var req models.PasswordResetConfirmRequest
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := utils.ValidatePassword(req.NewPassword, utils.ValidationOptions{Required: true, MinLength: 8, MaxLength: 72}); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := ac.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) {
			utils.BadRequest(c, "Invalid or expired reset token")
			return
		}
		ac.logger.WithError(err).Error("Failed to reset password")
		utils.InternalServerError(c, "Failed to reset password")
		return
	}

	c.Status(http.StatusNoContent)
}

// tokenResponse builds the standard token payload
func (ac *AuthController) tokenResponse(tokens *auth.TokenPair, userID uint, roles []string) models.TokenResponse {
	return models.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(ac.tokenExpiry.Seconds()),
		ExpiresAt:    tokens.ExpiresAt,
		UserID:       userID,
		Roles:        roles,
	}
}

// recordAudit writes an audit entry, logging rather than failing on error
func (ac *AuthController) recordAudit(c *gin.Context, userID *uint, action, entityType string, entityID uint, changes interface{}) {
	if ac.auditRepo == nil {
		return
	}
	uid := uint(0)
	if userID != nil {
		uid = *userID
	}
	if err := ac.auditRepo.RecordChange(c.Request.Context(), userID, action, entityType, entityID, changes, utils.GetClientIP(c)); err != nil {
		ac.logger.WithError(err).WithFields(logrus.Fields{"action": action, "userID": uid}).Warn("Failed to record audit entry")
	}
}

// respondValidationErrors writes a 400 with the collected field errors
func respondValidationErrors(c *gin.Context, message string, result *utils.ValidationResult) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.ErrorInfo{
			Code:    "VALIDATION_ERROR",
			Message: message,
			Details: result.GetErrors(),
		},
		Meta: models.MetadataResponse{
			Timestamp: time.Now(),
			RequestID: utils.GetRequestID(c),
		},
	})
}
