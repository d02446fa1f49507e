package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cybrscan/cybrscan/internal/models"
)

// LoginRequest represents the request body for a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents the request body for a register request
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// PasswordChangeRequest represents the request body for a password change
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login authenticates with the API and returns an authentication response
func (c *APIClient) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	// Validate input
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	// Create request body
	reqBody := LoginRequest{
		Username: username,
		Password: password,
	}

	// Send request
	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthLogin, reqBody, &authResp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	// Update tokens
	c.accessToken = authResp.AccessToken
	c.refreshToken = authResp.RefreshToken
	c.tokenExpiry = authResp.ExpiresAt

	return &authResp, nil
}

// Register registers a new user and returns an authentication response
func (c *APIClient) Register(ctx context.Context, username, password, email string) (*AuthResponse, error) {
	// Validate input
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	// Create request body
	reqBody := RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	}

	// Send request
	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthRegister, reqBody, &authResp); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	// Update tokens
	c.accessToken = authResp.AccessToken
	c.refreshToken = authResp.RefreshToken
	c.tokenExpiry = authResp.ExpiresAt

	return &authResp, nil
}

// RefreshToken refreshes the access token using the refresh token
func (c *APIClient) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	// Check if refresh token is available
	if c.refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	reqBody := map[string]string{"refresh_token": c.refreshToken}

	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthRefresh, reqBody, &authResp); err != nil {
		// Clear tokens on refresh failure
		c.accessToken = ""
		c.refreshToken = ""
		c.tokenExpiry = time.Time{}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	c.accessToken = authResp.AccessToken
	if authResp.RefreshToken != "" { // Only update refresh token if provided in response
		c.refreshToken = authResp.RefreshToken
	}
	c.tokenExpiry = authResp.ExpiresAt

	return &authResp, nil
}

// Logout logs out the current user and invalidates the tokens
func (c *APIClient) Logout(ctx context.Context) error {
	// Check if access token is available
	if c.accessToken == "" {
		return fmt.Errorf("not logged in")
	}

	// Send logout request
	err := c.doRequest(ctx, http.MethodPost, APIPathAuthLogout, nil, nil)
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	// Clear tokens
	c.accessToken = ""
	c.refreshToken = ""
	c.tokenExpiry = time.Time{}

	return nil
}

// GetCurrentUser returns the current authenticated user
func (c *APIClient) GetCurrentUser(ctx context.Context) (*models.UserResponse, error) { // Return UserResponse
	var userResp models.UserResponse // Expect UserResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathUserMe, nil, &userResp); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &userResp, nil
}

// UpdateCurrentUser updates the current user's profile
func (c *APIClient) UpdateCurrentUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user cannot be nil")
	}

	var updatedUser models.User
	if err := c.doRequest(ctx, http.MethodPut, APIPathUserMe, user, &updatedUser); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &updatedUser, nil
}

// ChangePassword changes the current user's password
func (c *APIClient) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	// Validate input
	if currentPassword == "" {
		return fmt.Errorf("current password cannot be empty")
	}
	if newPassword == "" {
		return fmt.Errorf("new password cannot be empty")
	}

	// Create request body
	reqBody := PasswordChangeRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}

	// Send request
	if err := c.doRequest(ctx, http.MethodPut, APIPathUserMe+"/password", reqBody, nil); err != nil {
		return fmt.Errorf("password change failed: %w", err)
	}

	return nil
}

// RequestPasswordReset asks the server to email a password reset token.
// The server accepts the request even for unknown addresses.
func (c *APIClient) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	reqBody := map[string]string{"email": email}
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthPasswordReset, reqBody, nil); err != nil {
		return fmt.Errorf("password reset request failed: %w", err)
	}
	return nil
}

// ConfirmPasswordReset redeems a reset token for a new password
func (c *APIClient) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if newPassword == "" {
		return fmt.Errorf("new password cannot be empty")
	}

	reqBody := map[string]string{"token": token, "new_password": newPassword}
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthPasswordReset+"/confirm", reqBody, nil); err != nil {
		return fmt.Errorf("password reset failed: %w", err)
	}
	return nil
}

// SetToken manually sets the access and refresh tokens
func (c *APIClient) SetToken(accessToken, refreshToken string, expiresAt time.Time) {
	// Acquire token lock
	<-c.tokenLock
	defer func() { c.tokenLock <- struct{}{} }()

	c.accessToken = accessToken
	c.refreshToken = refreshToken
	c.tokenExpiry = expiresAt
}

// GetToken returns the current access and refresh tokens
func (c *APIClient) GetToken() (accessToken, refreshToken string, expiresAt time.Time) {
	// Acquire token lock
	<-c.tokenLock
	defer func() { c.tokenLock <- struct{}{} }()

	return c.accessToken, c.refreshToken, c.tokenExpiry
}

// HasValidToken checks if the client has a valid access token
func (c *APIClient) HasValidToken() bool {
	// Acquire token lock
	<-c.tokenLock
	defer func() { c.tokenLock <- struct{}{} }()

	return c.accessToken != "" && time.Now().Before(c.tokenExpiry)
}
