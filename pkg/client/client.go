package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/cybrscan/cybrscan/internal/models"
)

// API paths
const (
	APIBasePath                = "/api/v1"
	APIPathHealth              = "/health"
	APIPathAuth                = "/auth"
	APIPathAuthLogin           = "/auth/login"
	APIPathAuthRegister        = "/auth/register"
	APIPathAuthRefresh         = "/auth/refresh"
	APIPathAuthLogout          = "/auth/logout"
	APIPathAuthPasswordReset   = "/auth/password-reset"
	APIPathUser                = "/user"
	APIPathUserMe              = "/user/me"
	APIPathAdmin               = "/admin"
	APIPathAdminDashboard      = "/admin/dashboard"
	APIPathAdminUsers          = "/admin/users"
	APIPathAdminClients        = "/admin/clients"
	APIPathAdminAudit          = "/admin/audit"
	APIPathAdminSettings       = "/admin/settings"
	APIPathClientDashboard     = "/client/dashboard"
	APIPathClientScanners      = "/client/scanners"
	APIPathClientCustomization = "/client/customization"
	APIPathClientScans         = "/client/scans"
	APIPathClientLeads         = "/client/leads"
	APIPathScanner             = "/scanner"
)

// HeaderAPIKey carries the scanner API key on widget requests
const HeaderAPIKey = "X-Api-Key"

// Common errors
var (
	ErrNotFound         = fmt.Errorf("resource not found")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrBadRequest       = fmt.Errorf("bad request")
	ErrServerError      = fmt.Errorf("server error")
	ErrTimeout          = fmt.Errorf("request timeout")
	ErrConnectionFailed = fmt.Errorf("connection failed")
	ErrAlreadyExists    = fmt.Errorf("resource already exists")
	ErrConflict         = fmt.Errorf("conflict")
	ErrRateLimited      = fmt.Errorf("rate limited")
	ErrNotImplemented   = fmt.Errorf("not implemented")
)

// --- Client Configuration ---

// ClientOption represents a functional option for configuring the client
type ClientOption func(*ClientConfig) error

// ClientConfig represents the configuration for the client
type ClientConfig struct {
	BaseURL               string
	Timeout               time.Duration
	MaxRetries            int
	RetryDelay            time.Duration
	UserAgent             string
	AccessToken           string
	RefreshToken          string
	APIKey                string
	HTTPClient            *http.Client
	Headers               map[string]string
	AutoRefresh           bool
	TLSInsecureSkipVerify bool
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:               "http://localhost:8080",
		Timeout:               time.Second * 30,
		MaxRetries:            3,
		RetryDelay:            time.Second * 1,
		UserAgent:             "CybrScanClient/1.0",
		Headers:               make(map[string]string),
		AutoRefresh:           true,
		TLSInsecureSkipVerify: false,
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(config *ClientConfig) error {
		if baseURL == "" {
			return fmt.Errorf("base URL cannot be empty")
		}
		_, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		config.BaseURL = baseURL
		return nil
	}
}

// WithTimeout sets the timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		config.Timeout = timeout
		return nil
	}
}

// WithRetryOptions sets the retry options
func WithRetryOptions(maxRetries int, retryDelay time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if maxRetries < 0 {
			return fmt.Errorf("max retries must be non-negative")
		}
		if retryDelay < 0 {
			return fmt.Errorf("retry delay must be non-negative")
		}
		config.MaxRetries = maxRetries
		config.RetryDelay = retryDelay
		return nil
	}
}

// WithUserAgent sets the user agent
func WithUserAgent(userAgent string) ClientOption {
	return func(config *ClientConfig) error {
		if userAgent == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		config.UserAgent = userAgent
		return nil
	}
}

// WithAccessToken sets the initial access token
func WithAccessToken(token string) ClientOption {
	return func(config *ClientConfig) error {
		config.AccessToken = token
		return nil
	}
}

// WithRefreshToken sets the initial refresh token
func WithRefreshToken(token string) ClientOption {
	return func(config *ClientConfig) error {
		config.RefreshToken = token
		return nil
	}
}

// WithAPIKey sets the scanner API key used for widget endpoints
func WithAPIKey(key string) ClientOption {
	return func(config *ClientConfig) error {
		config.APIKey = key
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(config *ClientConfig) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		config.HTTPClient = client
		return nil
	}
}

// WithHeader adds an HTTP header
func WithHeader(key, value string) ClientOption {
	return func(config *ClientConfig) error {
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		if config.Headers == nil {
			config.Headers = make(map[string]string)
		}
		config.Headers[key] = value
		return nil
	}
}

// WithAutoRefresh sets the auto refresh option
func WithAutoRefresh(autoRefresh bool) ClientOption {
	return func(config *ClientConfig) error {
		config.AutoRefresh = autoRefresh
		return nil
	}
}

// WithTLSInsecureSkipVerify sets the TLS insecure skip verify option
func WithTLSInsecureSkipVerify(skip bool) ClientOption {
	return func(config *ClientConfig) error {
		config.TLSInsecureSkipVerify = skip
		return nil
	}
}

// AuthResponse represents the response from authentication endpoints
type AuthResponse = models.TokenResponse

// Client defines the interface for the CybrScan API client
type Client interface {
	// Authentication
	Login(ctx context.Context, username, password string) (*AuthResponse, error)
	Register(ctx context.Context, username, password, email string) (*AuthResponse, error)
	RefreshToken(ctx context.Context) (*AuthResponse, error)
	Logout(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	// Health check
	Health(ctx context.Context) (map[string]interface{}, error)

	// User management
	GetCurrentUser(ctx context.Context) (*models.UserResponse, error)
	UpdateCurrentUser(ctx context.Context, user *models.User) (*models.User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error

	// Admin: platform management
	GetAdminDashboard(ctx context.Context) (*models.AdminDashboardResponse, error)
	ListUsers(ctx context.Context, page, pageSize int) ([]models.UserResponse, error)
	CreateUser(ctx context.Context, req *models.AdminCreateUserRequest) (*models.UserResponse, error)
	UpdateUser(ctx context.Context, id uint, req *models.AdminUpdateUserRequest) (*models.UserResponse, error)
	DeleteUser(ctx context.Context, id uint) error
	ListClients(ctx context.Context, page, pageSize int) ([]models.Client, error)
	CreateClient(ctx context.Context, req *models.ClientCreateRequest) (*models.Client, error)
	GetClient(ctx context.Context, id uint) (*models.Client, error)
	UpdateClient(ctx context.Context, id uint, req *models.ClientUpdateRequest) (*models.Client, error)
	DeactivateClient(ctx context.Context, id uint) error
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
	UpdateSettings(ctx context.Context, settings *models.SystemSettings) (*models.SystemSettings, error)
	ListAudit(ctx context.Context, entityType string, entityID uint, page, pageSize int) ([]models.AuditLog, error)

	// Client portal: scanners, branding, scans and leads
	GetClientDashboard(ctx context.Context) (*models.ClientDashboardResponse, error)
	ListScanners(ctx context.Context, page, pageSize int) ([]models.Scanner, error)
	CreateScanner(ctx context.Context, req *models.ScannerCreateRequest) (*models.Scanner, error)
	GetScanner(ctx context.Context, uid string) (*models.Scanner, error)
	UpdateScanner(ctx context.Context, uid string, req *models.ScannerUpdateRequest) (*models.Scanner, error)
	DeleteScanner(ctx context.Context, uid string) error
	DownloadScannerBundle(ctx context.Context, uid string) ([]byte, error)
	GetCustomization(ctx context.Context) (*models.Customization, error)
	UpdateCustomization(ctx context.Context, req *models.CustomizationUpdateRequest) (*models.Customization, error)
	ListScans(ctx context.Context, page, pageSize int) ([]models.Scan, error)
	GetScan(ctx context.Context, uid string) (*models.ScanResultResponse, error)
	DownloadReport(ctx context.Context, uid string) ([]byte, error)
	EmailReport(ctx context.Context, uid string) error
	ListLeads(ctx context.Context, status string, page, pageSize int) ([]models.Lead, error)
	UpdateLead(ctx context.Context, id uint, req *models.LeadUpdateRequest) (*models.Lead, error)

	// Widget: key-authenticated scan submission and polling
	SubmitScan(ctx context.Context, scannerUID string, req *models.ScanSubmitRequest) (*models.ScanSubmitResponse, error)
	GetScanStatus(ctx context.Context, scannerUID, scanUID string) (*models.ScanResultResponse, error)

	// Raw HTTP
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// APIClient implements the Client interface
type APIClient struct {
	config       ClientConfig
	httpClient   *http.Client
	accessToken  string
	refreshToken string
	apiKey       string
	tokenExpiry  time.Time
	tokenLock    chan struct{}
	refreshing   bool
}

// NewClient creates a new API client
func NewClient(opts ...ClientOption) (*APIClient, error) {
	config := DefaultClientConfig()

	// Apply options
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, fmt.Errorf("option application failed: %w", err)
		}
	}

	// Create HTTP client if not provided
	httpClient := config.HTTPClient
	if httpClient == nil {
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: config.TLSInsecureSkipVerify},
		}
		httpClient = &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		}
	} else if config.TLSInsecureSkipVerify {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			if transport.TLSClientConfig == nil {
				transport.TLSClientConfig = &tls.Config{}
			}
			transport.TLSClientConfig.InsecureSkipVerify = true
		} else {
			fmt.Println("Warning: Cannot set TLSInsecureSkipVerify on custom HTTPClient transport")
		}
	}

	client := &APIClient{
		config:       config,
		httpClient:   httpClient,
		accessToken:  config.AccessToken,
		refreshToken: config.RefreshToken,
		apiKey:       config.APIKey,
		tokenLock:    make(chan struct{}, 1),
	}

	// Initialize token lock
	client.tokenLock <- struct{}{}

	return client, nil
}

// buildURL builds the full URL for a given path
func (c *APIClient) buildURL(path string) string {
	baseURL := strings.TrimSuffix(c.config.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s%s", baseURL, APIBasePath, path)
}

// setAuthHeader sets the Authorization header for a request
func (c *APIClient) setAuthHeader(req *http.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
}

// newRequest creates a new HTTP request
func (c *APIClient) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	url := c.buildURL(path)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// statusError maps an HTTP status code to one of the package sentinels
func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotImplemented:
		return ErrNotImplemented
	default:
		return ErrServerError
	}
}

// handleResponse handles the HTTP response and decodes the JSON body if provided
func (c *APIClient) handleResponse(resp *http.Response, out interface{}) error {
	// Always read and close the body to prevent resource leaks
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("%w: failed to read response body: %w", statusError(resp.StatusCode), readErr)
	}

	// Check for successful status codes (2xx)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent || out == nil {
			return nil
		}

		// 1. Try decoding into the standard success wrapper
		var successResp models.SuccessResponse
		wrapperErr := json.Unmarshal(body, &successResp)
		if wrapperErr == nil && successResp.Success {
			if successResp.Data == nil {
				// Handle cases where Data is explicitly null
				outVal := reflect.ValueOf(out)
				if outVal.Kind() == reflect.Ptr && !outVal.IsNil() {
					outVal.Elem().Set(reflect.Zero(outVal.Elem().Type()))
				}
				return nil
			}
			// Marshal the Data field and unmarshal into the target 'out'
			dataBytes, marshalErr := json.Marshal(successResp.Data)
			if marshalErr != nil {
				return fmt.Errorf("failed to re-marshal success data: %w", marshalErr)
			}
			if unmarshalErr := json.Unmarshal(dataBytes, out); unmarshalErr != nil {
				return fmt.Errorf("failed to decode success data field into target type: %w", unmarshalErr)
			}
			return nil
		}

		// 2. If wrapper fails or doesn't match, try decoding the raw body directly into 'out'
		if errDirect := json.Unmarshal(body, out); errDirect == nil {
			return nil
		} else {
			decodeErr := wrapperErr
			if decodeErr == nil {
				decodeErr = errDirect
			}
			return fmt.Errorf("failed to decode successful response body (tried wrapper and direct): %w", decodeErr)
		}
	}

	// Handle error status codes (non-2xx)
	// 1. Try decoding into the standard error wrapper
	var errorResp models.ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil && !errorResp.Success && errorResp.Error.Message != "" {
		baseErr := statusError(resp.StatusCode)
		if errorResp.Error.Code != "" {
			return fmt.Errorf("%w: API error (%s): %s", baseErr, errorResp.Error.Code, errorResp.Error.Message)
		}
		return fmt.Errorf("%w: %s", baseErr, errorResp.Error.Message)
	}

	// 2. If error wrapper fails, return a generic error based on status code, including body snippet
	bodySnippet := string(body)
	if len(bodySnippet) > 100 {
		bodySnippet = bodySnippet[:100] + "..."
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 600 {
		return fmt.Errorf("%w (body: %s)", statusError(resp.StatusCode), bodySnippet)
	}
	return fmt.Errorf("unexpected status code %d (body: %s)", resp.StatusCode, bodySnippet)
}

// Do sends an HTTP request and returns the response
func (c *APIClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		c.setAuthHeader(req)
	}

	var resp *http.Response
	var err error

	for retry := 0; retry <= c.config.MaxRetries; retry++ {
		var reqBodyBytes []byte
		if req.Body != nil {
			reqBodyBytes, err = io.ReadAll(req.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read request body for retry: %w", err)
			}
			req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			// Check for timeout or connection errors
			if urlErr, ok := err.(*url.Error); ok && (urlErr.Timeout() || urlErr.Temporary()) {
				if retry < c.config.MaxRetries {
					time.Sleep(c.config.RetryDelay)
					if req.Body != nil { // Reset body for retry
						req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
					}
					continue
				}
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}

		// Check for 401 Unauthorized and attempt refresh if enabled
		if resp.StatusCode == http.StatusUnauthorized && c.config.AutoRefresh && c.refreshToken != "" && !c.refreshing {
			resp.Body.Close()
			refreshErr := c.tryRefreshToken(ctx)
			if refreshErr == nil {
				// Retry the original request with the new token
				if req.Body != nil {
					req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
				}
				c.setAuthHeader(req)
				resp, err = c.httpClient.Do(req)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
				}
			} else {
				return nil, refreshErr
			}
		}

		// Check for retryable status codes (e.g., 5xx)
		if resp.StatusCode >= 500 && resp.StatusCode < 600 {
			if retry < c.config.MaxRetries {
				resp.Body.Close()
				time.Sleep(c.config.RetryDelay)
				if req.Body != nil {
					req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
				}
				continue
			}
		}

		break
	}

	return resp, err
}

// doRequest is a helper function to make requests and handle responses
func (c *APIClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, out)
}

// doKeyRequest is doRequest with the scanner API key instead of a JWT
func (c *APIClient) doKeyRequest(ctx context.Context, method, path string, body, out interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("scanner API key is not configured")
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, out)
}

// doRaw performs an authenticated GET and returns the raw response bytes,
// used for PDF and bundle downloads
func (c *APIClient) doRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleResponse(resp, nil)
	}

	return io.ReadAll(resp.Body)
}

// tryRefreshToken attempts to refresh the access token using the refresh token
func (c *APIClient) tryRefreshToken(ctx context.Context) error {
	select {
	case <-c.tokenLock:
		defer func() { c.tokenLock <- struct{}{} }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if !c.tokenNeedsRefresh() {
		return nil
	}

	c.refreshing = true
	defer func() { c.refreshing = false }()

	refreshReq := map[string]string{"refresh_token": c.refreshToken}

	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthRefresh, refreshReq, &authResp); err != nil {
		// Clear tokens on refresh failure
		c.accessToken = ""
		c.refreshToken = ""
		c.tokenExpiry = time.Time{}
		return fmt.Errorf("token refresh failed: %w", err)
	}

	c.accessToken = authResp.AccessToken
	if authResp.RefreshToken != "" {
		c.refreshToken = authResp.RefreshToken
	}
	c.tokenExpiry = authResp.ExpiresAt

	return nil
}

// tokenNeedsRefresh checks if the access token is missing or expired
func (c *APIClient) tokenNeedsRefresh() bool {
	return c.accessToken == "" || time.Now().After(c.tokenExpiry.Add(-10*time.Second))
}

// Health checks the API health
func (c *APIClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := c.doRequest(ctx, http.MethodGet, APIPathHealth, nil, &result)
	return result, err
}
