package utils

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// safeFilenameRegex keeps download filenames free of path tricks.
var safeFilenameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError carries a machine-readable error code next to the message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries response metadata and, on list endpoints, pagination.
type Meta struct {
	Page       int       `json:"page,omitempty"`
	PerPage    int       `json:"per_page,omitempty"`
	TotalPages int       `json:"total_pages,omitempty"`
	Total      int       `json:"total,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Version    string    `json:"version,omitempty"`
}

// ErrorResponse writes the error envelope and logs the failure. Server
// faults log at error level, client mistakes at info.
func ErrorResponse(c *gin.Context, statusCode int, code, message, details string) {
	logEntry := logrus.WithFields(logrus.Fields{
		"status_code": statusCode,
		"error_code":  code,
		"message":     message,
		"client_ip":   GetClientIP(c),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"request_id":  c.GetString("request_id"),
	})
	if details != "" {
		logEntry = logEntry.WithField("details", details)
	}
	if statusCode >= 500 {
		logEntry.Error("API error response")
	} else {
		logEntry.Info("API client error response")
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// SuccessResponse writes the success envelope around data.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// PaginatedResponse writes a list page with pagination metadata.
func PaginatedResponse(c *gin.Context, data interface{}, page, perPage, total int) {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			Total:      total,
			Timestamp:  time.Now(),
			RequestID:  c.GetString("request_id"),
		},
	})
}

// StatusAccepted answers 202 for work that continues in the background,
// such as queued report emails.
func StatusAccepted(c *gin.Context, message string) {
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    gin.H{"message": message},
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		},
	})
}

// FileResponse streams bytes as an attachment download.
func FileResponse(c *gin.Context, data []byte, filename, contentType string) {
	if !safeFilenameRegex.MatchString(filename) {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename", "")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, "")
}

// Unauthorized returns a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication is required to access this resource"
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, "")
}

// Forbidden returns a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "You do not have permission to access this resource"
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, "")
}

// NotFound returns a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "The requested resource was not found"
	}
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message, "")
}

// Conflict returns a 409 Conflict response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "The request could not be completed due to a conflict"
	}
	ErrorResponse(c, http.StatusConflict, "CONFLICT", message, "")
}

// TooManyRequests returns a 429 Too Many Requests response
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "Too many requests, please try again later"
	}
	ErrorResponse(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", message, "")
}

// InternalServerError returns a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "An internal server error occurred"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, "")
}

// ServiceUnavailable returns a 503 Service Unavailable response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "The service is currently unavailable"
	}
	ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "")
}

// BindJSON decodes the request body into obj, answering 400 on bad input.
// Bodies are capped at 1 MB; widget submissions and portal updates are
// small JSON documents.
func BindJSON(c *gin.Context, obj interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1024*1024)

	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid JSON format: "+err.Error())
		return false
	}
	return true
}

// GetClientIP resolves the caller's address, falling back to the socket
// peer when the proxy headers yield nothing useful.
func GetClientIP(c *gin.Context) string {
	clientIP := c.ClientIP()

	if clientIP == "" || clientIP == "::1" || clientIP == "127.0.0.1" {
		if ip, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
			clientIP = ip
		}
	}

	return clientIP
}

// GetPaginationParams reads page and page_size query parameters, applying
// defaults and the page-size cap.
func GetPaginationParams(c *gin.Context) (page int, pageSize int) {
	const defaultPage = 1
	const defaultPageSize = 10
	const maxPageSize = 100

	var err error
	page, err = strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = defaultPage
	}

	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return page, pageSize
}

// GetRequestID returns the request ID set by the request-ID middleware,
// minting one when the middleware is not installed.
func GetRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if idStr, ok := reqID.(string); ok {
			return idStr
		}
	}
	return uuid.NewString()
}

// RateLimiter keys token buckets by client IP so one widget embedder
// cannot starve the rest.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst per client.
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = time.Now()
	return limiter.Allow()
}

// CleanupLimiters drops buckets for clients idle longer than maxAge.
func (rl *RateLimiter) CleanupLimiters(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, seen := range rl.lastSeen {
		if time.Since(seen) > maxAge {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
		}
	}
}

// RateLimitMiddleware rejects requests over the per-IP budget with 429.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(GetClientIP(c)) {
			TooManyRequests(c, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
