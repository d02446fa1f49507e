package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// bodyCaptureWriter duplicates the response body into a buffer while writing
// it to the underlying gin.ResponseWriter.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Headers whose values never reach the logs. X-Api-Key carries scanner and
// client credentials.
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"X-Api-Key":     true,
}

// LoggingMiddleware logs HTTP requests and responses
type LoggingMiddleware struct {
	logger          *logrus.Logger
	logRequestBody  bool
	logResponseBody bool
	logHeaders      bool
	maxBodyLogSize  int
	skipPaths       map[string]bool
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *logrus.Logger, opts ...LoggingOption) *LoggingMiddleware {
	m := &LoggingMiddleware{
		logger:          logger,
		logRequestBody:  false,
		logResponseBody: false,
		logHeaders:      true,
		maxBodyLogSize:  1024,
		// Health probes and scan status polling are high volume and low value
		skipPaths: map[string]bool{
			"/api/v1/health": true,
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// LoggingOption configures the logging middleware
type LoggingOption func(*LoggingMiddleware)

// WithRequestBodyLogging enables logging of request bodies
func WithRequestBodyLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logRequestBody = enabled
	}
}

// WithResponseBodyLogging enables logging of response bodies
func WithResponseBodyLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logResponseBody = enabled
	}
}

// WithHeaderLogging enables logging of request headers
func WithHeaderLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logHeaders = enabled
	}
}

// WithMaxBodyLogSize sets the maximum size of request and response bodies to log
func WithMaxBodyLogSize(sizeBytes int) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.maxBodyLogSize = sizeBytes
	}
}

// WithSkipPaths replaces the set of paths excluded from request logging
func WithSkipPaths(paths ...string) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.skipPaths = make(map[string]bool, len(paths))
		for _, p := range paths {
			m.skipPaths[p] = true
		}
	}
}

// Logger returns a gin middleware function for logging requests
func (m *LoggingMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		var requestBody []byte
		if m.logRequestBody && c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			requestBody = bodyBytes
			if len(requestBody) > m.maxBodyLogSize {
				requestBody = requestBody[:m.maxBodyLogSize]
			}
			// Replace request body so handlers can read it again
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		var requestHeaders map[string][]string
		if m.logHeaders {
			requestHeaders = make(map[string][]string, len(c.Request.Header))
			for k, v := range c.Request.Header {
				if redactedHeaders[k] {
					requestHeaders[k] = []string{"[REDACTED]"}
				} else {
					requestHeaders[k] = v
				}
			}
		}

		var responseBodyBuffer *bytes.Buffer
		if m.logResponseBody {
			responseBodyBuffer = &bytes.Buffer{}
			c.Writer = &bodyCaptureWriter{
				ResponseWriter: c.Writer,
				body:           responseBodyBuffer,
			}
		}

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		fullPath := path
		if raw != "" {
			fullPath = path + "?" + raw
		}

		fields := logrus.Fields{
			"status":     statusCode,
			"latency":    latency.String(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       fullPath,
			"request_id": c.GetString("request_id"),
			"user_agent": c.Request.UserAgent(),
			"referer":    c.Request.Referer(),
			"handler":    c.HandlerName(),
		}

		if m.logRequestBody && len(requestBody) > 0 {
			fields["request_body"] = string(requestBody)
		}
		if m.logHeaders && len(requestHeaders) > 0 {
			fields["request_headers"] = requestHeaders
		}
		if m.logResponseBody && responseBodyBuffer != nil {
			responseBody := responseBodyBuffer.Bytes()
			if len(responseBody) > m.maxBodyLogSize {
				responseBody = responseBody[:m.maxBodyLogSize]
			}
			fields["response_body"] = string(responseBody)
		}
		if errorMessage != "" {
			fields["error"] = errorMessage
		}

		entry := m.logger.WithFields(fields)
		switch {
		case statusCode >= 500:
			entry.Error("Request processed with error")
		case statusCode >= 400:
			entry.Warn("Request processed with warning")
		default:
			entry.Info("Request processed")
		}
	}
}

// RequestIDMiddleware tags each request with a unique ID, honoring one
// supplied by an upstream proxy.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
