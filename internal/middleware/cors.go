package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// AllowOrigins lists origins that may call the API. "*" allows any
	// origin and "*.example.com" allows any subdomain of example.com.
	AllowOrigins []string

	// AllowMethods lists the HTTP methods a cross-origin caller may use
	AllowMethods []string

	// AllowHeaders lists the non-simple request headers a caller may send
	AllowHeaders []string

	// ExposeHeaders lists response headers visible to browser scripts
	ExposeHeaders []string

	// AllowCredentials permits cookies and authorization on cross-origin calls
	AllowCredentials bool

	// MaxAge is how long browsers may cache a preflight response
	MaxAge time.Duration
}

// WidgetCORSConfig returns the configuration used for the widget surface.
// Scanner widgets run inside arbitrary customer pages, so every origin is
// allowed and the scanner API key header is accepted.
func WidgetCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Api-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
}

// WidgetCORS returns CORS middleware with the widget configuration.
func WidgetCORS() gin.HandlerFunc {
	return CORSWithConfig(WidgetCORSConfig())
}

// CORSWithConfig returns CORS middleware for the given configuration.
func CORSWithConfig(config CORSConfig) gin.HandlerFunc {
	allowed := make([]string, len(config.AllowOrigins))
	for i, origin := range config.AllowOrigins {
		allowed[i] = strings.ToLower(origin)
	}
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	maxAgeSeconds := strconv.Itoa(int(config.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Same-origin or disallowed callers get no CORS headers
		if origin == "" || !originAllowed(allowed, origin) {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")
		if config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
			c.Header("Access-Control-Max-Age", maxAgeSeconds)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if len(config.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
		}

		c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	origin = strings.ToLower(origin)

	for _, candidate := range allowed {
		if candidate == "*" || candidate == origin {
			return true
		}
		// "*.example.com" matches any subdomain
		if strings.HasPrefix(candidate, "*.") && strings.HasSuffix(origin, candidate[1:]) {
			return true
		}
	}

	return false
}
