package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/widget", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestWidgetCORS_AnyOrigin(t *testing.T) {
	router := corsRouter(WidgetCORS())

	req := httptest.NewRequest(http.MethodGet, "/widget", nil)
	req.Header.Set("Origin", "https://customer-site.example")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "https://customer-site.example", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestWidgetCORS_Preflight(t *testing.T) {
	router := corsRouter(WidgetCORS())

	req := httptest.NewRequest(http.MethodOptions, "/widget", nil)
	req.Header.Set("Origin", "https://customer-site.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Api-Key")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Headers"), "X-Api-Key")
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "43200", resp.Header().Get("Access-Control-Max-Age"))
}

func TestWidgetCORS_NoOriginHeader(t *testing.T) {
	router := corsRouter(WidgetCORS())

	req := httptest.NewRequest(http.MethodGet, "/widget", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig_OriginMatching(t *testing.T) {
	router := corsRouter(CORSWithConfig(CORSConfig{
		AllowOrigins: []string{"https://portal.cybrscan.example", "*.widgets.cybrscan.example"},
		AllowMethods: []string{"GET"},
		MaxAge:       time.Hour,
	}))

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "Exact match", origin: "https://portal.cybrscan.example", allowed: true},
		{name: "Wildcard subdomain", origin: "https://acme.widgets.cybrscan.example", allowed: true},
		{name: "Unlisted origin", origin: "https://evil.example", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/widget", nil)
			req.Header.Set("Origin", tt.origin)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusOK, resp.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, resp.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
