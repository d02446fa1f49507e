package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/config"
	"github.com/cybrscan/cybrscan/internal/database"
)

func testServerConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{Version: "test"}
	cfg.Server.Mode = "test"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Deploy.Dir = t.TempDir()
	cfg.Deploy.TemplateVersion = "v1"
	cfg.Deploy.PublicBaseURL = "https://scan.example.com"
	cfg.Reports.Dir = t.TempDir()
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	server, err := NewServer(&ServerConfig{
		Config:      testServerConfig(t),
		Logger:      testLogger(),
		DB:          database.NewMockDatabase(setupTestDB(t), nil),
		AuthService: &auth.MockService{},
	})
	require.NoError(t, err)
	require.NoError(t, server.RegisterRoutes())
	return server
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	cfg := testServerConfig(t)
	log := testLogger()
	db := database.NewMockDatabase(setupTestDB(t), nil)
	svc := &auth.MockService{}

	cases := []struct {
		name string
		cfg  *ServerConfig
		want string
	}{
		{"missing config", &ServerConfig{Logger: log, DB: db, AuthService: svc}, "config is required"},
		{"missing logger", &ServerConfig{Config: cfg, DB: db, AuthService: svc}, "logger is required"},
		{"missing database", &ServerConfig{Config: cfg, Logger: log, AuthService: svc}, "database is required"},
		{"missing auth service", &ServerConfig{Config: cfg, Logger: log, DB: db}, "auth service is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewServer(tc.cfg)
			require.Error(t, err)
			assert.EqualError(t, err, tc.want)
		})
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}

func TestServer_ProtectedRouteRequiresToken(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_WidgetRouteRequiresAPIKey(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scanner/scn_missing/scan", nil)
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_UnknownRoute(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Route not found")
}
