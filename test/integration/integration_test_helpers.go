package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/cybrscan/cybrscan/internal/api"
	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/config"
	"github.com/cybrscan/cybrscan/internal/database"
)

// testEnv bundles a fully wired server with the backing stores the tests
// need to reach around the HTTP layer.
type testEnv struct {
	Server *api.Server
	Router http.Handler
	DB     database.Database
	Auth   auth.Service
	Config *config.Config
}

// tokenSet holds the credentials returned by register or login
type tokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       uint   `json:"user_id"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Version = "integration-test"
	cfg.Server.Mode = "test"
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "cybrscan.db")
	cfg.Auth.Secret = "integration-test-secret-key-with-enough-entropy-to-pass"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 24 * time.Hour
	cfg.Auth.ResetTokenTTL = time.Hour
	cfg.Auth.TokenIssuer = "cybrscan-test"
	cfg.Auth.TokenAudience = "cybrscan-api"
	cfg.Deploy.Dir = t.TempDir()
	cfg.Deploy.PublicBaseURL = "https://scan.example.com"
	cfg.Deploy.TemplateVersion = "v1"
	cfg.Reports.Dir = t.TempDir()
	return cfg
}

// setupEnv builds a server against a fresh on-disk sqlite database with all
// migrations applied and routes registered.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := testConfig(t)

	db, err := database.InitDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator, err := database.NewMigrator(db.DB(), database.DefaultMigrateOptions())
	require.NoError(t, err)
	migrator.RegisterAllMigrations()
	require.NoError(t, migrator.MigrateUp())

	jwtConfig := auth.JWTConfig{
		AccessTokenSecret:  cfg.Auth.Secret,
		RefreshTokenSecret: cfg.Auth.Secret,
		AccessTokenExpiry:  int(cfg.Auth.AccessTokenTTL.Minutes()),
		RefreshTokenExpiry: int(cfg.Auth.RefreshTokenTTL.Hours()),
		Issuer:             cfg.Auth.TokenIssuer,
		Audience:           []string{cfg.Auth.TokenAudience},
	}
	authService := auth.NewService(
		db,
		jwtConfig,
		auth.DefaultPasswordConfig(),
		auth.NewInMemoryTokenStore(),
		cfg.Auth.ResetTokenTTL,
		logger,
	)

	server, err := api.NewServer(&api.ServerConfig{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		AuthService: authService,
	})
	require.NoError(t, err)
	require.NoError(t, server.RegisterRoutes())

	return &testEnv{
		Server: server,
		Router: server.Router(),
		DB:     db,
		Auth:   authService,
		Config: cfg,
	}
}

// doJSON performs a request with an optional bearer token and JSON body
func (env *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

// doKeyJSON performs a widget request authenticated by a scanner API key
func (env *testEnv) doKeyJSON(t *testing.T, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Api-Key", apiKey)

	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the data field of a wrapped success response
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got: %s", rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

// register creates a user through the public endpoint and returns its tokens.
// The first registration on a fresh database becomes the admin.
func (env *testEnv) register(t *testing.T, username, email, password string) tokenSet {
	t.Helper()

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"name":     username,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tokens tokenSet
	decodeData(t, rec, &tokens)
	require.NotEmpty(t, tokens.AccessToken)
	return tokens
}

// login authenticates an existing user and returns fresh tokens
func (env *testEnv) login(t *testing.T, login, password string) tokenSet {
	t.Helper()

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": login,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens tokenSet
	decodeData(t, rec, &tokens)
	return tokens
}
