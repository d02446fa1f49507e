package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
)

type authTestEnv struct {
	db     *gorm.DB
	svc    *auth.MockService
	mailer *recordingMailer
	router *gin.Engine
}

func setupAuthTest(t *testing.T) *authTestEnv {
	t.Helper()

	db := setupTestDB(t)
	svc := &auth.MockService{}
	mailer := &recordingMailer{}

	controller := NewAuthController(
		svc,
		repositories.NewUserRepository(db),
		repositories.NewAuditRepository(db),
		mailer,
		"https://portal.example.com",
		time.Hour,
		testLogger(),
	)

	router := gin.New()
	router.POST("/auth/register", controller.Register)
	router.POST("/auth/login", controller.Login)
	router.POST("/auth/refresh", controller.Refresh)
	router.POST("/auth/logout", controller.Logout)
	router.POST("/auth/password-reset", controller.RequestPasswordReset)
	router.POST("/auth/password-reset/confirm", controller.ConfirmPasswordReset)

	// authenticated subset with a fixed token identity
	me := router.Group("", func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Set("userRoles", []string{"client"})
		c.Set("tokenDetails", &auth.TokenDetails{UserID: 1, Roles: []string{"client"}})
	})
	me.GET("/user/me", controller.GetCurrentUser)
	me.PUT("/user/me", controller.UpdateCurrentUser)
	me.PUT("/user/me/password", controller.ChangePassword)

	return &authTestEnv{db: db, svc: svc, mailer: mailer, router: router}
}

func seedUser(t *testing.T, db *gorm.DB, username, email string, roles ...models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    email,
		Password: "hashed-secret",
		Name:     "Test User",
		Active:   true,
	}
	for _, role := range roles {
		user.Roles = append(user.Roles, models.UserRole{Role: role})
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	env := setupAuthTest(t)

	var registered *models.User
	env.svc.RegisterFunc = func(_ context.Context, user *models.User) (*auth.TokenPair, error) {
		user.ID = 1
		registered = user
		return &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	env.svc.HashFunc = func(password string) (string, error) {
		return "hashed:" + password, nil
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/register", gin.H{
		"username": "first-admin",
		"email":    "admin@example.com",
		"password": "Sup3rSecret!",
		"name":     "First Admin",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, registered)
	assert.True(t, registered.HasRole(models.RoleAdmin))
	assert.Equal(t, "hashed:Sup3rSecret!", registered.Password)

	var tokens models.TokenResponse
	decodeData(t, w, &tokens)
	assert.Equal(t, "access", tokens.AccessToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, 3600, tokens.ExpiresIn)
}

func TestRegister_SecondUserIsNotAdmin(t *testing.T) {
	env := setupAuthTest(t)
	seedUser(t, env.db, "existing", "existing@example.com", models.RoleAdmin)

	var registered *models.User
	env.svc.RegisterFunc = func(_ context.Context, user *models.User) (*auth.TokenPair, error) {
		user.ID = 2
		registered = user
		return &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/register", gin.H{
		"username": "second-user",
		"email":    "second@example.com",
		"password": "Sup3rSecret!",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, registered)
	assert.False(t, registered.HasRole(models.RoleAdmin))
}

func TestRegister_UsernameTaken(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.RegisterFunc = func(_ context.Context, _ *models.User) (*auth.TokenPair, error) {
		return nil, auth.ErrUsernameTaken
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/register", gin.H{
		"username": "duplicate",
		"email":    "dup@example.com",
		"password": "Sup3rSecret!",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_RejectsWeakPassword(t *testing.T) {
	env := setupAuthTest(t)

	w := doJSON(t, env.router, http.MethodPost, "/auth/register", gin.H{
		"username": "weak-user",
		"email":    "weak@example.com",
		"password": "short",
	})

	// Fails binding or the password policy, either way a 400
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Success(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.LoginFunc = func(_ context.Context, login, password string) (*auth.TokenPair, error) {
		assert.Equal(t, "acme-admin", login)
		assert.Equal(t, "Sup3rSecret!", password)
		return &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
	}
	env.svc.VerifyFunc = func(_ context.Context, token string) (*auth.TokenDetails, error) {
		return &auth.TokenDetails{UserID: 7, Roles: []string{"admin"}}, nil
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/login", gin.H{
		"username": "acme-admin",
		"password": "Sup3rSecret!",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var tokens models.TokenResponse
	decodeData(t, w, &tokens)
	assert.Equal(t, uint(7), tokens.UserID)
	assert.Equal(t, []string{"admin"}, tokens.Roles)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.LoginFunc = func(_ context.Context, _, _ string) (*auth.TokenPair, error) {
		return nil, auth.ErrInvalidCredentials
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/login", gin.H{
		"username": "acme-admin",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "credentials do not match")
}

func TestRefresh(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.RefreshFunc = func(_ context.Context, refreshToken string) (*auth.TokenPair, error) {
		if refreshToken != "good-refresh" {
			return nil, auth.ErrRefreshTokenInvalid
		}
		return &auth.TokenPair{AccessToken: "fresh-access", RefreshToken: "fresh-refresh"}, nil
	}
	env.svc.VerifyFunc = func(_ context.Context, _ string) (*auth.TokenDetails, error) {
		return &auth.TokenDetails{UserID: 3, Roles: []string{"client"}}, nil
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": "good-refresh"})
	require.Equal(t, http.StatusOK, w.Code)

	var tokens models.TokenResponse
	decodeData(t, w, &tokens)
	assert.Equal(t, "fresh-access", tokens.AccessToken)

	w = doJSON(t, env.router, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": "expired"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	env := setupAuthTest(t)

	var revoked string
	env.svc.LogoutFunc = func(_ context.Context, token string) error {
		revoked = token
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer the-access-token")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "the-access-token", revoked)
}

func TestLogout_BadHeader(t *testing.T) {
	env := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCurrentUser(t *testing.T) {
	env := setupAuthTest(t)
	seedUser(t, env.db, "portal-user", "portal@example.com", models.RoleClient)

	w := doJSON(t, env.router, http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.UserResponse
	decodeData(t, w, &user)
	assert.Equal(t, "portal-user", user.Username)
	assert.Equal(t, []string{"client"}, user.Roles)
	assert.NotContains(t, w.Body.String(), "hashed-secret")
}

func TestUpdateCurrentUser_EmailConflict(t *testing.T) {
	env := setupAuthTest(t)
	seedUser(t, env.db, "portal-user", "portal@example.com", models.RoleClient)
	seedUser(t, env.db, "other-user", "taken@example.com", models.RoleClient)

	w := doJSON(t, env.router, http.MethodPut, "/user/me", gin.H{"email": "taken@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateCurrentUser_EmailChangeResetsVerification(t *testing.T) {
	env := setupAuthTest(t)
	user := seedUser(t, env.db, "portal-user", "portal@example.com", models.RoleClient)
	require.NoError(t, env.db.Model(user).Update("email_verified", true).Error)

	w := doJSON(t, env.router, http.MethodPut, "/user/me", gin.H{
		"name":  "New Name",
		"email": "newaddr@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, env.db.First(&updated, user.ID).Error)
	assert.Equal(t, "newaddr@example.com", updated.Email)
	assert.Equal(t, "New Name", updated.Name)
	assert.False(t, updated.EmailVerified)
}

func TestChangePassword(t *testing.T) {
	env := setupAuthTest(t)
	user := seedUser(t, env.db, "portal-user", "portal@example.com", models.RoleClient)

	env.svc.CheckFunc = func(password, hash string) bool {
		return password == "old-password" && hash == "hashed-secret"
	}
	env.svc.HashFunc = func(password string) (string, error) {
		return "hashed:" + password, nil
	}

	w := doJSON(t, env.router, http.MethodPut, "/user/me/password", gin.H{
		"current_password": "wrong-password",
		"new_password":     "NewSecret123!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, env.router, http.MethodPut, "/user/me/password", gin.H{
		"current_password": "old-password",
		"new_password":     "NewSecret123!",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	var updated models.User
	require.NoError(t, env.db.First(&updated, user.ID).Error)
	assert.Equal(t, "hashed:NewSecret123!", updated.Password)
}

func TestRequestPasswordReset_SendsEmail(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.RequestResetFunc = func(_ context.Context, email string) (*models.PasswordReset, error) {
		return &models.PasswordReset{UserID: 1, Token: "reset-token-123", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/password-reset", gin.H{"email": "portal@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)

	sent := env.mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "portal@example.com", sent[0].To)
	assert.True(t, strings.Contains(sent[0].Body, "reset-token-123"))
	assert.True(t, strings.Contains(sent[0].Body, "https://portal.example.com/reset-password?token="))
}

func TestRequestPasswordReset_UnknownEmailStillAccepted(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.RequestResetFunc = func(_ context.Context, _ string) (*models.PasswordReset, error) {
		return nil, auth.ErrUserNotFound
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/password-reset", gin.H{"email": "nobody@example.com"})

	// The response must not reveal whether the address exists
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, env.mailer.sent())
}

func TestConfirmPasswordReset(t *testing.T) {
	env := setupAuthTest(t)

	env.svc.ResetPasswordFunc = func(_ context.Context, token, newPassword string) error {
		if token != "valid-token" {
			return auth.ErrResetTokenInvalid
		}
		return nil
	}

	w := doJSON(t, env.router, http.MethodPost, "/auth/password-reset/confirm", gin.H{
		"token":        "valid-token",
		"new_password": "NewSecret123!",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, env.router, http.MethodPost, "/auth/password-reset/confirm", gin.H{
		"token":        "bogus",
		"new_password": "NewSecret123!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
