package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybrscan/cybrscan/internal/models"
)

// TestRegisterAndLogin walks the signup and login flow end to end
func TestRegisterAndLogin(t *testing.T) {
	env := setupEnv(t)

	// First account becomes the platform admin
	admin := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")
	require.NotZero(t, admin.UserID)

	// Subsequent accounts are plain client users
	second := env.register(t, "acme-owner", "owner@acme.example.com", "another-strong-pass")
	require.NotEqual(t, admin.UserID, second.UserID)

	// Fresh login works with username or email
	byName := env.login(t, "acme-owner", "another-strong-pass")
	assert.NotEmpty(t, byName.AccessToken)
	byEmail := env.login(t, "owner@acme.example.com", "another-strong-pass")
	assert.NotEmpty(t, byEmail.AccessToken)

	// Wrong password is rejected
	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "acme-owner",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestRegisterDuplicates checks username and email uniqueness
func TestRegisterDuplicates(t *testing.T) {
	env := setupEnv(t)
	env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "msp-admin",
		"email":    "other@example.com",
		"password": "another-strong-pass",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "different-name",
		"email":    "admin@example.com",
		"password": "another-strong-pass",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// TestRegisterValidation rejects weak or malformed signups
func TestRegisterValidation(t *testing.T) {
	env := setupEnv(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"short password", map[string]string{"username": "someone", "email": "a@b.example.com", "password": "short"}},
		{"bad email", map[string]string{"username": "someone", "email": "not-an-email", "password": "long-enough-pass"}},
		{"short username", map[string]string{"username": "ab", "email": "a@b.example.com", "password": "long-enough-pass"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// TestTokenRefresh exchanges a refresh token for a new pair
func TestTokenRefresh(t *testing.T) {
	env := setupEnv(t)
	tokens := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var refreshed tokenSet
	decodeData(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)

	rec = env.doJSON(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": "not-a-real-token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestCurrentUserProfile exercises the authenticated /user/me endpoints
func TestCurrentUserProfile(t *testing.T) {
	env := setupEnv(t)
	tokens := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")

	rec := env.doJSON(t, http.MethodGet, "/api/v1/user/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me models.UserResponse
	decodeData(t, rec, &me)
	assert.Equal(t, "msp-admin", me.Username)
	assert.Contains(t, me.Roles, "admin")

	// Unauthenticated access is rejected
	rec = env.doJSON(t, http.MethodGet, "/api/v1/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestChangePasswordFlow changes the password and logs in with the new one
func TestChangePasswordFlow(t *testing.T) {
	env := setupEnv(t)
	tokens := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")

	rec := env.doJSON(t, http.MethodPut, "/api/v1/user/me/password", tokens.AccessToken, map[string]string{
		"current_password": "correct-horse-battery",
		"new_password":     "an-even-stronger-pass",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// Old password no longer works
	rec = env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "msp-admin",
		"password": "correct-horse-battery",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.login(t, "msp-admin", "an-even-stronger-pass")

	// Wrong current password is rejected
	rec = env.doJSON(t, http.MethodPut, "/api/v1/user/me/password", tokens.AccessToken, map[string]string{
		"current_password": "not-the-password",
		"new_password":     "whatever-comes-next1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestPasswordResetFlow issues a reset token and redeems it
func TestPasswordResetFlow(t *testing.T) {
	env := setupEnv(t)
	env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{
		"email": "admin@example.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// No mailer is configured, so pull the token straight from the store
	var reset models.PasswordReset
	require.NoError(t, env.DB.DB().Order("id desc").First(&reset).Error)
	require.NotEmpty(t, reset.Token)

	rec = env.doJSON(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"token":        reset.Token,
		"new_password": "post-reset-password1",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	env.login(t, "msp-admin", "post-reset-password1")

	// A consumed token cannot be replayed
	rec = env.doJSON(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"token":        reset.Token,
		"new_password": "yet-another-pass1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown addresses still get an accepted response
	rec = env.doJSON(t, http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{
		"email": "nobody@example.com",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// TestLogoutRevokesToken verifies a logged-out token stops working
func TestLogoutRevokesToken(t *testing.T) {
	env := setupEnv(t)
	tokens := env.register(t, "msp-admin", "admin@example.com", "correct-horse-battery")

	rec := env.doJSON(t, http.MethodPost, "/api/v1/auth/logout", tokens.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.doJSON(t, http.MethodGet, "/api/v1/user/me", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
