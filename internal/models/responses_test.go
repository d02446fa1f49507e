package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationResponse(t *testing.T) {
	// Create a test pagination response
	pagination := &PaginationResponse{
		Page:       2,
		PageSize:   10,
		TotalPages: 5,
		TotalItems: 42,
	}

	// Marshal to JSON
	data, err := json.Marshal(pagination)
	require.NoError(t, err)

	// Unmarshal from JSON
	var result PaginationResponse
	err = json.Unmarshal(data, &result)
	require.NoError(t, err)

	// Check that fields match
	assert.Equal(t, pagination.Page, result.Page)
	assert.Equal(t, pagination.PageSize, result.PageSize)
	assert.Equal(t, pagination.TotalPages, result.TotalPages)
	assert.Equal(t, pagination.TotalItems, result.TotalItems)
}

func TestMetadataResponse(t *testing.T) {
	// Create a test metadata response
	now := time.Now()
	metadata := &MetadataResponse{
		Timestamp: now,
		RequestID: "req-123456",
		Pagination: &PaginationResponse{
			Page:       1,
			PageSize:   25,
			TotalPages: 4,
			TotalItems: 90,
		},
	}

	// Marshal to JSON
	data, err := json.Marshal(metadata)
	require.NoError(t, err)

	// Unmarshal from JSON
	var result MetadataResponse
	err = json.Unmarshal(data, &result)
	require.NoError(t, err)

	// Check that fields match
	assert.Equal(t, metadata.Timestamp.Unix(), result.Timestamp.Unix())
	assert.Equal(t, metadata.RequestID, result.RequestID)
	assert.NotNil(t, result.Pagination)
	assert.Equal(t, metadata.Pagination.Page, result.Pagination.Page)
	assert.Equal(t, metadata.Pagination.TotalItems, result.Pagination.TotalItems)
}

func TestTokenResponse(t *testing.T) {
	// Create a test token response
	expiresAt := time.Now().Add(1 * time.Hour)
	token := &TokenResponse{
		AccessToken:  "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...",
		RefreshToken: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		ExpiresAt:    expiresAt,
		UserID:       1,
		Roles:        []string{"admin", "user"},
	}

	// Marshal to JSON
	data, err := json.Marshal(token)
	require.NoError(t, err)

	// Unmarshal from JSON
	var result TokenResponse
	err = json.Unmarshal(data, &result)
	require.NoError(t, err)

	// Check that fields match
	assert.Equal(t, token.AccessToken, result.AccessToken)
	assert.Equal(t, token.RefreshToken, result.RefreshToken)
	assert.Equal(t, token.TokenType, result.TokenType)
	assert.Equal(t, token.ExpiresIn, result.ExpiresIn)
	assert.Equal(t, token.ExpiresAt.Unix(), result.ExpiresAt.Unix())
	assert.Equal(t, token.UserID, result.UserID)
	assert.Equal(t, token.Roles, result.Roles)
}

func TestUserResponse(t *testing.T) {
	// Create a test user response
	now := time.Now()
	user := &UserResponse{
		ID:            1,
		Email:         "test@example.com",
		Name:          "Test User",
		Roles:         []string{"admin", "client"},
		LastLogin:     now.Add(-24 * time.Hour),
		EmailVerified: true,
		Active:        true,
		CreatedAt:     now.Add(-30 * 24 * time.Hour),
		UpdatedAt:     now.Add(-7 * 24 * time.Hour),
	}

	// Marshal to JSON
	data, err := json.Marshal(user)
	require.NoError(t, err)

	// Unmarshal from JSON
	var result UserResponse
	err = json.Unmarshal(data, &result)
	require.NoError(t, err)

	// Check that fields match
	assert.Equal(t, user.ID, result.ID)
	assert.Equal(t, user.Email, result.Email)
	assert.Equal(t, user.Name, result.Name)
	assert.Equal(t, user.Roles, result.Roles)
	assert.Equal(t, user.LastLogin.Unix(), result.LastLogin.Unix())
	assert.Equal(t, user.EmailVerified, result.EmailVerified)
	assert.Equal(t, user.Active, result.Active)
}

func TestPaginatedResponseEnvelope(t *testing.T) {
	resp := &PaginatedResponse{
		Success: true,
		Data:    []string{"a", "b"},
		Meta: MetadataResponse{
			Timestamp: time.Now(),
			Pagination: &PaginationResponse{
				Page:       1,
				PageSize:   10,
				TotalPages: 1,
				TotalItems: 2,
			},
		},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	// Clients decode list bodies through the same success/data envelope as
	// single-object responses, so both keys must be present.
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Contains(t, envelope, "success")
	assert.Contains(t, envelope, "data")
	assert.Contains(t, envelope, "meta")
}

func TestScanResultResponseOmitsEmpty(t *testing.T) {
	resp := &ScanResultResponse{
		ScanUID:       "scan_abc123",
		Target:        "example.com",
		Status:        ScanStatusCompleted,
		SecurityScore: 72,
		Grade:         "C",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "results")
	assert.NotContains(t, fields, "component_scores")
	assert.NotContains(t, fields, "completed_at")
}
