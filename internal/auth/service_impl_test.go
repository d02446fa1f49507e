package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB wraps an in-memory SQLite instance behind the database.Database interface
type testDB struct {
	db *gorm.DB
}

func (t *testDB) DB() *gorm.DB   { return t.db }
func (t *testDB) Connect() error { return nil }
func (t *testDB) Close() error   { return nil }
func (t *testDB) Ping() error    { return nil }
func (t *testDB) Migrate(models ...interface{}) error {
	return t.db.AutoMigrate(models...)
}
func (t *testDB) Transaction(fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(fn)
}

func setupAuthServiceTest(t *testing.T) (Service, *testDB) {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := &testDB{db: gormDB}
	require.NoError(t, db.Migrate(&models.User{}, &models.UserRole{}, &models.Token{}, &models.PasswordReset{}))

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	jwtConfig := DefaultJWTConfig()
	jwtConfig.AccessTokenSecret = "test-access-secret"
	jwtConfig.RefreshTokenSecret = "test-refresh-secret"

	service := NewService(db, jwtConfig, DefaultPasswordConfig(), NewInMemoryTokenStore(), time.Hour, logger)
	return service, db
}

func createTestUser(t *testing.T, service Service, db *testDB, username, email, password string) *models.User {
	hash, err := service.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Name:     "Test User",
		Roles: []models.UserRole{
			{Role: models.RoleClient},
		},
		Active: true,
	}
	require.NoError(t, db.DB().Create(user).Error)
	return user
}

func TestLogin_Success(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	user := createTestUser(t, service, db, "testclient", "test@example.com", "password")

	// Login with username
	tokenPair, err := service.Login(ctx, "testclient", "password")
	require.NoError(t, err)
	require.NotNil(t, tokenPair)
	assert.NotEmpty(t, tokenPair.AccessToken)
	assert.NotEmpty(t, tokenPair.RefreshToken)
	assert.False(t, tokenPair.ExpiresAt.IsZero())

	// Login with email works too
	tokenPair, err = service.Login(ctx, "test@example.com", "password")
	require.NoError(t, err)
	require.NotNil(t, tokenPair)

	// Last login timestamp was recorded
	var reloaded models.User
	require.NoError(t, db.DB().First(&reloaded, user.ID).Error)
	assert.NotNil(t, reloaded.LastLogin)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	createTestUser(t, service, db, "testclient", "test@example.com", "correct-password")

	tokenPair, err := service.Login(ctx, "testclient", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCredentials, err)
	assert.Nil(t, tokenPair)
}

func TestLogin_UserNotFound(t *testing.T) {
	service, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	tokenPair, err := service.Login(ctx, "nonexistent", "password")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCredentials, err)
	assert.Nil(t, tokenPair)
}

func TestLogin_InactiveUser(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	user := createTestUser(t, service, db, "testclient", "test@example.com", "password")
	require.NoError(t, db.DB().Model(user).Update("active", false).Error)

	tokenPair, err := service.Login(ctx, "testclient", "password")
	require.Error(t, err)
	assert.Equal(t, ErrUserInactive, err)
	assert.Nil(t, tokenPair)
}

func TestRegister_Success(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	hash, err := service.HashPassword("new-password")
	require.NoError(t, err)

	user := &models.User{
		Username: "newclient",
		Email:    "new@example.com",
		Password: hash,
		Name:     "New User",
	}

	tokenPair, err := service.Register(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, tokenPair)
	assert.NotEmpty(t, tokenPair.AccessToken)
	assert.NotEmpty(t, tokenPair.RefreshToken)

	// Verify defaults
	assert.True(t, user.Active)
	assert.False(t, user.EmailVerified)
	assert.NotZero(t, user.ID)

	// New signups default to the client role
	require.Len(t, user.Roles, 1)
	assert.Equal(t, models.RoleClient, user.Roles[0].Role)

	var count int64
	require.NoError(t, db.DB().Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegister_UsernameTaken(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	createTestUser(t, service, db, "taken", "first@example.com", "password")

	hash, err := service.HashPassword("password")
	require.NoError(t, err)

	tokenPair, err := service.Register(ctx, &models.User{
		Username: "taken",
		Email:    "second@example.com",
		Password: hash,
	})
	require.Error(t, err)
	assert.Equal(t, ErrUsernameTaken, err)
	assert.Nil(t, tokenPair)
}

func TestRegister_EmailTaken(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	createTestUser(t, service, db, "first", "taken@example.com", "password")

	hash, err := service.HashPassword("password")
	require.NoError(t, err)

	tokenPair, err := service.Register(ctx, &models.User{
		Username: "second",
		Email:    "taken@example.com",
		Password: hash,
	})
	require.Error(t, err)
	assert.Equal(t, ErrEmailTaken, err)
	assert.Nil(t, tokenPair)
}

func TestVerify_Success(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	user := createTestUser(t, service, db, "testclient", "test@example.com", "password")

	tokenPair, err := service.GenerateTokens(ctx, user)
	require.NoError(t, err)

	tokenDetails, err := service.Verify(ctx, tokenPair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, tokenDetails)
	assert.Equal(t, user.ID, tokenDetails.UserID)
	require.Len(t, tokenDetails.Roles, 1)
	assert.Equal(t, "client", tokenDetails.Roles[0])
	assert.NotEmpty(t, tokenDetails.TokenUUID)
}

func TestVerify_LoggedOutToken(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	user := createTestUser(t, service, db, "testclient", "test@example.com", "password")

	tokenPair, err := service.GenerateTokens(ctx, user)
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, tokenPair.AccessToken))

	tokenDetails, err := service.Verify(ctx, tokenPair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, ErrTokenBlacklisted, err)
	assert.Nil(t, tokenDetails)
}

func TestRefresh_Success(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	user := createTestUser(t, service, db, "testclient", "test@example.com", "password")

	tokenPair, err := service.GenerateTokens(ctx, user)
	require.NoError(t, err)

	newTokenPair, err := service.Refresh(ctx, tokenPair.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, newTokenPair)
	assert.NotEmpty(t, newTokenPair.AccessToken)
	assert.NotEmpty(t, newTokenPair.RefreshToken)
	assert.NotEqual(t, tokenPair.AccessToken, newTokenPair.AccessToken)
	assert.NotEqual(t, tokenPair.RefreshToken, newTokenPair.RefreshToken)

	// The old refresh token is single use
	_, err = service.Refresh(ctx, tokenPair.RefreshToken)
	require.Error(t, err)
}

func TestLogout_Success(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	user := createTestUser(t, service, db, "testclient", "test@example.com", "password")

	tokenPair, err := service.GenerateTokens(ctx, user)
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, tokenPair.AccessToken))
}

func TestPasswordReset_Flow(t *testing.T) {
	service, db := setupAuthServiceTest(t)
	ctx := context.Background()

	createTestUser(t, service, db, "testclient", "test@example.com", "old-password")

	reset, err := service.RequestPasswordReset(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, reset)
	assert.NotEmpty(t, reset.Token)
	assert.True(t, reset.ExpiresAt.After(time.Now()))

	require.NoError(t, service.ResetPassword(ctx, reset.Token, "brand-new-password"))

	// Old password no longer works
	_, err = service.Login(ctx, "testclient", "old-password")
	require.Error(t, err)

	// New password does
	tokenPair, err := service.Login(ctx, "testclient", "brand-new-password")
	require.NoError(t, err)
	require.NotNil(t, tokenPair)

	// Reset token is single use
	err = service.ResetPassword(ctx, reset.Token, "another-password")
	require.Error(t, err)
	assert.Equal(t, ErrResetTokenInvalid, err)
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	service, _ := setupAuthServiceTest(t)
	ctx := context.Background()

	reset, err := service.RequestPasswordReset(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, ErrUserNotFound, err)
	assert.Nil(t, reset)
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Regexp(t, `^[0-9a-f]{32}$`, key)

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestGenerateScanUID(t *testing.T) {
	uid, err := GenerateScanUID()
	require.NoError(t, err)
	assert.Regexp(t, `^scan_[0-9a-f]{12}$`, uid)
}

func TestGenerateScannerUID(t *testing.T) {
	uid, err := GenerateScannerUID()
	require.NoError(t, err)
	assert.Regexp(t, `^scanner_[0-9a-f]{12}$`, uid)
}
