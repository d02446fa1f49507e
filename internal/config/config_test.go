package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Setup test environment
	setupTestEnv(t)
	defer cleanupTestEnv(t)

	// Test loading config
	config, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, config)

	// Verify loaded values
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 60*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, "debug", config.Server.Mode)
	assert.Equal(t, "postgres", config.Database.Type)
	assert.Equal(t, "test-db", config.Database.Name)
	assert.Equal(t, "a-very-secure-secret-key-that-is-long-enough", config.Auth.Secret)
	assert.Equal(t, 30*time.Minute, config.Auth.AccessTokenTTL)
	assert.Equal(t, 4, config.ScanEngine.Workers)
}

// validBaseConfig fills in the fields validateConfig requires
func validBaseConfig(c *Config) {
	c.Server.Port = 8080
	c.Database.Type = "sqlite"
	c.Database.SQLite.Path = "test.db"
	c.Database.MaxOpenConns = 10
	c.Auth.Secret = "a-very-secure-secret-key-that-is-long-enough"
	c.Auth.AccessTokenTTL = 15 * time.Minute
	c.Auth.RefreshTokenTTL = 24 * time.Hour
	c.Auth.Algorithm = "HS256"
	c.Auth.PasswordPolicy.MinLength = 8
	c.ScanEngine.Workers = 4
	c.ScanEngine.QueueSize = 16
	c.ScanEngine.ScanTimeout = time.Minute
	c.Deploy.Dir = testDeployDir
	c.Reports.Dir = testReportsDir
}

var (
	testDeployDir  = "test-deployments"
	testReportsDir = "test-reports"
)

func TestValidateConfig(t *testing.T) {
	t.Cleanup(func() {
		os.RemoveAll(testDeployDir)
		os.RemoveAll(testReportsDir)
	})

	tests := []struct {
		name        string
		setupConfig func(*Config)
		wantErr     bool
		errMsg      string
	}{
		{
			name:        "valid config",
			setupConfig: validBaseConfig,
			wantErr:     false,
		},
		{
			name: "invalid server port",
			setupConfig: func(c *Config) {
				validBaseConfig(c)
				c.Server.Port = 0
			},
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name: "unsupported database type",
			setupConfig: func(c *Config) {
				validBaseConfig(c)
				c.Database.Type = "mysql"
			},
			wantErr: true,
			errMsg:  "unsupported database type",
		},
		{
			name: "empty auth secret",
			setupConfig: func(c *Config) {
				validBaseConfig(c)
				c.Auth.Secret = ""
			},
			wantErr: true,
			errMsg:  "auth secret is empty",
		},
		{
			name: "missing postgres host",
			setupConfig: func(c *Config) {
				validBaseConfig(c)
				c.Database.Type = "postgres"
				c.Database.Host = ""
				c.Database.Port = 5432
				c.Database.User = "user"
				c.Database.Name = "dbname"
			},
			wantErr: true,
			errMsg:  "postgres host is empty",
		},
		{
			name: "zero scan workers",
			setupConfig: func(c *Config) {
				validBaseConfig(c)
				c.ScanEngine.Workers = 0
			},
			wantErr: true,
			errMsg:  "at least one worker",
		},
		{
			name: "smtp enabled without host",
			setupConfig: func(c *Config) {
				validBaseConfig(c)
				c.Reports.SMTP.Enabled = true
				c.Reports.SMTP.Port = 587
			},
			wantErr: true,
			errMsg:  "smtp host is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := new(Config)
			tt.setupConfig(config)

			err := validateConfig(config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func setupTestEnv(t *testing.T) {
	// Reset viper
	viper.Reset()

	// Set environment variables for testing
	os.Setenv("CYBRSCAN_SERVER_HOST", "127.0.0.1")
	os.Setenv("CYBRSCAN_SERVER_PORT", "9090")
	os.Setenv("CYBRSCAN_SERVER_READ_TIMEOUT", "60s")
	os.Setenv("CYBRSCAN_SERVER_MODE", "debug")
	os.Setenv("CYBRSCAN_DATABASE_TYPE", "postgres")
	os.Setenv("CYBRSCAN_DATABASE_HOST", "localhost")
	os.Setenv("CYBRSCAN_DATABASE_PORT", "5432")
	os.Setenv("CYBRSCAN_DATABASE_USER", "postgres")
	os.Setenv("CYBRSCAN_DATABASE_PASSWORD", "postgres")
	os.Setenv("CYBRSCAN_DATABASE_NAME", "test-db")
	os.Setenv("CYBRSCAN_AUTH_SECRET", "a-very-secure-secret-key-that-is-long-enough")
	os.Setenv("CYBRSCAN_AUTH_ACCESS_TOKEN_TTL", "30m")
	os.Setenv("CYBRSCAN_SCAN_ENGINE_WORKERS", "4")

	// Set defaults
	setDefaults()

	// Load environment variables
	loadEnvVars()
}

func cleanupTestEnv(t *testing.T) {
	// Unset environment variables
	os.Unsetenv("CYBRSCAN_SERVER_HOST")
	os.Unsetenv("CYBRSCAN_SERVER_PORT")
	os.Unsetenv("CYBRSCAN_SERVER_READ_TIMEOUT")
	os.Unsetenv("CYBRSCAN_SERVER_MODE")
	os.Unsetenv("CYBRSCAN_DATABASE_TYPE")
	os.Unsetenv("CYBRSCAN_DATABASE_HOST")
	os.Unsetenv("CYBRSCAN_DATABASE_PORT")
	os.Unsetenv("CYBRSCAN_DATABASE_USER")
	os.Unsetenv("CYBRSCAN_DATABASE_PASSWORD")
	os.Unsetenv("CYBRSCAN_DATABASE_NAME")
	os.Unsetenv("CYBRSCAN_AUTH_SECRET")
	os.Unsetenv("CYBRSCAN_AUTH_ACCESS_TOKEN_TTL")
	os.Unsetenv("CYBRSCAN_SCAN_ENGINE_WORKERS")
}
