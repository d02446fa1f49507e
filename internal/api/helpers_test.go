package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestDB opens an isolated in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserRole{},
		&models.Token{},
		&models.PasswordReset{},
		&models.Client{},
		&models.Customization{},
		&models.Scanner{},
		&models.Scan{},
		&models.Report{},
		&models.Lead{},
		&models.AuditLog{},
		&models.Setting{},
		&models.VersionedSetting{},
	))

	return db
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// authAs simulates RequireAuthentication for a fixed user.
func authAs(userID uint, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRoles", roles)
		c.Next()
	}
}

// keyAuthAs simulates RequireScannerKey for a fixed scanner and client.
func keyAuthAs(scanner *models.Scanner, client *models.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("scanner", scanner)
		c.Set("client", client)
		c.Next()
	}
}

// clientKeyAuthAs simulates RequireClientKey for a fixed client.
func clientKeyAuthAs(client *models.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("client", client)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the "data" field of a standard success envelope
// into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// recordingMailer captures outbound messages for assertions.
type recordingMailer struct {
	mu       sync.Mutex
	messages []report.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg report.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []report.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]report.Message, len(m.messages))
	copy(out, m.messages)
	return out
}
