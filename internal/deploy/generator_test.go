package deploy

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
)

func setupGeneratorTest(t *testing.T) (*Generator, repositories.ScannerRepository, string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.Customization{}, &models.Scanner{}))

	scanners := repositories.NewScannerRepository(db)

	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)

	gen, err := NewGenerator(dir, "https://scan.example.com/", "v2", scanners, log)
	require.NoError(t, err)

	return gen, scanners, dir
}

func testClient(custom *models.Customization) *models.Client {
	return &models.Client{
		ID:            42,
		BusinessName:  "Acme MSP",
		ContactEmail:  "support@acmemsp.com",
		Customization: custom,
	}
}

func testScanner() *models.Scanner {
	return &models.Scanner{
		ClientID: 42,
		UID:      "scn_abc123",
		Name:     "Acme Security Check",
		APIKey:   "cs_test_key_789",
	}
}

func TestGenerator_GenerateWritesAssets(t *testing.T) {
	gen, scanners, dir := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))

	client := testClient(&models.Customization{
		ClientID:       42,
		PrimaryColor:   "#112233",
		SecondaryColor: "#445566",
		ButtonColor:    "#778899",
		LogoURL:        "https://cdn.acmemsp.com/logo.png",
		FaviconURL:     "https://cdn.acmemsp.com/favicon.png",
		CSSOverride:    ".scanner-title { text-transform: uppercase; }",
	})

	require.NoError(t, gen.Generate(ctx, scanner, client))

	scannerDir := filepath.Join(dir, scanner.UID)
	for _, name := range []string{FileIndex, FileCSS, FileJS, FileDocs, FileConfig} {
		_, err := os.Stat(filepath.Join(scannerDir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}

	index, err := os.ReadFile(filepath.Join(scannerDir, FileIndex))
	require.NoError(t, err)
	html := string(index)
	assert.Contains(t, html, "--primary-color: #112233")
	assert.Contains(t, html, "--secondary-color: #445566")
	assert.Contains(t, html, "--button-color: #778899")
	assert.Contains(t, html, "https://cdn.acmemsp.com/logo.png")
	assert.Contains(t, html, "https://cdn.acmemsp.com/favicon.png")
	assert.Contains(t, html, "Acme Security Check")
	assert.Contains(t, html, "Acme MSP")
	assert.Contains(t, html, "cs_test_key_789")
	assert.Contains(t, html, "scn_abc123")
	assert.NotContains(t, html, "https://scan.example.com/\"", "base url should have trailing slash trimmed")

	css, err := os.ReadFile(filepath.Join(scannerDir, FileCSS))
	require.NoError(t, err)
	assert.Contains(t, string(css), "background-color: #778899")
	assert.Contains(t, string(css), "text-transform: uppercase")

	js, err := os.ReadFile(filepath.Join(scannerDir, FileJS))
	require.NoError(t, err)
	assert.Contains(t, string(js), "/api/v1/scanner/")
	assert.Contains(t, string(js), "X-Api-Key")

	docs, err := os.ReadFile(filepath.Join(scannerDir, FileDocs))
	require.NoError(t, err)
	assert.Contains(t, string(docs), "https://scan.example.com/api/v1/scanner/scn_abc123/scan")
	assert.Contains(t, string(docs), "support@acmemsp.com")
}

func TestGenerator_GenerateMarksDeployed(t *testing.T) {
	gen, scanners, dir := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))
	require.NoError(t, gen.Generate(ctx, scanner, testClient(nil)))

	stored, err := scanners.GetByUID(ctx, scanner.UID)
	require.NoError(t, err)
	assert.Equal(t, models.DeployStatusDeployed, stored.DeployStatus)
	assert.Equal(t, filepath.Join(dir, scanner.UID), stored.DeployPath)
	assert.Equal(t, "v2", stored.TemplateVersion)
	require.NotNil(t, stored.DeployedAt)
}

func TestGenerator_GenerateUsesDefaultBranding(t *testing.T) {
	gen, scanners, dir := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))
	require.NoError(t, gen.Generate(ctx, scanner, testClient(nil)))

	index, err := os.ReadFile(filepath.Join(dir, scanner.UID, FileIndex))
	require.NoError(t, err)
	assert.Contains(t, string(index), "--primary-color: "+DefaultPrimaryColor)
	assert.Contains(t, string(index), "--button-color: "+DefaultButtonColor)
	assert.NotContains(t, string(index), "scanner-logo", "no logo block without a logo url")
}

func TestGenerator_ConfigSnapshotRoundTrips(t *testing.T) {
	gen, scanners, dir := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))
	require.NoError(t, gen.Generate(ctx, scanner, testClient(nil)))

	raw, err := os.ReadFile(filepath.Join(dir, scanner.UID, FileConfig))
	require.NoError(t, err)

	var snapshot configSnapshot
	require.NoError(t, yaml.Unmarshal(raw, &snapshot))
	assert.Equal(t, "scn_abc123", snapshot.ScannerUID)
	assert.Equal(t, "Acme MSP", snapshot.BusinessName)
	assert.Equal(t, "https://scan.example.com", snapshot.APIBaseURL)
	assert.Equal(t, "v2", snapshot.TemplateVersion)
	assert.Equal(t, DefaultPrimaryColor, snapshot.PrimaryColor)
	assert.False(t, snapshot.GeneratedAt.IsZero())
}

func TestGenerator_NeedsRegeneration(t *testing.T) {
	gen, scanners, _ := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))

	assert.True(t, gen.NeedsRegeneration(scanner, testClient(nil)), "pending scanner needs generation")

	require.NoError(t, gen.Generate(ctx, scanner, testClient(nil)))
	deployed, err := scanners.GetByUID(ctx, scanner.UID)
	require.NoError(t, err)

	assert.False(t, gen.NeedsRegeneration(deployed, testClient(nil)))

	stale := *deployed
	stale.TemplateVersion = "v1"
	assert.True(t, gen.NeedsRegeneration(&stale, testClient(nil)), "template version change forces regeneration")

	updated := testClient(&models.Customization{
		ClientID:  42,
		UpdatedAt: deployed.DeployedAt.Add(time.Minute),
	})
	assert.True(t, gen.NeedsRegeneration(deployed, updated), "customization newer than deployment forces regeneration")
}

func TestGenerator_Bundle(t *testing.T) {
	gen, scanners, _ := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))
	require.NoError(t, gen.Generate(ctx, scanner, testClient(nil)))

	bundle, err := gen.Bundle(scanner.UID)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bundle)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	names := make(map[string]bool)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names[filepath.Base(hdr.Name)] = true
	}

	for _, name := range []string{FileIndex, FileCSS, FileJS, FileDocs, FileConfig} {
		assert.True(t, names[name], "bundle should contain %s", name)
	}
}

func TestGenerator_BundleMissingScanner(t *testing.T) {
	gen, _, _ := setupGeneratorTest(t)

	_, err := gen.Bundle("scn_missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}

func TestGenerator_Remove(t *testing.T) {
	gen, scanners, dir := setupGeneratorTest(t)
	ctx := context.Background()

	scanner := testScanner()
	require.NoError(t, scanners.Create(ctx, scanner))
	require.NoError(t, gen.Generate(ctx, scanner, testClient(nil)))

	require.NoError(t, gen.Remove(scanner.UID))
	_, err := os.Stat(filepath.Join(dir, scanner.UID))
	assert.True(t, os.IsNotExist(err))
}
