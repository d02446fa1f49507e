package deploy

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/utils"
	"github.com/cybrscan/cybrscan/internal/utils/archiver"
)

// Widget asset file names produced for every scanner.
const (
	FileIndex  = "index.html"
	FileCSS    = "scanner.css"
	FileJS     = "scanner.js"
	FileDocs   = "api-docs.md"
	FileConfig = "scanner.yaml"
)

// Default branding used when a client has no customization row yet.
const (
	DefaultPrimaryColor   = "#02054c"
	DefaultSecondaryColor = "#35a310"
	DefaultButtonColor    = "#28a745"
)

// templateData carries everything the widget templates need.
type templateData struct {
	ScannerName    string
	ScannerUID     string
	APIKey         string
	APIBaseURL     string
	BusinessName   string
	ContactEmail   string
	PrimaryColor   string
	SecondaryColor string
	ButtonColor    string
	LogoURL        string
	FaviconURL     string
	CSSOverride    string
}

// configSnapshot is written alongside the widget as scanner.yaml so that
// deployed assets can be audited without a database lookup.
type configSnapshot struct {
	ScannerUID      string    `yaml:"scanner_uid"`
	ScannerName     string    `yaml:"scanner_name"`
	ClientID        uint      `yaml:"client_id"`
	BusinessName    string    `yaml:"business_name"`
	APIBaseURL      string    `yaml:"api_base_url"`
	TemplateVersion string    `yaml:"template_version"`
	PrimaryColor    string    `yaml:"primary_color"`
	SecondaryColor  string    `yaml:"secondary_color"`
	ButtonColor     string    `yaml:"button_color"`
	GeneratedAt     time.Time `yaml:"generated_at"`
}

// Generator renders white-labeled widget assets for scanners.
type Generator struct {
	dir             string
	publicBaseURL   string
	templateVersion string
	scanners        repositories.ScannerRepository
	log             *logrus.Logger

	indexTmpl *htmltemplate.Template
	cssTmpl   *texttemplate.Template
	jsTmpl    *texttemplate.Template
	docsTmpl  *texttemplate.Template
}

// NewGenerator creates a widget generator writing under dir. The templates
// are parsed once up front so a bad template fails at startup rather than
// on the first deployment.
func NewGenerator(dir, publicBaseURL, templateVersion string, scanners repositories.ScannerRepository, log *logrus.Logger) (*Generator, error) {
	indexTmpl, err := htmltemplate.New(FileIndex).Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}
	cssTmpl, err := texttemplate.New(FileCSS).Parse(cssTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse css template: %w", err)
	}
	jsTmpl, err := texttemplate.New(FileJS).Parse(jsTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse js template: %w", err)
	}
	docsTmpl, err := texttemplate.New(FileDocs).Parse(docsTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse docs template: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create deployment directory: %w", err)
	}

	return &Generator{
		dir:             dir,
		publicBaseURL:   strings.TrimRight(publicBaseURL, "/"),
		templateVersion: templateVersion,
		scanners:        scanners,
		log:             log,
		indexTmpl:       indexTmpl,
		cssTmpl:         cssTmpl,
		jsTmpl:          jsTmpl,
		docsTmpl:        docsTmpl,
	}, nil
}

// TemplateVersion returns the version stamped on generated widgets.
func (g *Generator) TemplateVersion() string {
	return g.templateVersion
}

// ScannerDir returns the directory holding a scanner's generated assets.
func (g *Generator) ScannerDir(scannerUID string) string {
	return filepath.Join(g.dir, scannerUID)
}

// AssetPath returns the on-disk path of one widget asset.
func (g *Generator) AssetPath(scannerUID, file string) string {
	return filepath.Join(g.dir, scannerUID, file)
}

// Generate renders all widget assets for a scanner and marks it deployed.
// The client must carry its Customization preloaded; without one the
// platform default branding is used.
func (g *Generator) Generate(ctx context.Context, scanner *models.Scanner, client *models.Client) error {
	if scanner == nil || client == nil {
		return fmt.Errorf("scanner and client are required")
	}

	data := g.buildTemplateData(scanner, client)
	dir := g.ScannerDir(scanner.UID)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create scanner directory: %w", err)
	}

	if err := g.renderFile(filepath.Join(dir, FileIndex), func(w io.Writer) error {
		return g.indexTmpl.Execute(w, data)
	}); err != nil {
		return err
	}
	if err := g.renderFile(filepath.Join(dir, FileCSS), func(w io.Writer) error {
		return g.cssTmpl.Execute(w, data)
	}); err != nil {
		return err
	}
	if err := g.renderFile(filepath.Join(dir, FileJS), func(w io.Writer) error {
		return g.jsTmpl.Execute(w, data)
	}); err != nil {
		return err
	}
	if err := g.renderFile(filepath.Join(dir, FileDocs), func(w io.Writer) error {
		return g.docsTmpl.Execute(w, data)
	}); err != nil {
		return err
	}

	snapshot := configSnapshot{
		ScannerUID:      scanner.UID,
		ScannerName:     scanner.Name,
		ClientID:        client.ID,
		BusinessName:    client.BusinessName,
		APIBaseURL:      g.publicBaseURL,
		TemplateVersion: g.templateVersion,
		PrimaryColor:    data.PrimaryColor,
		SecondaryColor:  data.SecondaryColor,
		ButtonColor:     data.ButtonColor,
		GeneratedAt:     time.Now().UTC(),
	}
	raw, err := yaml.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal scanner config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileConfig), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write scanner config: %w", err)
	}

	if err := g.scanners.MarkDeployed(ctx, scanner.ID, dir, g.templateVersion); err != nil {
		return fmt.Errorf("failed to record deployment: %w", err)
	}

	g.log.WithFields(logrus.Fields{
		"scanner_uid":      scanner.UID,
		"client_id":        client.ID,
		"deploy_path":      dir,
		"template_version": g.templateVersion,
	}).Info("Scanner widget deployed")

	return nil
}

// NeedsRegeneration reports whether a scanner's assets are stale relative
// to its client's customization or the current template version.
func (g *Generator) NeedsRegeneration(scanner *models.Scanner, client *models.Client) bool {
	if scanner == nil {
		return false
	}
	if !scanner.IsDeployed() || scanner.DeployedAt == nil {
		return true
	}
	if scanner.TemplateVersion != g.templateVersion {
		return true
	}
	if client != nil && client.Customization != nil &&
		client.Customization.UpdatedAt.After(*scanner.DeployedAt) {
		return true
	}
	return false
}

// Remove deletes a scanner's generated assets from disk.
func (g *Generator) Remove(scannerUID string) error {
	if scannerUID == "" {
		return fmt.Errorf("scanner uid is required")
	}
	dir := g.ScannerDir(scannerUID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove scanner assets: %w", err)
	}
	g.log.WithField("scanner_uid", scannerUID).Info("Scanner widget assets removed")
	return nil
}

// Bundle packages a scanner's assets as a tar.gz for download.
func (g *Generator) Bundle(scannerUID string) (io.Reader, error) {
	dir := g.ScannerDir(scannerUID)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scanner assets not found: %w", err)
	}

	paths := make([]string, 0, 5)
	for _, name := range []string{FileIndex, FileCSS, FileJS, FileDocs, FileConfig} {
		path := filepath.Join(dir, name)
		if utils.FileExists(path) {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("scanner assets not found: no files under %s", dir)
	}

	return archiver.ArchiveFiles(paths, archiver.DefaultArchiveOptions)
}

func (g *Generator) buildTemplateData(scanner *models.Scanner, client *models.Client) templateData {
	data := templateData{
		ScannerName:    scanner.Name,
		ScannerUID:     scanner.UID,
		APIKey:         scanner.APIKey,
		APIBaseURL:     g.publicBaseURL,
		BusinessName:   client.BusinessName,
		ContactEmail:   client.ContactEmail,
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
		ButtonColor:    DefaultButtonColor,
	}

	if c := client.Customization; c != nil {
		if c.PrimaryColor != "" {
			data.PrimaryColor = c.PrimaryColor
		}
		if c.SecondaryColor != "" {
			data.SecondaryColor = c.SecondaryColor
		}
		if c.ButtonColor != "" {
			data.ButtonColor = c.ButtonColor
		}
		data.LogoURL = c.LogoURL
		data.FaviconURL = c.FaviconURL
		data.CSSOverride = c.CSSOverride
	}

	return data
}

func (g *Generator) renderFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
