// @title CybrScan API
// @version 1.0
// @description Multi-tenant security scanner platform with white-labeled widgets and lead capture.

// @contact.name API Support
// @contact.email support@cybrscan.io

// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Example: "Bearer {token}"

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Api-Key
// @description Scanner API key issued when a scanner widget is created

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cybrscan/cybrscan/internal/api"
	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/config"
	"github.com/cybrscan/cybrscan/internal/database"
	"github.com/cybrscan/cybrscan/internal/report"
)

// Version information (will be set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	fmt.Printf("CybrScan %s (%s) built on %s\n", Version, Commit, BuildDate)

	logger := initLogger()
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	}).Info("Starting CybrScan")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	authService, err := initAuthService(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize authentication service")
	}

	server, err := initAPIServer(cfg, logger, db, authService)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize API server")
	}

	if cfg.Server.TLS.Enabled {
		logger.Info("Starting server with TLS enabled")
		if err := server.StartTLS(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server with TLS")
		}
	} else {
		logger.Info("Starting server without TLS")
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
}

// initLogger initializes and configures the logger
func initLogger() *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableSorting:  false,
	})

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel != "" {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logger.WithError(err).Warn("Invalid log level, defaulting to info")
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

// initDatabase initializes the database and runs pending migrations
func initDatabase(cfg *config.Config, logger *logrus.Logger) (database.Database, error) {
	logger.WithFields(logrus.Fields{
		"type": cfg.Database.Type,
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
		"name": cfg.Database.Name,
	}).Info("Initializing database connection")

	db, err := database.InitDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info("Running database migrations")
	migrator, err := database.NewMigrator(db.DB(), database.DefaultMigrateOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	migrator.RegisterAllMigrations()
	if err := migrator.MigrateUp(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return db, nil
}

// initAuthService initializes and configures the authentication service
func initAuthService(cfg *config.Config, db database.Database, logger *logrus.Logger) (auth.Service, error) {
	logger.Info("Initializing authentication service")

	jwtConfig := auth.JWTConfig{
		AccessTokenSecret:  cfg.Auth.Secret,
		RefreshTokenSecret: cfg.Auth.Secret,
		AccessTokenExpiry:  int(cfg.Auth.AccessTokenTTL.Minutes()),
		RefreshTokenExpiry: int(cfg.Auth.RefreshTokenTTL.Hours()),
		Issuer:             cfg.Auth.TokenIssuer,
		Audience:           []string{cfg.Auth.TokenAudience},
	}

	tokenStore := auth.NewInMemoryTokenStore()

	passwordConfig := auth.PasswordConfig{
		MinLength: cfg.Auth.PasswordPolicy.MinLength,
		MaxLength: 72, // bcrypt limit
		HashCost:  bcrypt.DefaultCost,
	}

	return auth.NewService(
		db,
		jwtConfig,
		passwordConfig,
		tokenStore,
		cfg.Auth.ResetTokenTTL,
		logger,
	), nil
}

// initAPIServer initializes and configures the API server
func initAPIServer(cfg *config.Config, logger *logrus.Logger, db database.Database, authService auth.Service) (*api.Server, error) {
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Initializing API server")

	// Report email delivery is optional; without SMTP the reports stay
	// download-only
	var mailer report.Mailer
	if cfg.Reports.SMTP.Enabled {
		mailer = report.NewSMTPMailer(report.SMTPConfig{
			Host:     cfg.Reports.SMTP.Host,
			Port:     cfg.Reports.SMTP.Port,
			User:     cfg.Reports.SMTP.User,
			Password: cfg.Reports.SMTP.Password,
			From:     cfg.Reports.SMTP.From,
		}, logger)
		logger.WithField("host", cfg.Reports.SMTP.Host).Info("SMTP report delivery enabled")
	}

	server, err := api.NewServer(&api.ServerConfig{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		AuthService: authService,
		Mailer:      mailer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}

	return server, nil
}
