package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cybrscan/cybrscan/internal/auth"
	"github.com/cybrscan/cybrscan/internal/config"
	"github.com/cybrscan/cybrscan/internal/database"
	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/deploy"
	"github.com/cybrscan/cybrscan/internal/middleware"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/cybrscan/cybrscan/internal/report"
	"github.com/cybrscan/cybrscan/internal/scanengine"
	"github.com/cybrscan/cybrscan/internal/utils"
)

// Server represents the API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	logger      *logrus.Logger
	db          database.Database
	authService auth.Service
	authMW      *middleware.AuthMiddleware
	apiKeyMW    *middleware.APIKeyMiddleware
	engine      *scanengine.Engine
	hub         *scanengine.Hub
	shutdownWg  sync.WaitGroup
	shutdownCh  chan os.Signal
	limiterDone chan struct{}

	// API Controllers
	authController   *AuthController
	adminController  *AdminController
	clientController *ClientController
	scanController   *ScanController
}

// ServerConfig contains the configuration for the API server
type ServerConfig struct {
	Config      *config.Config
	Logger      *logrus.Logger
	DB          database.Database
	AuthService auth.Service

	// Mailer delivers reset tokens and scan reports; nil disables email
	Mailer report.Mailer
}

// NewServer creates a new API server
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.DB == nil {
		return nil, errors.New("database is required")
	}
	if cfg.AuthService == nil {
		return nil, errors.New("auth service is required")
	}

	server := &Server{
		config:      cfg.Config,
		logger:      cfg.Logger,
		db:          cfg.DB,
		authService: cfg.AuthService,
		authMW:      middleware.NewAuthMiddleware(cfg.AuthService),
		shutdownCh:  make(chan os.Signal, 1),
		limiterDone: make(chan struct{}),
	}

	// Repositories
	gormDB := cfg.DB.DB()
	userRepo := repositories.NewUserRepository(gormDB)
	clientRepo := repositories.NewClientRepository(gormDB)
	scannerRepo := repositories.NewScannerRepository(gormDB)
	scanRepo := repositories.NewScanRepository(gormDB)
	leadRepo := repositories.NewLeadRepository(gormDB)
	auditRepo := repositories.NewAuditRepository(gormDB)
	settingsRepo := repositories.NewSettingsRepository(gormDB)

	server.apiKeyMW = middleware.NewAPIKeyMiddleware(scannerRepo, clientRepo, cfg.Logger)

	// Widget asset generator
	publicBaseURL := cfg.Config.Deploy.PublicBaseURL
	if publicBaseURL == "" {
		publicBaseURL = cfg.Config.Server.BaseURL
	}
	generator, err := deploy.NewGenerator(
		cfg.Config.Deploy.Dir,
		publicBaseURL,
		cfg.Config.Deploy.TemplateVersion,
		scannerRepo,
		cfg.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget generator: %w", err)
	}

	// Report rendering and delivery
	reportService, err := report.NewService(
		cfg.Config.Reports.Dir,
		report.NewPDFRenderer(cfg.Logger),
		cfg.Mailer,
		scanRepo,
		cfg.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create report service: %w", err)
	}

	// Scan engine with live progress fan-out. Completed scans get their
	// report rendered and emailed to the lead automatically.
	server.hub = scanengine.NewHub()
	server.engine = scanengine.New(
		scanengine.Config{
			Workers:        cfg.Config.ScanEngine.Workers,
			QueueSize:      cfg.Config.ScanEngine.QueueSize,
			CheckTimeout:   cfg.Config.ScanEngine.CheckTimeout,
			ScanTimeout:    cfg.Config.ScanEngine.ScanTimeout,
			Ports:          cfg.Config.ScanEngine.PortScanPorts,
			DKIMSelectors:  cfg.Config.ScanEngine.DKIMSelectors,
			SensitivePaths: cfg.Config.ScanEngine.SensitivePaths,
			UserAgent:      cfg.Config.ScanEngine.UserAgent,
		},
		scanRepo,
		leadRepo,
		server.hub,
		cfg.Logger,
		scanengine.WithCompletionHook(func(scan *models.Scan) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			client, err := clientRepo.GetByID(ctx, scan.ClientID)
			if err != nil {
				cfg.Logger.WithError(err).WithField("scan_uid", scan.UID).Error("Failed to load client for report delivery")
				return
			}
			if err := reportService.Email(ctx, scan, client); err != nil {
				if !errors.Is(err, report.ErrMailDisabled) {
					cfg.Logger.WithError(err).WithField("scan_uid", scan.UID).Error("Failed to deliver scan report")
				}
				// Render the report anyway so the first download is instant
				if _, err := reportService.Ensure(ctx, scan, client); err != nil {
					cfg.Logger.WithError(err).WithField("scan_uid", scan.UID).Error("Failed to render scan report")
				}
			}
		}),
	)

	// Controllers
	server.authController = NewAuthController(
		cfg.AuthService,
		userRepo,
		auditRepo,
		cfg.Mailer,
		publicBaseURL,
		cfg.Config.Auth.AccessTokenTTL,
		cfg.Logger,
	)
	server.adminController = NewAdminController(
		cfg.AuthService,
		userRepo,
		clientRepo,
		scannerRepo,
		scanRepo,
		leadRepo,
		auditRepo,
		settingsRepo,
		cfg.Logger,
	)
	server.clientController = NewClientController(
		clientRepo,
		scannerRepo,
		scanRepo,
		leadRepo,
		auditRepo,
		generator,
		reportService,
		cfg.Logger,
	)
	server.scanController = NewScanController(
		scanRepo,
		scannerRepo,
		clientRepo,
		server.engine,
		server.hub,
		generator,
		cfg.Logger,
	)

	// Set Gin mode based on environment
	switch server.config.Server.Mode {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())

	loggingMW := middleware.NewLoggingMiddleware(server.logger)
	recoveryMW := middleware.NewRecoveryMiddleware(server.logger)
	router.Use(loggingMW.Logger())
	router.Use(recoveryMW.Recovery())

	// Widgets are embedded in arbitrary customer pages
	router.Use(middleware.WidgetCORS())

	if server.config.Security.RateLimiting.Enabled {
		rl := server.config.Security.RateLimiting
		rps := rl.MaxPerIP
		if rl.WindowSecs > 1 {
			rps = int(int64(rl.MaxPerIP) / rl.WindowSecs)
			if rps < 1 {
				rps = 1
			}
		}
		limiter := utils.NewRateLimiter(rps, rl.MaxPerIP)
		router.Use(utils.RateLimitMiddleware(limiter))

		// Drop buckets for widgets that stopped sending traffic
		server.shutdownWg.Add(1)
		go func() {
			defer server.shutdownWg.Done()
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-server.limiterDone:
					return
				case <-ticker.C:
					limiter.CleanupLimiters(time.Hour)
				}
			}
		}()
	}

	server.router = router

	readTimeout := server.config.Server.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := server.config.Server.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", server.config.Server.Host, server.config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// Start starts the API server
func (s *Server) Start() error {
	if err := s.RegisterRoutes(); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	s.engine.Start()

	signal.Notify(s.shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.WithField("address", s.httpServer.Addr).Info("Starting API server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-s.shutdownCh
		s.logger.Info("Shutdown signal received")
		s.Shutdown()
	}()

	return nil
}

// StartTLS starts the API server with TLS enabled
func (s *Server) StartTLS() error {
	if err := s.RegisterRoutes(); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	if !s.config.Server.TLS.Enabled {
		return errors.New("TLS is not enabled in configuration")
	}
	if s.config.Server.TLS.CertFile == "" {
		return errors.New("TLS certificate file is required")
	}
	if s.config.Server.TLS.KeyFile == "" {
		return errors.New("TLS key file is required")
	}

	s.engine.Start()

	signal.Notify(s.shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.WithField("address", s.httpServer.Addr).Info("Starting API server (TLS)")
		if err := s.httpServer.ListenAndServeTLS(
			s.config.Server.TLS.CertFile,
			s.config.Server.TLS.KeyFile,
		); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-s.shutdownCh
		s.logger.Info("Shutdown signal received")
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the API server, draining in-flight scans
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down API server...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Error during server shutdown")
	}

	if err := s.engine.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Error draining scan engine")
	}

	if err := s.db.Close(); err != nil {
		s.logger.WithError(err).Error("Error closing database connection")
	}

	close(s.limiterDone)
	s.shutdownWg.Wait()

	s.logger.Info("API server shutdown complete")
}

// Router returns the Gin router instance
func (s *Server) Router() *gin.Engine {
	return s.router
}

// GetAuthMiddleware returns the authentication middleware
func (s *Server) GetAuthMiddleware() *middleware.AuthMiddleware {
	return s.authMW
}

// GetDB returns the database instance
func (s *Server) GetDB() database.Database {
	return s.db
}

// GetAuthService returns the authentication service
func (s *Server) GetAuthService() auth.Service {
	return s.authService
}

// GetLogger returns the logger instance
func (s *Server) GetLogger() *logrus.Logger {
	return s.logger
}

// GetConfig returns the configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}

// Ping godoc
// @Summary Health check
// @Description Returns 200 when the API is reachable and the database responds.
// @Tags System
// @Produce json
// @Success 200 {object} models.SuccessResponse "Service healthy"
// @Failure 503 {object} models.ErrorResponse "Database unreachable"
// @Router /health [get]
func (s *Server) Ping(c *gin.Context) {
	sqlDB, err := s.db.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.logger.WithError(err).Error("Health check failed")
		utils.ServiceUnavailable(c, "Database unreachable")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"status":  "ok",
		"version": s.config.Version,
	})
}
