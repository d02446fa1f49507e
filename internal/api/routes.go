package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cybrscan/cybrscan/internal/models"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cybrscan/cybrscan/docs" // Import generated docs
)

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() error {
	router := s.router
	authMW := s.authMW

	s.logger.Info("Registering API routes...")

	apiV1 := router.Group("/api/v1")

	// Health check - no auth required
	apiV1.GET("/health", s.Ping)
	apiV1.HEAD("/health", s.Ping)

	// Authentication routes - no auth required
	authGroup := apiV1.Group("/auth")
	{
		authGroup.POST("/register", s.authController.Register)
		authGroup.POST("/login", s.authController.Login)
		authGroup.POST("/refresh", s.authController.Refresh)
		authGroup.POST("/logout", authMW.RequireAuthentication(), s.authController.Logout)
		authGroup.POST("/password-reset", s.authController.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", s.authController.ConfirmPasswordReset)
	}

	// User routes - authenticated
	user := apiV1.Group("/user", authMW.RequireAuthentication())
	{
		user.GET("/me", s.authController.GetCurrentUser)
		user.PUT("/me", s.authController.UpdateCurrentUser)
		user.PUT("/me/password", s.authController.ChangePassword)
	}

	// Admin routes - admin only
	admin := apiV1.Group("/admin", authMW.RequireAuthentication(), authMW.RequireAdmin())
	{
		admin.GET("/dashboard", s.adminController.Dashboard)

		admin.GET("/users", s.adminController.ListUsers)
		admin.POST("/users", s.adminController.CreateUser)
		admin.GET("/users/:id", s.adminController.GetUser)
		admin.PUT("/users/:id", s.adminController.UpdateUser)
		admin.DELETE("/users/:id", s.adminController.DeleteUser)

		admin.GET("/clients", s.adminController.ListClients)
		admin.POST("/clients", s.adminController.CreateClient)
		admin.GET("/clients/:id", s.adminController.GetClient)
		admin.PUT("/clients/:id", s.adminController.UpdateClient)
		admin.DELETE("/clients/:id", s.adminController.DeactivateClient)

		admin.GET("/audit", s.adminController.ListAudit)
		admin.GET("/settings", s.adminController.GetSettings)
		admin.PUT("/settings", s.adminController.UpdateSettings)
	}

	// Client portal routes - client or admin
	client := apiV1.Group("/client", authMW.RequireAuthentication(), authMW.RequireRole(string(models.RoleClient), string(models.RoleAdmin)))
	{
		client.GET("/dashboard", s.clientController.Dashboard)

		client.GET("/scanners", s.clientController.ListScanners)
		client.POST("/scanners", s.clientController.CreateScanner)
		client.GET("/scanners/:uid", s.clientController.GetScanner)
		client.PUT("/scanners/:uid", s.clientController.UpdateScanner)
		client.DELETE("/scanners/:uid", s.clientController.DeleteScanner)
		client.GET("/scanners/:uid/bundle", s.clientController.DownloadScannerBundle)

		client.GET("/customization", s.clientController.GetCustomization)
		client.PUT("/customization", s.clientController.UpdateCustomization)

		client.GET("/scans", s.clientController.ListScans)
		client.GET("/scans/:uid", s.clientController.GetScan)
		client.GET("/scans/:uid/report", s.clientController.DownloadReport)
		client.POST("/scans/:uid/report/email", s.clientController.EmailReport)

		client.GET("/leads", s.clientController.ListLeads)
		client.PUT("/leads/:id", s.clientController.UpdateLead)
	}

	// Integration API - client API key required
	integration := apiV1.Group("/scans", s.apiKeyMW.RequireClientKey())
	{
		integration.GET("", s.scanController.ListClientScans)
		integration.GET("/:scan_uid", s.scanController.GetClientScan)
	}

	// Public widget scan API - scanner API key required
	scanner := apiV1.Group("/scanner/:uid", s.apiKeyMW.RequireScannerKey())
	{
		scanner.POST("/scan", s.scanController.SubmitScan)
		scanner.GET("/scan/:scan_uid", s.scanController.GetScan)
		scanner.GET("/scan/:scan_uid/events", s.scanController.StreamScanEvents)
		scanner.GET("/scan/:scan_uid/ws", s.scanController.StreamScanSocket)
	}

	// Widget assets - public, served to embedding pages
	router.GET("/scanner/:uid/embed", s.scanController.ServeWidgetPage)
	router.GET("/scanner/:uid/assets/:file", s.scanController.ServeWidgetAsset)

	// API documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
		ginSwagger.DocExpansion("list"),
		ginSwagger.DeepLinking(true),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	// 404 handler for all other routes
	router.NoRoute(s.handleNotFound)
	s.logger.Info("API routes registered successfully.")

	return nil
}

// Handle 404 Not Found
func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "Route not found",
		"path":  c.Request.URL.Path,
		"time":  time.Now(),
	})
}
