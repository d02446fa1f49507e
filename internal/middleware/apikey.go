package middleware

import (
	"errors"
	"net/http"

	"github.com/cybrscan/cybrscan/internal/database/repositories"
	"github.com/cybrscan/cybrscan/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// API key errors
var (
	ErrAPIKeyMissing  = errors.New("api key is required")
	ErrAPIKeyInvalid  = errors.New("invalid api key")
	ErrClientInactive = errors.New("client account is inactive")
)

// APIKeyMiddleware authenticates widget and API requests using scanner or client API keys
type APIKeyMiddleware struct {
	scannerRepo repositories.ScannerRepository
	clientRepo  repositories.ClientRepository
	log         *logrus.Logger
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(scannerRepo repositories.ScannerRepository, clientRepo repositories.ClientRepository, log *logrus.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		scannerRepo: scannerRepo,
		clientRepo:  clientRepo,
		log:         log,
	}
}

// extractAPIKey reads the API key from the X-Api-Key header or the api_key query parameter
func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-Api-Key"); key != "" {
		return key
	}
	return c.Query("api_key")
}

// RequireScannerKey resolves a scanner API key and stores the scanner and owning
// client in the request context
func (m *APIKeyMiddleware) RequireScannerKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAPIKeyMissing.Error()})
			c.Abort()
			return
		}

		scanner, err := m.scannerRepo.GetByAPIKey(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAPIKeyInvalid.Error()})
			} else {
				m.log.WithError(err).Error("Failed to resolve scanner API key")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			c.Abort()
			return
		}

		client, err := m.clientRepo.GetByID(c.Request.Context(), scanner.ClientID)
		if err != nil {
			m.log.WithError(err).WithField("scannerUID", scanner.UID).Error("Failed to load client for scanner")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			c.Abort()
			return
		}

		if !client.Active {
			c.JSON(http.StatusForbidden, gin.H{"error": ErrClientInactive.Error()})
			c.Abort()
			return
		}

		c.Set("scanner", scanner)
		c.Set("client", client)
		c.Next()
	}
}

// RequireClientKey resolves a client API key and stores the client in the request context
func (m *APIKeyMiddleware) RequireClientKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAPIKeyMissing.Error()})
			c.Abort()
			return
		}

		client, err := m.clientRepo.GetByAPIKey(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAPIKeyInvalid.Error()})
			} else {
				m.log.WithError(err).Error("Failed to resolve client API key")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			c.Abort()
			return
		}

		if !client.Active {
			c.JSON(http.StatusForbidden, gin.H{"error": ErrClientInactive.Error()})
			c.Abort()
			return
		}

		c.Set("client", client)
		c.Next()
	}
}

// GetScanner extracts the authenticated scanner from the request context
func GetScanner(c *gin.Context) (*models.Scanner, error) {
	value, exists := c.Get("scanner")
	if !exists {
		return nil, errors.New("scanner not found in context")
	}

	scanner, ok := value.(*models.Scanner)
	if !ok {
		return nil, errors.New("scanner in context has invalid type")
	}

	return scanner, nil
}

// GetClient extracts the authenticated client from the request context
func GetClient(c *gin.Context) (*models.Client, error) {
	value, exists := c.Get("client")
	if !exists {
		return nil, errors.New("client not found in context")
	}

	client, ok := value.(*models.Client)
	if !ok {
		return nil, errors.New("client in context has invalid type")
	}

	return client, nil
}
