package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/variantcart/internal/config"
)

const (
	CustomerContextKey     = "customer_id"
	GuestSessionContextKey = "guest_session"

	CustomerIDHeader   = "X-Customer-ID"
	GuestSessionHeader = "X-Guest-Session"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ServiceKeyMiddleware authenticates trusted callers (storefront backend, CLI tools) with a
// bearer service key checked against the configured bcrypt hash
func ServiceKeyMiddleware(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header", "code": "unauthorized"})
			c.Abort()
			return
		}

		// Extract Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format", "code": "unauthorized"})
			c.Abort()
			return
		}

		serviceKey := strings.TrimSpace(parts[1])
		if serviceKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing service key", "code": "unauthorized"})
			c.Abort()
			return
		}

		if cfg.API.ServiceKeyHash == "" || !VerifyServiceKey(serviceKey, cfg.API.ServiceKeyHash) {
			logger.Warn("Rejected service key", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid service key", "code": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CustomerMiddleware reads the customer a trusted call is made for from X-Customer-ID.
// Must run after ServiceKeyMiddleware.
func CustomerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := strings.TrimSpace(c.GetHeader(CustomerIDHeader))
		if customerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + CustomerIDHeader + " header", "code": "validation_failed"})
			c.Abort()
			return
		}

		c.Set(CustomerContextKey, customerID)
		c.Next()
	}
}

// GuestSessionMiddleware resolves the guest session from X-Guest-Session, issuing a new one
// when the header is absent. The session ID is echoed back in the response header.
func GuestSessionMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(GuestSessionHeader))
		if sessionID == "" {
			sessionID = uuid.NewString()
			logger.Debug("Issued guest session", zap.String("guest_session", sessionID))
		} else if !ValidGuestSession(sessionID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + GuestSessionHeader + " header", "code": "validation_failed"})
			c.Abort()
			return
		}

		c.Header(GuestSessionHeader, sessionID)
		c.Set(GuestSessionContextKey, sessionID)
		c.Next()
	}
}

// ValidGuestSession reports whether id has the shape of an issued guest session ID
func ValidGuestSession(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// GetCustomerFromContext retrieves the authenticated customer ID from the Gin context
func GetCustomerFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(CustomerContextKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// GetGuestSessionFromContext retrieves the guest session ID from the Gin context
func GetGuestSessionFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(GuestSessionContextKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// HashServiceKey hashes a service key for SERVICE_KEY_HASH
func HashServiceKey(serviceKey string) (string, error) {
	// Use a cost of 10 for service keys (faster than passwords)
	hash, err := bcrypt.GenerateFromPassword([]byte(serviceKey), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyServiceKey verifies a service key against a hash
func VerifyServiceKey(serviceKey, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(serviceKey))
	return err == nil
}
