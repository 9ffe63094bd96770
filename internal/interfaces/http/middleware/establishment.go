package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Keys used to store establishment information in gin.Context
const (
	EstablishmentIDKey     = "establishment_id"
	EstablishmentHeaderKey = "X-Establishment-ID"
)

// EstablishmentValidator checks that an establishment exists and is active
type EstablishmentValidator interface {
	ValidateEstablishment(establishmentID string) error
}

// EstablishmentMiddlewareConfig holds configuration for establishment middleware
type EstablishmentMiddlewareConfig struct {
	// SkipPaths are paths that don't require establishment context (e.g., health check)
	SkipPaths []string
	// Required determines if establishment context is mandatory
	Required bool
	// Validator is an optional validator to check if the establishment exists and is active
	Validator EstablishmentValidator
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultEstablishmentConfig returns default establishment middleware configuration
func DefaultEstablishmentConfig() EstablishmentMiddlewareConfig {
	return EstablishmentMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/metrics", "/api/v1/health"},
		Required:  true,
		Validator: nil,
		Logger:    nil,
	}
}

// EstablishmentMiddleware extracts the establishment ID from the
// X-Establishment-ID header. Every cost engine operation is scoped to one
// establishment; requests without one are rejected on protected routes.
func EstablishmentMiddleware() gin.HandlerFunc {
	return EstablishmentMiddlewareWithConfig(DefaultEstablishmentConfig())
}

// EstablishmentMiddlewareWithConfig returns establishment middleware with custom configuration
func EstablishmentMiddlewareWithConfig(cfg EstablishmentMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		establishmentID := c.GetHeader(EstablishmentHeaderKey)

		if establishmentID != "" {
			if _, err := uuid.Parse(establishmentID); err != nil {
				respondUnauthorized(c, "Invalid establishment ID format")
				return
			}
		}

		if establishmentID == "" && cfg.Required {
			respondUnauthorized(c, "Establishment identification required")
			return
		}

		if establishmentID != "" && cfg.Validator != nil {
			if err := cfg.Validator.ValidateEstablishment(establishmentID); err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Establishment validation failed",
					zap.String("establishment_id", establishmentID),
					zap.Error(err),
				)
				respondUnauthorized(c, "Invalid or inactive establishment")
				return
			}
		}

		if establishmentID != "" {
			c.Set(EstablishmentIDKey, establishmentID)

			// Propagate to the request context so the service layer logs carry it
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithEstablishmentID(ctx, log, establishmentID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetEstablishmentID retrieves the establishment ID from gin.Context
func GetEstablishmentID(c *gin.Context) string {
	if establishmentID, exists := c.Get(EstablishmentIDKey); exists {
		if id, ok := establishmentID.(string); ok {
			return id
		}
	}
	return ""
}

// GetEstablishmentUUID retrieves the establishment ID as UUID from gin.Context
func GetEstablishmentUUID(c *gin.Context) (uuid.UUID, error) {
	establishmentID := GetEstablishmentID(c)
	if establishmentID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(establishmentID)
}

// OptionalEstablishmentMiddleware creates middleware that doesn't require an establishment
func OptionalEstablishmentMiddleware() gin.HandlerFunc {
	cfg := DefaultEstablishmentConfig()
	cfg.Required = false
	return EstablishmentMiddlewareWithConfig(cfg)
}
