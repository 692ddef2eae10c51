package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mfg-platform/production-service/pkg/cloudevents"
	"github.com/mfg-platform/production-service/pkg/tenant"
)

// TenantAuthConfig holds configuration for tenant authorization middleware
type TenantAuthConfig struct {
	// Required when true, requests without tenant context will be rejected
	Required bool

	// Validator is an optional interface to validate tenant access
	Validator TenantValidator

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string

	// DefaultTenantCode is used when no tenant code header is provided and Required is false
	DefaultTenantCode string

	// DefaultPlantCode is used when no plant header is provided and Required is false
	DefaultPlantCode string
}

// TenantValidator interface for validating tenant access
type TenantValidator interface {
	// ValidateTenantAccess checks if the user (from auth context) has access to the tenant
	ValidateTenantAccess(actorID, tenantID, plantCode string) error
}

// DefaultTenantAuthConfig returns a default configuration for backward compatibility
func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{
		Required:          false,
		DefaultTenantID:   tenant.DefaultTenantID,
		DefaultTenantCode: tenant.DefaultTenantCode,
		DefaultPlantCode:  tenant.DefaultPlantCode,
	}
}

// TenantAuth middleware extracts tenant context from headers and adds it to the request context.
// It can optionally validate that the requesting user has access to the tenant.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}

	return func(c *gin.Context) {
		tenantID := c.GetHeader(cloudevents.HeaderTenantID)
		tenantCode := c.GetHeader(cloudevents.HeaderTenantCode)
		plantCode := c.GetHeader(cloudevents.HeaderPlantCode)
		actorID := c.GetHeader(cloudevents.HeaderActorID)

		if tenantID == "" && !config.Required {
			tenantID = config.DefaultTenantID
		}
		if tenantCode == "" && !config.Required {
			tenantCode = config.DefaultTenantCode
		}
		if plantCode == "" && !config.Required {
			plantCode = config.DefaultPlantCode
		}

		if config.Required && tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_CONTEXT",
				"message": "Tenant context is required",
			})
			return
		}

		if config.Validator != nil && tenantID != "" && actorID != "" {
			if err := config.Validator.ValidateTenantAccess(actorID, tenantID, plantCode); err != nil {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"code":    "UNAUTHORIZED_TENANT_ACCESS",
					"message": "Access to this tenant/plant is not authorized",
				})
				return
			}
		}

		tc := &tenant.Context{
			TenantID:   tenantID,
			TenantCode: tenantCode,
			PlantCode:  plantCode,
			ActorID:    actorID,
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)

		// Also store in Gin context for easy access in handlers
		c.Set("tenantContext", tc)

		c.Next()
	}
}

// GetTenantContext retrieves the tenant context from Gin context
func GetTenantContext(c *gin.Context) *tenant.Context {
	if val, exists := c.Get("tenantContext"); exists {
		if tc, ok := val.(*tenant.Context); ok {
			return tc
		}
	}
	return tenant.FromContextOptional(c.Request.Context())
}

// RequireTenant is a middleware that ensures tenant context is present.
// Use this for endpoints that must have tenant context.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc == nil || tc.IsEmpty() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_CONTEXT",
				"message": "Tenant context is required for this endpoint",
			})
			return
		}
		c.Next()
	}
}

// RequirePlant is a middleware that ensures plant context is present.
// Use this for endpoints that mint plant-scoped identifiers.
func RequirePlant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc == nil || tc.PlantCode == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_PLANT_CONTEXT",
				"message": "Plant context is required for this endpoint",
			})
			return
		}
		c.Next()
	}
}
