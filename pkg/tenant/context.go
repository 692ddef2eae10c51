package tenant

import (
	"context"
	"errors"
)

// Context keys for tenant information
type contextKey string

const (
	tenantIDKey   contextKey = "tenantId"
	tenantCodeKey contextKey = "tenantCode"
	plantCodeKey  contextKey = "plantCode"
	actorIDKey    contextKey = "actorId"
)

// Errors for tenant context operations
var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to tenant resource")
	ErrMissingTenantID      = errors.New("tenantId is required")
	ErrMissingPlantCode     = errors.New("plantCode is required")
)

// Context holds all tenant-related identifiers for multi-tenant operations.
// This struct is used to scope all database queries and operations to a
// specific tenant of the ERP.
type Context struct {
	// TenantID is the company/organization identifier
	TenantID string `json:"tenantId"`

	// TenantCode is the short code used in minted identifiers
	TenantCode string `json:"tenantCode"`

	// PlantCode identifies the manufacturing plant within the tenant
	PlantCode string `json:"plantCode"`

	// ActorID is the user performing the operation, for audit fields
	ActorID string `json:"actorId"`
}

// FromContext extracts a tenant Context from context.Context.
// Returns an error if required tenant fields are missing.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{}

	if v := ctx.Value(tenantIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.TenantID = id
		}
	}
	if v := ctx.Value(tenantCodeKey); v != nil {
		if code, ok := v.(string); ok {
			tc.TenantCode = code
		}
	}
	if v := ctx.Value(plantCodeKey); v != nil {
		if code, ok := v.(string); ok {
			tc.PlantCode = code
		}
	}
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.ActorID = id
		}
	}

	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}

	return tc, nil
}

// FromContextOptional extracts a tenant Context from context.Context.
// Unlike FromContext, this returns an empty context if none exists.
func FromContextOptional(ctx context.Context) *Context {
	tc, _ := FromContext(ctx)
	if tc == nil {
		return &Context{}
	}
	return tc
}

// ToContext adds tenant Context values to context.Context.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}

	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.TenantCode != "" {
		ctx = context.WithValue(ctx, tenantCodeKey, tc.TenantCode)
	}
	if tc.PlantCode != "" {
		ctx = context.WithValue(ctx, plantCodeKey, tc.PlantCode)
	}
	if tc.ActorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, tc.ActorID)
	}

	return ctx
}

// WithTenantID returns a new context with the tenant ID set
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithPlantCode returns a new context with the plant code set
func WithPlantCode(ctx context.Context, plantCode string) context.Context {
	return context.WithValue(ctx, plantCodeKey, plantCode)
}

// WithActorID returns a new context with the acting user set
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) string {
	if v := ctx.Value(tenantIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetPlantCode extracts plant code from context
func GetPlantCode(ctx context.Context) string {
	if v := ctx.Value(plantCodeKey); v != nil {
		if code, ok := v.(string); ok {
			return code
		}
	}
	return ""
}

// GetActorID extracts the acting user from context
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// IsEmpty returns true if the context has no tenant identifiers set
func (tc *Context) IsEmpty() bool {
	return tc.TenantID == "" && tc.PlantCode == ""
}

// HasTenant returns true if a tenant ID is set
func (tc *Context) HasTenant() bool {
	return tc.TenantID != ""
}

// Validate checks that all required tenant context fields are present.
func (tc *Context) Validate() error {
	if tc.TenantID == "" {
		return ErrMissingTenantID
	}
	return nil
}

// ValidateWithPlant validates required fields including the plant code.
// Use this for operations that mint plant-scoped identifiers.
func (tc *Context) ValidateWithPlant() error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if tc.PlantCode == "" {
		return ErrMissingPlantCode
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to this tenant context.
// Used to prevent cross-tenant data access.
func (tc *Context) ValidateOwnership(resourceTenantID string) error {
	if tc.TenantID != "" && resourceTenantID != "" && tc.TenantID != resourceTenantID {
		return ErrUnauthorizedAccess
	}
	return nil
}

// Defaults used during migration for existing data without tenant fields.
const (
	DefaultTenantID   = "DEFAULT_TENANT"
	DefaultTenantCode = "DFLT"
	DefaultPlantCode  = "MAIN"
)

// Default returns a default tenant context for backward compatibility
func Default() *Context {
	return &Context{
		TenantID:   DefaultTenantID,
		TenantCode: DefaultTenantCode,
		PlantCode:  DefaultPlantCode,
	}
}
