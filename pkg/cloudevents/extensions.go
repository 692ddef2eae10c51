package cloudevents

import (
	"github.com/mfg-platform/production-service/pkg/tenant"
)

// CloudEvents extension attribute names for tenant context
const (
	ExtTenantID      = "mfgtenantid"
	ExtPlantCode     = "mfgplantcode"
	ExtCorrelationID = "mfgcorrelationid"
	ExtWorkOrderID   = "mfgworkorderid"
)

// HTTP header names for tenant context
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderTenantCode = "X-Tenant-Code"
	HeaderPlantCode  = "X-Plant-Code"
	HeaderActorID    = "X-Actor-ID"
)

// SetTenantContext sets tenant context extensions on a CloudEvent
func (e *CloudEvent) SetTenantContext(tc *tenant.Context) {
	if tc == nil {
		return
	}
	e.TenantID = tc.TenantID
}

// GetTenantContext extracts tenant context from a CloudEvent
func (e *CloudEvent) GetTenantContext() *tenant.Context {
	return &tenant.Context{
		TenantID: e.TenantID,
	}
}

// WithTenantContext is a builder method that sets tenant context and returns the event
func (e *CloudEvent) WithTenantContext(tc *tenant.Context) *CloudEvent {
	e.SetTenantContext(tc)
	return e
}

// HasTenantContext returns true if the tenant field is set
func (e *CloudEvent) HasTenantContext() bool {
	return e.TenantID != ""
}
