package cloudevents

import (
	"time"
)

// EventType constants for production domain events
const (
	// Work order events
	WorkOrderCreated   = "mfg.workorder.created"
	WorkOrderStarted   = "mfg.workorder.started"
	WorkOrderCompleted = "mfg.workorder.completed"
	WorkOrderCancelled = "mfg.workorder.cancelled"

	// Planning events
	ExplosionCompleted = "mfg.planning.explosion-completed"
	CascadeCompleted   = "mfg.planning.cascade-completed"

	// Inventory events
	StockConsumed = "mfg.inventory.stock-consumed"
	LotCreated    = "mfg.inventory.lot-created"
	UnitProduced  = "mfg.inventory.unit-produced"
)

// Source constants for event sources
const (
	SourceProduction = "/mfg/production-service"
)

// CloudEvent represents a CloudEvents v1.0 compliant event
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Platform-specific extensions
	CorrelationID string `json:"mfgcorrelationid,omitempty"`
	TenantID      string `json:"mfgtenantid,omitempty"`
}
