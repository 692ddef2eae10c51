package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// WorkOrderCreatedEvent is published when a work order is created
type WorkOrderCreatedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	TenantID    string    `json:"tenantId"`
	ItemID      string    `json:"itemId"`
	BOMID       string    `json:"bomId"`
	Quantity    float64   `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *WorkOrderCreatedEvent) EventType() string     { return "mfg.workorder.created" }
func (e *WorkOrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// WorkOrderStartedEvent is published when a work order moves to IN_PROGRESS
type WorkOrderStartedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	TenantID    string    `json:"tenantId"`
	StartedAt   time.Time `json:"startedAt"`
}

func (e *WorkOrderStartedEvent) EventType() string     { return "mfg.workorder.started" }
func (e *WorkOrderStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// WorkOrderCompletedEvent is published when a work order completes
type WorkOrderCompletedEvent struct {
	WorkOrderID       string    `json:"workOrderId"`
	TenantID          string    `json:"tenantId"`
	ItemID            string    `json:"itemId"`
	CompletedQuantity float64   `json:"completedQuantity"`
	UnitIDs           []string  `json:"unitIds,omitempty"`
	CompletedAt       time.Time `json:"completedAt"`
}

func (e *WorkOrderCompletedEvent) EventType() string     { return "mfg.workorder.completed" }
func (e *WorkOrderCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// WorkOrderCancelledEvent is published when a work order is cancelled
type WorkOrderCancelledEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	TenantID    string    `json:"tenantId"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *WorkOrderCancelledEvent) EventType() string     { return "mfg.workorder.cancelled" }
func (e *WorkOrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// StockConsumedEvent is published per material drawn during completion
type StockConsumedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	TenantID    string    `json:"tenantId"`
	ItemID      string    `json:"itemId"`
	Quantity    float64   `json:"quantity"`
	LotIDs      []string  `json:"lotIds"`
	ConsumedAt  time.Time `json:"consumedAt"`
}

func (e *StockConsumedEvent) EventType() string     { return "mfg.inventory.stock-consumed" }
func (e *StockConsumedEvent) OccurredAt() time.Time { return e.ConsumedAt }

// LotCreatedEvent is published when a finished-goods lot is created
type LotCreatedEvent struct {
	LotID       string    `json:"lotId"`
	TenantID    string    `json:"tenantId"`
	ItemID      string    `json:"itemId"`
	LocationID  string    `json:"locationId"`
	Quantity    float64   `json:"quantity"`
	WorkOrderID string    `json:"workOrderId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *LotCreatedEvent) EventType() string     { return "mfg.inventory.lot-created" }
func (e *LotCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }
