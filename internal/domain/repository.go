package domain

import "context"

// ItemRepository defines read access to item master data
type ItemRepository interface {
	FindByID(ctx context.Context, tenantID, itemID string) (*Item, error)
	FindByCode(ctx context.Context, tenantID, code string) (*Item, error)
}

// BOMRepository defines read access to bills of materials
type BOMRepository interface {
	// FindActiveForItem prefers the active BOM and falls back to the
	// highest version. Returns nil when the item has no BOM at all.
	FindActiveForItem(ctx context.Context, tenantID, itemID string) (*BillOfMaterials, error)
	FindByID(ctx context.Context, tenantID, bomID string) (*BillOfMaterials, error)
}

// StockRepository defines lot-level stock access
type StockRepository interface {
	// AvailableQuantity aggregates availability across all lots and
	// locations for the item.
	AvailableQuantity(ctx context.Context, tenantID, itemID string) (float64, error)

	// ListLotsWithAvailability returns lots with available > 0 ordered
	// oldest-first.
	ListLotsWithAvailability(ctx context.Context, tenantID, itemID string) ([]*StockLot, error)

	UpdateLotAvailable(ctx context.Context, tenantID, lotID string, newAvailable float64) error
	CreateLot(ctx context.Context, lot *StockLot) error
}

// LocationRepository defines storage location lookup
type LocationRepository interface {
	// FindDefault returns nil when the tenant has no location configured.
	FindDefault(ctx context.Context, tenantID string) (*Location, error)
}

// WorkOrderRepository defines work order persistence
type WorkOrderRepository interface {
	Save(ctx context.Context, wo *WorkOrder) error
	Update(ctx context.Context, wo *WorkOrder) error
	FindByID(ctx context.Context, tenantID, workOrderID string) (*WorkOrder, error)
	FindByParent(ctx context.Context, tenantID, parentOrderID string) ([]*WorkOrder, error)
	FindAll(ctx context.Context, tenantID string, limit, offset int) ([]*WorkOrder, error)

	// NextOrderNumber mints a sequential human-readable order number,
	// e.g. PO-0001.
	NextOrderNumber(ctx context.Context, tenantID string) (string, error)
}

// UnitRegistry mints and records uniquely identified produced units
type UnitRegistry interface {
	// MintUnitID returns the next identifier of the form
	// <tenantCode>-<plantCode>-<entityType>-<seq>.
	MintUnitID(ctx context.Context, tenantCode, plantCode, entityType string) (string, error)
	Save(ctx context.Context, unit *ProducedUnit) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
