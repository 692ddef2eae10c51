package application

import "time"

// ExplodeQuery requests a BOM explosion for an item and quantity
type ExplodeQuery struct {
	TenantID string
	ItemID   string
	Quantity float64
}

// CreateSmartWorkOrderCommand triggers the full cascade: explode, build
// and complete every missing sub-assembly, then create the root order.
type CreateSmartWorkOrderCommand struct {
	TenantID   string
	TenantCode string
	PlantCode  string
	ActorID    string
	ItemID     string
	Quantity   float64
	StartDate  *time.Time

	// VariantSelections maps a nominal material item to the substitute
	// chosen for it on the root work order.
	VariantSelections map[string]string
}

// CreateFromBOMCommand creates a single work order directly from one BOM
// without cascading. Availability is checked up front.
type CreateFromBOMCommand struct {
	TenantID  string
	ActorID   string
	ItemID    string
	BOMID     string
	Quantity  float64
	StartDate *time.Time

	VariantSelections map[string]string
}

// CompleteWorkOrderCommand completes an IN_PROGRESS work order
type CompleteWorkOrderCommand struct {
	TenantID    string
	TenantCode  string
	PlantCode   string
	WorkOrderID string
	ActorID     string
}

// StartWorkOrderCommand moves a PLANNED work order to IN_PROGRESS
type StartWorkOrderCommand struct {
	TenantID    string
	WorkOrderID string
	ActorID     string
}

// CancelWorkOrderCommand cancels a non-terminal work order
type CancelWorkOrderCommand struct {
	TenantID    string
	WorkOrderID string
	ActorID     string
	Reason      string
}

// GetWorkOrderQuery retrieves a single work order
type GetWorkOrderQuery struct {
	TenantID    string
	WorkOrderID string
}

// ListWorkOrdersQuery lists work orders for a tenant
type ListWorkOrdersQuery struct {
	TenantID string
	Limit    int
	Offset   int
}

// MaterialCheck is one requirement line passed to CheckAvailability.
// RequiredQuantity is already scaled by the caller.
type MaterialCheck struct {
	ItemID           string
	SubstituteItemID string
	RequiredQuantity float64
}

// CheckAvailabilityQuery asks whether a set of material requirements can
// be satisfied from current stock
type CheckAvailabilityQuery struct {
	TenantID  string
	Materials []MaterialCheck
}

// GetCompletionPreviewQuery projects the effect of completing a work order
type GetCompletionPreviewQuery struct {
	TenantID    string
	WorkOrderID string
}
