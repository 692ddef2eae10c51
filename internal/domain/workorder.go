package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkOrderStatus represents the lifecycle state of a work order
type WorkOrderStatus string

const (
	StatusPlanned    WorkOrderStatus = "PLANNED"
	StatusInProgress WorkOrderStatus = "IN_PROGRESS"
	StatusCompleted  WorkOrderStatus = "COMPLETED"
	StatusCancelled  WorkOrderStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for states no transition leaves
func (s WorkOrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// MaterialStatus represents the issue state of a material requirement
type MaterialStatus string

const (
	MaterialPending MaterialStatus = "PENDING"
	MaterialIssued  MaterialStatus = "ISSUED"
)

// MaterialRequirement is one material line of a work order. RequiredQuantity
// is already scaled by the order quantity at creation time. A substitute
// item may be selected in place of the nominal one; stock checks and
// consumption then resolve against the substitute.
type MaterialRequirement struct {
	RequirementID    string         `bson:"requirementId" json:"requirementId"`
	ItemID           string         `bson:"itemId" json:"itemId"`
	SubstituteItemID string         `bson:"substituteItemId,omitempty" json:"substituteItemId,omitempty"`
	RequiredQuantity float64        `bson:"requiredQuantity" json:"requiredQuantity"`
	IssuedQuantity   float64        `bson:"issuedQuantity" json:"issuedQuantity"`
	Status           MaterialStatus `bson:"status" json:"status"`
}

// ConsumableItemID returns the item whose stock the requirement draws from
func (m *MaterialRequirement) ConsumableItemID() string {
	if m.SubstituteItemID != "" {
		return m.SubstituteItemID
	}
	return m.ItemID
}

// Operation is a routing step copied onto the work order at creation.
// The engine records them; it does not schedule them.
type Operation struct {
	Sequence    int     `bson:"sequence" json:"sequence"`
	Name        string  `bson:"name" json:"name"`
	WorkCenter  string  `bson:"workCenter,omitempty" json:"workCenter,omitempty"`
	DurationMin float64 `bson:"durationMin,omitempty" json:"durationMin,omitempty"`
}

// WorkOrder is the aggregate root authorizing production of a quantity of
// an item from a specific BOM.
type WorkOrder struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkOrderID string             `bson:"workOrderId" json:"workOrderId"`
	OrderNumber string             `bson:"orderNumber" json:"orderNumber"`
	TenantID    string             `bson:"tenantId" json:"tenantId"`

	ItemID   string  `bson:"itemId" json:"itemId"`
	BOMID    string  `bson:"bomId" json:"bomId"`
	Quantity float64 `bson:"quantity" json:"quantity"`

	Status    WorkOrderStatus       `bson:"status" json:"status"`
	Materials []MaterialRequirement `bson:"materials" json:"materials"`
	Ops       []Operation           `bson:"operations" json:"operations"`

	// SystemGenerated marks orders minted by the cascade rather than a
	// planner; ParentOrderID points back at the root request.
	SystemGenerated bool   `bson:"systemGenerated" json:"systemGenerated"`
	ParentOrderID   string `bson:"parentOrderId,omitempty" json:"parentOrderId,omitempty"`

	StartDate         *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	CompletedQuantity float64    `bson:"completedQuantity" json:"completedQuantity"`
	ActualEndDate     *time.Time `bson:"actualEndDate,omitempty" json:"actualEndDate,omitempty"`

	CreatedBy string    `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewWorkOrder creates a PLANNED work order for an item/BOM/quantity
func NewWorkOrder(tenantID, itemID, bomID string, quantity float64, createdBy string) (*WorkOrder, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now()
	wo := &WorkOrder{
		WorkOrderID:  primitive.NewObjectID().Hex(),
		TenantID:     tenantID,
		ItemID:       itemID,
		BOMID:        bomID,
		Quantity:     quantity,
		Status:       StatusPlanned,
		Materials:    make([]MaterialRequirement, 0),
		Ops:          make([]Operation, 0),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	wo.AddDomainEvent(&WorkOrderCreatedEvent{
		WorkOrderID: wo.WorkOrderID,
		TenantID:    tenantID,
		ItemID:      itemID,
		BOMID:       bomID,
		Quantity:    quantity,
		CreatedAt:   now,
	})

	return wo, nil
}

// AssignWorkOrderID replaces the generated identifier, keeping any pending
// creation event consistent. Used when the identifier was minted before the
// order object existed.
func (w *WorkOrder) AssignWorkOrderID(id string) {
	w.WorkOrderID = id
	for _, event := range w.DomainEvents {
		if created, ok := event.(*WorkOrderCreatedEvent); ok {
			created.WorkOrderID = id
		}
	}
}

// TagSystemGenerated marks the order as cascade-created with a back-reference
// to the root request's work order.
func (w *WorkOrder) TagSystemGenerated(parentOrderID string) {
	w.SystemGenerated = true
	w.ParentOrderID = parentOrderID
	w.UpdatedAt = time.Now()
}

// PopulateFromBOM scales the BOM's lines into material requirements and
// copies its routing onto the order. variantSelections maps a nominal item
// to the substitute actually chosen for it.
func (w *WorkOrder) PopulateFromBOM(bom *BillOfMaterials, variantSelections map[string]string) {
	w.Materials = make([]MaterialRequirement, 0, len(bom.Lines))
	for _, line := range bom.SortedLines() {
		req := MaterialRequirement{
			RequirementID:    primitive.NewObjectID().Hex(),
			ItemID:           line.ItemID,
			RequiredQuantity: line.QuantityPerUnit * w.Quantity,
			Status:           MaterialPending,
		}
		if sub, ok := variantSelections[line.ItemID]; ok && sub != "" {
			req.SubstituteItemID = sub
		}
		w.Materials = append(w.Materials, req)
	}

	w.Ops = make([]Operation, 0, len(bom.Routing))
	for _, step := range bom.Routing {
		w.Ops = append(w.Ops, Operation{
			Sequence:    step.Sequence,
			Name:        step.Name,
			WorkCenter:  step.WorkCenter,
			DurationMin: step.DurationMin,
		})
	}

	w.UpdatedAt = time.Now()
}

// Start transitions the order from PLANNED to IN_PROGRESS
func (w *WorkOrder) Start() error {
	if w.Status != StatusPlanned {
		return fmt.Errorf("%w: cannot start work order in status %s", ErrInvalidTransition, w.Status)
	}
	w.Status = StatusInProgress
	w.UpdatedAt = time.Now()

	w.AddDomainEvent(&WorkOrderStartedEvent{
		WorkOrderID: w.WorkOrderID,
		TenantID:    w.TenantID,
		StartedAt:   w.UpdatedAt,
	})

	return nil
}

// IssueMaterial records the quantity drawn for one requirement
func (w *WorkOrder) IssueMaterial(requirementID string, quantity float64) error {
	for idx := range w.Materials {
		if w.Materials[idx].RequirementID == requirementID {
			w.Materials[idx].IssuedQuantity = quantity
			w.Materials[idx].Status = MaterialIssued
			w.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrRequirementNotFound
}

// Complete transitions the order from IN_PROGRESS to COMPLETED, recording
// the actual quantity produced and the completion timestamp.
func (w *WorkOrder) Complete(completedQuantity float64, unitIDs []string) error {
	if w.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot complete work order in status %s", ErrInvalidTransition, w.Status)
	}

	now := time.Now()
	w.Status = StatusCompleted
	w.CompletedQuantity = completedQuantity
	w.ActualEndDate = &now
	w.UpdatedAt = now

	w.AddDomainEvent(&WorkOrderCompletedEvent{
		WorkOrderID:       w.WorkOrderID,
		TenantID:          w.TenantID,
		ItemID:            w.ItemID,
		CompletedQuantity: completedQuantity,
		UnitIDs:           unitIDs,
		CompletedAt:       now,
	})

	return nil
}

// Cancel transitions the order to CANCELLED from any non-terminal state
func (w *WorkOrder) Cancel(reason string) error {
	if w.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel work order in status %s", ErrInvalidTransition, w.Status)
	}

	now := time.Now()
	w.Status = StatusCancelled
	w.UpdatedAt = now

	w.AddDomainEvent(&WorkOrderCancelledEvent{
		WorkOrderID: w.WorkOrderID,
		TenantID:    w.TenantID,
		Reason:      reason,
		CancelledAt: now,
	})

	return nil
}

// AddDomainEvent adds a domain event
func (w *WorkOrder) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (w *WorkOrder) ClearDomainEvents() {
	w.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (w *WorkOrder) GetDomainEvents() []DomainEvent {
	return w.DomainEvents
}
