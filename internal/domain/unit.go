package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProducedUnit is the registry record for one uniquely identified unit of
// a finished item. One record is minted per unit of completed quantity.
type ProducedUnit struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UnitID   string             `bson:"unitId" json:"unitId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`
	ItemID   string             `bson:"itemId" json:"itemId"`

	WorkOrderID string `bson:"workOrderId" json:"workOrderId"`
	LocationID  string `bson:"locationId" json:"locationId"`

	Lifecycle []UnitLifecycleEvent `bson:"lifecycle" json:"lifecycle"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// UnitLifecycleEvent is one entry in a unit's history
type UnitLifecycleEvent struct {
	Event       string    `bson:"event" json:"event"`
	ReferenceID string    `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	ActorID     string    `bson:"actorId,omitempty" json:"actorId,omitempty"`
	OccurredAt  time.Time `bson:"occurredAt" json:"occurredAt"`
}

// UnitEventProduced is recorded when a unit is minted at work order completion
const UnitEventProduced = "PRODUCED"

// NewProducedUnit creates a unit record with its production lifecycle event
func NewProducedUnit(unitID, tenantID, itemID, workOrderID, locationID, actorID string) *ProducedUnit {
	now := time.Now()
	return &ProducedUnit{
		UnitID:      unitID,
		TenantID:    tenantID,
		ItemID:      itemID,
		WorkOrderID: workOrderID,
		LocationID:  locationID,
		Lifecycle: []UnitLifecycleEvent{
			{
				Event:       UnitEventProduced,
				ReferenceID: workOrderID,
				ActorID:     actorID,
				OccurredAt:  now,
			},
		},
		CreatedAt: now,
	}
}
