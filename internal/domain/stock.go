package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockLot is one receipt of stock for an item at a storage location.
// Lots are consumed oldest-first; only the fulfillment engine decrements
// them, and new lots are created when finished goods are produced.
type StockLot struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LotID      string             `bson:"lotId" json:"lotId"`
	TenantID   string             `bson:"tenantId" json:"tenantId"`
	ItemID     string             `bson:"itemId" json:"itemId"`
	LocationID string             `bson:"locationId" json:"locationId"`

	Quantity  float64 `bson:"quantity" json:"quantity"`
	Available float64 `bson:"available" json:"available"`

	// SourceWorkOrderID links a finished-goods lot back to the work order
	// whose completion produced it.
	SourceWorkOrderID string `bson:"sourceWorkOrderId,omitempty" json:"sourceWorkOrderId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Draw deducts up to need from the lot's availability and returns the
// quantity actually drawn.
func (l *StockLot) Draw(need float64) float64 {
	if need <= 0 || l.Available <= 0 {
		return 0
	}
	drawn := need
	if drawn > l.Available {
		drawn = l.Available
	}
	l.Available -= drawn
	l.UpdatedAt = time.Now()
	return drawn
}

// Location is a storage location within a plant
type Location struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LocationID string             `bson:"locationId" json:"locationId"`
	TenantID   string             `bson:"tenantId" json:"tenantId"`
	Code       string             `bson:"code" json:"code"`
	Name       string             `bson:"name" json:"name"`
	IsDefault  bool               `bson:"isDefault" json:"isDefault"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
