package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemCategory classifies an item by its role in production
type ItemCategory string

const (
	CategoryRawMaterial  ItemCategory = "RAW_MATERIAL"
	CategoryComponent    ItemCategory = "COMPONENT"
	CategorySubAssembly  ItemCategory = "SUB_ASSEMBLY"
	CategoryFinishedGood ItemCategory = "FINISHED_GOOD"
)

// IsValid checks if the item category is valid
func (c ItemCategory) IsValid() bool {
	switch c {
	case CategoryRawMaterial, CategoryComponent, CategorySubAssembly, CategoryFinishedGood:
		return true
	default:
		return false
	}
}

// IsManufactured returns true for categories that are produced rather than purchased
func (c ItemCategory) IsManufactured() bool {
	return c == CategorySubAssembly || c == CategoryFinishedGood
}

// Item is master data for a material, component, or product.
// The planning and fulfillment engines only ever read items.
type Item struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID   string             `bson:"itemId" json:"itemId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`
	Code     string             `bson:"code" json:"code"`
	Name     string             `bson:"name" json:"name"`
	Category ItemCategory       `bson:"category" json:"category"`
	UOM      string             `bson:"uom" json:"uom"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsSubAssembly returns true if the item is manufactured from its own BOM
func (i *Item) IsSubAssembly() bool {
	return i.Category == CategorySubAssembly
}
