package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BillOfMaterials defines how one unit of an item is built.
// Multiple versions may exist per item; at most one is active at a time.
// When no version is active the highest version is used as fallback.
type BillOfMaterials struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BOMID    string             `bson:"bomId" json:"bomId"`
	TenantID string             `bson:"tenantId" json:"tenantId"`
	ItemID   string             `bson:"itemId" json:"itemId"`
	Version  int                `bson:"version" json:"version"`
	Active   bool               `bson:"active" json:"active"`

	Lines   []BOMLine      `bson:"lines" json:"lines"`
	Routing []RoutingStep  `bson:"routing,omitempty" json:"routing,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// BOMLine is one component requirement of a BOM. A line either references
// a plain component item (leaf) or names a child BOM, meaning the line is
// itself an assembly built from that BOM. A line may also point at an item
// of sub-assembly category without an explicit child BOM reference; the
// engine then resolves that item's active BOM dynamically.
type BOMLine struct {
	LineID          string  `bson:"lineId" json:"lineId"`
	ItemID          string  `bson:"itemId" json:"itemId"`
	ChildBOMID      string  `bson:"childBomId,omitempty" json:"childBomId,omitempty"`
	QuantityPerUnit float64 `bson:"quantityPerUnit" json:"quantityPerUnit"`
	Sequence        int     `bson:"sequence" json:"sequence"`
	UOM             string  `bson:"uom,omitempty" json:"uom,omitempty"`
}

// HasChildBOM returns true if the line explicitly names a child BOM
func (l *BOMLine) HasChildBOM() bool {
	return l.ChildBOMID != ""
}

// RoutingStep is a production operation copied onto work orders at creation.
// Scheduling of these steps is outside the engine.
type RoutingStep struct {
	Sequence    int     `bson:"sequence" json:"sequence"`
	Name        string  `bson:"name" json:"name"`
	WorkCenter  string  `bson:"workCenter,omitempty" json:"workCenter,omitempty"`
	DurationMin float64 `bson:"durationMin,omitempty" json:"durationMin,omitempty"`
}

// SortedLines returns the BOM lines ordered by sequence
func (b *BillOfMaterials) SortedLines() []BOMLine {
	lines := make([]BOMLine, len(b.Lines))
	copy(lines, b.Lines)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Sequence < lines[j].Sequence
	})
	return lines
}
