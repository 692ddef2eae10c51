package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewWorkOrder tests work order creation
func TestNewWorkOrder(t *testing.T) {
	wo, err := NewWorkOrder("tenant-1", "item-1", "bom-1", 5, "user1")

	require.NoError(t, err)
	require.NotNil(t, wo)
	assert.Equal(t, StatusPlanned, wo.Status)
	assert.Equal(t, "item-1", wo.ItemID)
	assert.Equal(t, "bom-1", wo.BOMID)
	assert.Equal(t, 5.0, wo.Quantity)
	assert.False(t, wo.SystemGenerated)
	assert.Len(t, wo.GetDomainEvents(), 1)
	assert.Equal(t, "mfg.workorder.created", wo.GetDomainEvents()[0].EventType())
}

// TestNewWorkOrderInvalidQuantity tests rejection of non-positive quantities
func TestNewWorkOrderInvalidQuantity(t *testing.T) {
	for _, qty := range []float64{0, -3} {
		wo, err := NewWorkOrder("tenant-1", "item-1", "bom-1", qty, "user1")
		assert.Nil(t, wo)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

// TestWorkOrderLifecycle tests status transitions
func TestWorkOrderLifecycle(t *testing.T) {
	tests := []struct {
		name        string
		setup       func() *WorkOrder
		action      func(*WorkOrder) error
		expectError error
		finalStatus WorkOrderStatus
	}{
		{
			name: "Start planned order",
			setup: func() *WorkOrder {
				wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 2, "user1")
				return wo
			},
			action:      func(wo *WorkOrder) error { return wo.Start() },
			finalStatus: StatusInProgress,
		},
		{
			name: "Complete in-progress order",
			setup: func() *WorkOrder {
				wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 2, "user1")
				wo.Start()
				return wo
			},
			action:      func(wo *WorkOrder) error { return wo.Complete(2, []string{"U-1", "U-2"}) },
			finalStatus: StatusCompleted,
		},
		{
			name: "Complete planned order fails",
			setup: func() *WorkOrder {
				wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 2, "user1")
				return wo
			},
			action:      func(wo *WorkOrder) error { return wo.Complete(2, nil) },
			expectError: ErrInvalidTransition,
			finalStatus: StatusPlanned,
		},
		{
			name: "Start completed order fails",
			setup: func() *WorkOrder {
				wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 2, "user1")
				wo.Start()
				wo.Complete(2, nil)
				return wo
			},
			action:      func(wo *WorkOrder) error { return wo.Start() },
			expectError: ErrInvalidTransition,
			finalStatus: StatusCompleted,
		},
		{
			name: "Cancel planned order",
			setup: func() *WorkOrder {
				wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 2, "user1")
				return wo
			},
			action:      func(wo *WorkOrder) error { return wo.Cancel("demand dropped") },
			finalStatus: StatusCancelled,
		},
		{
			name: "Cancel completed order fails",
			setup: func() *WorkOrder {
				wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 2, "user1")
				wo.Start()
				wo.Complete(2, nil)
				return wo
			},
			action:      func(wo *WorkOrder) error { return wo.Cancel("too late") },
			expectError: ErrInvalidTransition,
			finalStatus: StatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wo := tt.setup()
			err := tt.action(wo)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.finalStatus, wo.Status)
		})
	}
}

// TestWorkOrderComplete records quantity, timestamp and unit identifiers
func TestWorkOrderComplete(t *testing.T) {
	wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 3, "user1")
	require.NoError(t, wo.Start())
	wo.ClearDomainEvents()

	require.NoError(t, wo.Complete(3, []string{"U-1", "U-2", "U-3"}))

	assert.Equal(t, 3.0, wo.CompletedQuantity)
	require.NotNil(t, wo.ActualEndDate)

	events := wo.GetDomainEvents()
	require.Len(t, events, 1)
	completed, ok := events[0].(*WorkOrderCompletedEvent)
	require.True(t, ok)
	assert.Len(t, completed.UnitIDs, 3)
}

// TestPopulateFromBOM scales lines by order quantity and copies routing
func TestPopulateFromBOM(t *testing.T) {
	bom := &BillOfMaterials{
		BOMID:  "bom-1",
		ItemID: "item-1",
		Lines: []BOMLine{
			{LineID: "l2", ItemID: "comp-b", QuantityPerUnit: 1.5, Sequence: 2},
			{LineID: "l1", ItemID: "comp-a", QuantityPerUnit: 2, Sequence: 1},
		},
		Routing: []RoutingStep{
			{Sequence: 1, Name: "Assemble", WorkCenter: "WC-1", DurationMin: 30},
		},
	}

	wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 4, "user1")
	wo.PopulateFromBOM(bom, map[string]string{"comp-a": "comp-a-alt"})

	require.Len(t, wo.Materials, 2)
	// Lines come back in sequence order
	assert.Equal(t, "comp-a", wo.Materials[0].ItemID)
	assert.Equal(t, "comp-a-alt", wo.Materials[0].SubstituteItemID)
	assert.Equal(t, 8.0, wo.Materials[0].RequiredQuantity)
	assert.Equal(t, MaterialPending, wo.Materials[0].Status)

	assert.Equal(t, "comp-b", wo.Materials[1].ItemID)
	assert.Empty(t, wo.Materials[1].SubstituteItemID)
	assert.Equal(t, 6.0, wo.Materials[1].RequiredQuantity)

	require.Len(t, wo.Ops, 1)
	assert.Equal(t, "Assemble", wo.Ops[0].Name)
}

// TestIssueMaterial records issued quantity and status
func TestIssueMaterial(t *testing.T) {
	wo, _ := NewWorkOrder("t1", "item-1", "bom-1", 1, "user1")
	wo.Materials = []MaterialRequirement{
		{RequirementID: "req-1", ItemID: "comp-a", RequiredQuantity: 5, Status: MaterialPending},
	}

	require.NoError(t, wo.IssueMaterial("req-1", 5))
	assert.Equal(t, 5.0, wo.Materials[0].IssuedQuantity)
	assert.Equal(t, MaterialIssued, wo.Materials[0].Status)

	assert.ErrorIs(t, wo.IssueMaterial("req-missing", 1), ErrRequirementNotFound)
}

// TestConsumableItemID resolves the substitute when one is selected
func TestConsumableItemID(t *testing.T) {
	nominal := MaterialRequirement{ItemID: "comp-a"}
	assert.Equal(t, "comp-a", nominal.ConsumableItemID())

	substituted := MaterialRequirement{ItemID: "comp-a", SubstituteItemID: "comp-a-alt"}
	assert.Equal(t, "comp-a-alt", substituted.ConsumableItemID())
}

// TestStockLotDraw tests deducting availability from a lot
func TestStockLotDraw(t *testing.T) {
	tests := []struct {
		name          string
		available     float64
		need          float64
		expectDrawn   float64
		expectRemains float64
	}{
		{"Full draw", 10, 4, 4, 6},
		{"Drain to zero", 3, 5, 3, 0},
		{"Empty lot", 0, 5, 0, 0},
		{"Non-positive need", 10, 0, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := &StockLot{Available: tt.available}
			drawn := lot.Draw(tt.need)
			assert.Equal(t, tt.expectDrawn, drawn)
			assert.Equal(t, tt.expectRemains, lot.Available)
		})
	}
}
