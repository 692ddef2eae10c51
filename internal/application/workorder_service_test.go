package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfg-platform/production-service/internal/domain"
	"github.com/mfg-platform/production-service/internal/planning"
	apperrors "github.com/mfg-platform/production-service/pkg/errors"
)

func bikeItems() *fakeItems {
	return &fakeItems{byID: map[string]*domain.Item{
		"bike":  {ItemID: "bike", Code: "FG-BIKE", Name: "Bike", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"frame": {ItemID: "frame", Code: "SA-FRAME", Name: "Frame", Category: domain.CategorySubAssembly, UOM: "EA"},
		"axle":  {ItemID: "axle", Code: "SA-AXLE", Name: "Axle", Category: domain.CategorySubAssembly, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
	}}
}

// bom-bike needs one frame, bom-frame needs one axle plus steel, and
// bom-axle needs steel only.
func bikeBOMs() *fakeBOMs {
	bike := &domain.BillOfMaterials{
		BOMID: "bom-bike", TenantID: "t1", ItemID: "bike", Version: 1, Active: true,
		Lines: []domain.BOMLine{
			{LineID: "l1", ItemID: "frame", ChildBOMID: "bom-frame", QuantityPerUnit: 1, Sequence: 1},
		},
	}
	frame := &domain.BillOfMaterials{
		BOMID: "bom-frame", TenantID: "t1", ItemID: "frame", Version: 1, Active: true,
		Lines: []domain.BOMLine{
			{LineID: "l1", ItemID: "axle", ChildBOMID: "bom-axle", QuantityPerUnit: 1, Sequence: 1},
			{LineID: "l2", ItemID: "steel", QuantityPerUnit: 2, Sequence: 2},
		},
	}
	axle := &domain.BillOfMaterials{
		BOMID: "bom-axle", TenantID: "t1", ItemID: "axle", Version: 1, Active: true,
		Lines: []domain.BOMLine{
			{LineID: "l1", ItemID: "steel", QuantityPerUnit: 1, Sequence: 1},
		},
	}
	return &fakeBOMs{
		byID:     map[string]*domain.BillOfMaterials{"bom-bike": bike, "bom-frame": frame, "bom-axle": axle},
		activeBy: map[string]*domain.BillOfMaterials{"bike": bike, "frame": frame, "axle": axle},
	}
}

func newWorkOrderFixture(items *fakeItems, boms *fakeBOMs, stock *fakeStock) (*WorkOrderService, *fakeWorkOrders, *fakeStock, *capturingPublisher) {
	workOrders := newFakeWorkOrders()
	publisher := &capturingPublisher{}
	locations := &fakeLocations{def: &domain.Location{LocationID: "loc-1", Code: "WH-A", IsDefault: true}}
	logger := testAppLogger()

	fulfillment := NewFulfillmentService(workOrders, items, stock, locations, &fakeUnits{}, publisher, nil, logger)
	engine := planning.NewEngine(items, boms, stock, logger)
	svc := NewWorkOrderService(engine, workOrders, items, boms, fulfillment, publisher, nil, logger)
	return svc, workOrders, stock, publisher
}

func TestCreateSmartWorkOrderCompletesDependenciesFirst(t *testing.T) {
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-steel", "steel", 10, time.Hour)}}
	svc, workOrders, stock, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	result, err := svc.CreateSmartWorkOrder(context.Background(), CreateSmartWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", ActorID: "planner",
		ItemID: "bike", Quantity: 1,
	})
	require.NoError(t, err)

	// The frame order consumes the axle order's output, so the axle order
	// must have been built and completed first.
	require.Len(t, result.SubWorkOrders, 2)
	assert.Equal(t, "axle", result.SubWorkOrders[0].ItemID)
	assert.Equal(t, "frame", result.SubWorkOrders[1].ItemID)
	assert.Equal(t, "PO-0001", result.SubWorkOrders[0].OrderNumber)
	assert.Equal(t, "PO-0002", result.SubWorkOrders[1].OrderNumber)

	for _, sub := range result.SubWorkOrders {
		assert.Equal(t, string(domain.StatusCompleted), sub.Status)
		assert.True(t, sub.SystemGenerated)
		assert.Equal(t, result.WorkOrder.WorkOrderID, sub.ParentOrderID)
	}

	root := result.WorkOrder
	assert.Equal(t, string(domain.StatusPlanned), root.Status)
	assert.Equal(t, "PO-0003", root.OrderNumber)
	assert.False(t, root.SystemGenerated)
	require.Len(t, root.Materials, 1)
	assert.Equal(t, "frame", root.Materials[0].ItemID)

	// Frame completion drained the axle lot; the frame lot waits for the
	// root order, which is not auto-completed.
	axleStock, _ := stock.AvailableQuantity(context.Background(), "t1", "axle")
	frameStock, _ := stock.AvailableQuantity(context.Background(), "t1", "frame")
	assert.Equal(t, float64(0), axleStock)
	assert.Equal(t, float64(1), frameStock)

	// Steel: 1 for the axle order plus 2 for the frame order.
	steelStock, _ := stock.AvailableQuantity(context.Background(), "t1", "steel")
	assert.Equal(t, float64(7), steelStock)

	children, _ := workOrders.FindByParent(context.Background(), "t1", root.WorkOrderID)
	assert.Len(t, children, 2)
}

// A sub-assembly required on two branches can end up ranked deeper than its
// own child once plans are deduplicated. The cascade must still build the
// child first or the shared sub-assembly's completion runs out of parts.
func TestCreateSmartWorkOrderBuildsSharedSubAssemblyAfterItsChild(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"press":  {ItemID: "press", Code: "FG-PRESS", Name: "Press", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"gear":   {ItemID: "gear", Code: "SA-GEAR", Name: "Gear", Category: domain.CategorySubAssembly, UOM: "EA"},
		"hub":    {ItemID: "hub", Code: "SA-HUB", Name: "Hub", Category: domain.CategorySubAssembly, UOM: "EA"},
		"feeder": {ItemID: "feeder", Code: "SA-FEEDER", Name: "Feeder", Category: domain.CategorySubAssembly, UOM: "EA"},
		"mount":  {ItemID: "mount", Code: "SA-MOUNT", Name: "Mount", Category: domain.CategorySubAssembly, UOM: "EA"},
		"steel":  rawItem("steel", "RM-STEEL"),
	}}
	hub := &domain.BillOfMaterials{
		BOMID: "bom-hub", TenantID: "t1", ItemID: "hub", Version: 1, Active: true,
		Lines: []domain.BOMLine{{LineID: "l1", ItemID: "steel", QuantityPerUnit: 1, Sequence: 1}},
	}
	gear := &domain.BillOfMaterials{
		BOMID: "bom-gear", TenantID: "t1", ItemID: "gear", Version: 1, Active: true,
		Lines: []domain.BOMLine{{LineID: "l1", ItemID: "hub", ChildBOMID: "bom-hub", QuantityPerUnit: 1, Sequence: 1}},
	}
	mount := &domain.BillOfMaterials{
		BOMID: "bom-mount", TenantID: "t1", ItemID: "mount", Version: 1, Active: true,
		Lines: []domain.BOMLine{{LineID: "l1", ItemID: "gear", ChildBOMID: "bom-gear", QuantityPerUnit: 1, Sequence: 1}},
	}
	feeder := &domain.BillOfMaterials{
		BOMID: "bom-feeder", TenantID: "t1", ItemID: "feeder", Version: 1, Active: true,
		Lines: []domain.BOMLine{{LineID: "l1", ItemID: "mount", ChildBOMID: "bom-mount", QuantityPerUnit: 1, Sequence: 1}},
	}
	press := &domain.BillOfMaterials{
		BOMID: "bom-press", TenantID: "t1", ItemID: "press", Version: 1, Active: true,
		Lines: []domain.BOMLine{
			{LineID: "l1", ItemID: "gear", ChildBOMID: "bom-gear", QuantityPerUnit: 10, Sequence: 1},
			{LineID: "l2", ItemID: "feeder", ChildBOMID: "bom-feeder", QuantityPerUnit: 1, Sequence: 2},
		},
	}
	boms := &fakeBOMs{
		byID: map[string]*domain.BillOfMaterials{
			"bom-press": press, "bom-gear": gear, "bom-hub": hub,
			"bom-feeder": feeder, "bom-mount": mount,
		},
		activeBy: map[string]*domain.BillOfMaterials{
			"press": press, "gear": gear, "hub": hub, "feeder": feeder, "mount": mount,
		},
	}
	// 5 hubs cover the feeder branch's single gear, so the hub plan stays
	// shallower than the deduplicated gear plan.
	stock := &fakeStock{lots: []*domain.StockLot{
		lotFor("lot-hub", "hub", 5, 2*time.Hour),
		lotFor("lot-steel", "steel", 1000, time.Hour),
	}}
	svc, _, stock, _ := newWorkOrderFixture(items, boms, stock)

	result, err := svc.CreateSmartWorkOrder(context.Background(), CreateSmartWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", ActorID: "planner",
		ItemID: "press", Quantity: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.SubWorkOrders, 4)
	order := make([]string, 0, 4)
	for _, sub := range result.SubWorkOrders {
		order = append(order, sub.ItemID)
		assert.Equal(t, string(domain.StatusCompleted), sub.Status)
	}
	assert.Equal(t, []string{"hub", "gear", "mount", "feeder"}, order)

	// The gear order consumed the stocked hubs plus the five the hub order
	// produced; the mount order then drew one gear from the ten built.
	hubStock, _ := stock.AvailableQuantity(context.Background(), "t1", "hub")
	gearStock, _ := stock.AvailableQuantity(context.Background(), "t1", "gear")
	steelStock, _ := stock.AvailableQuantity(context.Background(), "t1", "steel")
	assert.Equal(t, float64(0), hubStock)
	assert.Equal(t, float64(9), gearStock)
	assert.Equal(t, float64(995), steelStock)

	assert.Equal(t, string(domain.StatusPlanned), result.WorkOrder.Status)
}

func TestCreateSmartWorkOrderSkipsCascadeWhenStockCovers(t *testing.T) {
	stock := &fakeStock{lots: []*domain.StockLot{
		lotFor("lot-frame", "frame", 5, time.Hour),
	}}
	svc, workOrders, _, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	result, err := svc.CreateSmartWorkOrder(context.Background(), CreateSmartWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", ActorID: "planner",
		ItemID: "bike", Quantity: 2,
	})
	require.NoError(t, err)

	assert.Empty(t, result.SubWorkOrders)
	assert.Equal(t, string(domain.StatusPlanned), result.WorkOrder.Status)
	assert.Len(t, workOrders.saved, 1)
}

func TestCreateSmartWorkOrderAbortsWithoutRoot(t *testing.T) {
	// No steel at all: the axle order cannot be completed.
	stock := &fakeStock{}
	svc, workOrders, _, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	_, err := svc.CreateSmartWorkOrder(context.Background(), CreateSmartWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", ActorID: "planner",
		ItemID: "bike", Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))

	// The failed axle order was persisted and stays open, but no frame
	// order and no root order were ever created.
	require.Len(t, workOrders.saved, 1)
	assert.Equal(t, "axle", workOrders.saved[0].ItemID)
	assert.Equal(t, domain.StatusInProgress, workOrders.saved[0].Status)
}

func TestCreateSmartWorkOrderRejectsCycles(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"a": {ItemID: "a", Code: "SA-A", Name: "A", Category: domain.CategorySubAssembly, UOM: "EA"},
		"b": {ItemID: "b", Code: "SA-B", Name: "B", Category: domain.CategorySubAssembly, UOM: "EA"},
	}}
	bomA := &domain.BillOfMaterials{
		BOMID: "bom-a", TenantID: "t1", ItemID: "a", Version: 1, Active: true,
		Lines: []domain.BOMLine{{LineID: "l1", ItemID: "b", ChildBOMID: "bom-b", QuantityPerUnit: 1, Sequence: 1}},
	}
	bomB := &domain.BillOfMaterials{
		BOMID: "bom-b", TenantID: "t1", ItemID: "b", Version: 1, Active: true,
		Lines: []domain.BOMLine{{LineID: "l1", ItemID: "a", ChildBOMID: "bom-a", QuantityPerUnit: 1, Sequence: 1}},
	}
	boms := &fakeBOMs{
		byID:     map[string]*domain.BillOfMaterials{"bom-a": bomA, "bom-b": bomB},
		activeBy: map[string]*domain.BillOfMaterials{"a": bomA, "b": bomB},
	}

	svc, workOrders, _, _ := newWorkOrderFixture(items, boms, &fakeStock{})

	_, err := svc.CreateSmartWorkOrder(context.Background(), CreateSmartWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", ActorID: "planner",
		ItemID: "a", Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCycleDetected))
	assert.Empty(t, workOrders.saved)
}

func TestCreateFromBOMChecksAvailabilityUpfront(t *testing.T) {
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-steel", "steel", 1, time.Hour)}}
	svc, workOrders, stock, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	_, err := svc.CreateFromBOM(context.Background(), CreateFromBOMCommand{
		TenantID: "t1", ActorID: "planner", ItemID: "axle", BOMID: "bom-axle", Quantity: 5,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientMaterial))

	appErr := apperrors.FromError(err)
	assert.Contains(t, appErr.Message, "RM-STEEL")
	assert.Contains(t, appErr.Message, "Need 5, Available 1, Short 4")

	// Nothing persisted, nothing consumed.
	assert.Empty(t, workOrders.saved)
	steelStock, _ := stock.AvailableQuantity(context.Background(), "t1", "steel")
	assert.Equal(t, float64(1), steelStock)
}

func TestCreateFromBOMCreatesPlannedOrder(t *testing.T) {
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-steel", "steel", 20, time.Hour)}}
	svc, workOrders, _, publisher := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	start := time.Now().Add(24 * time.Hour)
	dto, err := svc.CreateFromBOM(context.Background(), CreateFromBOMCommand{
		TenantID: "t1", ActorID: "planner", ItemID: "axle", BOMID: "bom-axle", Quantity: 5,
		StartDate: &start,
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusPlanned), dto.Status)
	assert.Equal(t, "PO-0001", dto.OrderNumber)
	require.Len(t, dto.Materials, 1)
	assert.Equal(t, "steel", dto.Materials[0].ItemID)
	assert.Equal(t, float64(5), dto.Materials[0].RequiredQuantity)
	require.NotNil(t, dto.StartDate)

	assert.Len(t, workOrders.saved, 1)
	assert.Len(t, publisher.ofType("mfg.workorder.created"), 1)
}

func TestCreateFromBOMRejectsMismatchedItem(t *testing.T) {
	svc, _, _, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), &fakeStock{})

	_, err := svc.CreateFromBOM(context.Background(), CreateFromBOMCommand{
		TenantID: "t1", ActorID: "planner", ItemID: "bike", BOMID: "bom-axle", Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationError))
}

func TestStartAndCancelWorkOrder(t *testing.T) {
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-steel", "steel", 20, time.Hour)}}
	svc, _, _, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	created, err := svc.CreateFromBOM(context.Background(), CreateFromBOMCommand{
		TenantID: "t1", ActorID: "planner", ItemID: "axle", BOMID: "bom-axle", Quantity: 2,
	})
	require.NoError(t, err)

	started, err := svc.StartWorkOrder(context.Background(), StartWorkOrderCommand{TenantID: "t1", WorkOrderID: created.WorkOrderID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusInProgress), started.Status)

	// Starting twice is invalid.
	_, err = svc.StartWorkOrder(context.Background(), StartWorkOrderCommand{TenantID: "t1", WorkOrderID: created.WorkOrderID})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	cancelled, err := svc.CancelWorkOrder(context.Background(), CancelWorkOrderCommand{
		TenantID: "t1", WorkOrderID: created.WorkOrderID, Reason: "demand dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), cancelled.Status)
}

func TestGetAndListWorkOrders(t *testing.T) {
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-steel", "steel", 50, time.Hour)}}
	svc, _, _, _ := newWorkOrderFixture(bikeItems(), bikeBOMs(), stock)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateFromBOM(context.Background(), CreateFromBOMCommand{
			TenantID: "t1", ActorID: "planner", ItemID: "axle", BOMID: "bom-axle", Quantity: 1,
		})
		require.NoError(t, err)
	}

	list, err := svc.ListWorkOrders(context.Background(), ListWorkOrdersQuery{TenantID: "t1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := svc.GetWorkOrder(context.Background(), GetWorkOrderQuery{TenantID: "t1", WorkOrderID: list[0].WorkOrderID})
	require.NoError(t, err)
	assert.Equal(t, list[0].WorkOrderID, got.WorkOrderID)

	_, err = svc.GetWorkOrder(context.Background(), GetWorkOrderQuery{TenantID: "t1", WorkOrderID: "missing"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
