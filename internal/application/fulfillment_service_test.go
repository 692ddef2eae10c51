package application

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfg-platform/production-service/internal/domain"
	apperrors "github.com/mfg-platform/production-service/pkg/errors"
	"github.com/mfg-platform/production-service/pkg/logging"
)

// In-memory fakes shared by the application service tests.

type fakeItems struct {
	byID map[string]*domain.Item
}

func (f *fakeItems) FindByID(_ context.Context, _, itemID string) (*domain.Item, error) {
	return f.byID[itemID], nil
}

func (f *fakeItems) FindByCode(_ context.Context, _, code string) (*domain.Item, error) {
	for _, it := range f.byID {
		if it.Code == code {
			return it, nil
		}
	}
	return nil, nil
}

type fakeBOMs struct {
	byID     map[string]*domain.BillOfMaterials
	activeBy map[string]*domain.BillOfMaterials
}

func (f *fakeBOMs) FindActiveForItem(_ context.Context, _, itemID string) (*domain.BillOfMaterials, error) {
	return f.activeBy[itemID], nil
}

func (f *fakeBOMs) FindByID(_ context.Context, _, bomID string) (*domain.BillOfMaterials, error) {
	return f.byID[bomID], nil
}

type fakeStock struct {
	lots        []*domain.StockLot
	lotUpdates  int
	createdLots []*domain.StockLot
}

func (f *fakeStock) AvailableQuantity(_ context.Context, _, itemID string) (float64, error) {
	var total float64
	for _, lot := range f.lots {
		if lot.ItemID == itemID {
			total += lot.Available
		}
	}
	return total, nil
}

func (f *fakeStock) ListLotsWithAvailability(_ context.Context, _, itemID string) ([]*domain.StockLot, error) {
	out := make([]*domain.StockLot, 0)
	for _, lot := range f.lots {
		if lot.ItemID == itemID && lot.Available > 0 {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (f *fakeStock) UpdateLotAvailable(_ context.Context, _, lotID string, newAvailable float64) error {
	f.lotUpdates++
	for _, lot := range f.lots {
		if lot.LotID == lotID {
			lot.Available = newAvailable
			return nil
		}
	}
	return fmt.Errorf("lot %s not found", lotID)
}

func (f *fakeStock) CreateLot(_ context.Context, lot *domain.StockLot) error {
	f.lots = append(f.lots, lot)
	f.createdLots = append(f.createdLots, lot)
	return nil
}

func (f *fakeStock) lot(lotID string) *domain.StockLot {
	for _, lot := range f.lots {
		if lot.LotID == lotID {
			return lot
		}
	}
	return nil
}

type fakeLocations struct {
	def *domain.Location
}

func (f *fakeLocations) FindDefault(_ context.Context, _ string) (*domain.Location, error) {
	return f.def, nil
}

type fakeWorkOrders struct {
	byID    map[string]*domain.WorkOrder
	saved   []*domain.WorkOrder
	updates int
	seq     int
}

func newFakeWorkOrders() *fakeWorkOrders {
	return &fakeWorkOrders{byID: make(map[string]*domain.WorkOrder)}
}

func (f *fakeWorkOrders) Save(_ context.Context, wo *domain.WorkOrder) error {
	f.byID[wo.WorkOrderID] = wo
	f.saved = append(f.saved, wo)
	return nil
}

func (f *fakeWorkOrders) Update(_ context.Context, wo *domain.WorkOrder) error {
	f.byID[wo.WorkOrderID] = wo
	f.updates++
	return nil
}

func (f *fakeWorkOrders) FindByID(_ context.Context, _, workOrderID string) (*domain.WorkOrder, error) {
	return f.byID[workOrderID], nil
}

func (f *fakeWorkOrders) FindByParent(_ context.Context, _, parentOrderID string) ([]*domain.WorkOrder, error) {
	out := make([]*domain.WorkOrder, 0)
	for _, wo := range f.byID {
		if wo.ParentOrderID == parentOrderID {
			out = append(out, wo)
		}
	}
	return out, nil
}

func (f *fakeWorkOrders) FindAll(_ context.Context, _ string, limit, offset int) ([]*domain.WorkOrder, error) {
	out := make([]*domain.WorkOrder, 0, len(f.saved))
	for i := offset; i < len(f.saved) && len(out) < limit; i++ {
		out = append(out, f.saved[i])
	}
	return out, nil
}

func (f *fakeWorkOrders) NextOrderNumber(_ context.Context, _ string) (string, error) {
	f.seq++
	return fmt.Sprintf("PO-%04d", f.seq), nil
}

type fakeUnits struct {
	seq   int
	saved []*domain.ProducedUnit
}

func (f *fakeUnits) MintUnitID(_ context.Context, tenantCode, plantCode, entityType string) (string, error) {
	f.seq++
	return fmt.Sprintf("%s-%s-%s-%d", tenantCode, plantCode, entityType, f.seq), nil
}

func (f *fakeUnits) Save(_ context.Context, unit *domain.ProducedUnit) error {
	f.saved = append(f.saved, unit)
	return nil
}

type capturingPublisher struct {
	events []domain.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) PublishAll(_ context.Context, events []domain.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) ofType(eventType string) []domain.DomainEvent {
	out := make([]domain.DomainEvent, 0)
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testAppLogger() *logging.Logger {
	cfg := logging.DefaultConfig("application-test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

func rawItem(id, code string) *domain.Item {
	return &domain.Item{ItemID: id, Code: code, Name: code, Category: domain.CategoryRawMaterial, UOM: "EA"}
}

func lotFor(lotID, itemID string, available float64, age time.Duration) *domain.StockLot {
	now := time.Now()
	return &domain.StockLot{
		LotID:      lotID,
		TenantID:   "t1",
		ItemID:     itemID,
		LocationID: "loc-1",
		Quantity:   available,
		Available:  available,
		CreatedAt:  now.Add(-age),
		UpdatedAt:  now.Add(-age),
	}
}

func inProgressOrder(t *testing.T, workOrders *fakeWorkOrders, itemID string, quantity float64, materials []domain.MaterialRequirement) *domain.WorkOrder {
	t.Helper()
	wo, err := domain.NewWorkOrder("t1", itemID, "bom-1", quantity, "tester")
	require.NoError(t, err)
	wo.OrderNumber = "PO-0001"
	wo.Materials = materials
	require.NoError(t, wo.Start())
	wo.ClearDomainEvents()
	require.NoError(t, workOrders.Save(context.Background(), wo))
	return wo
}

func newFulfillmentFixture(items *fakeItems, stock *fakeStock, workOrders *fakeWorkOrders) (*FulfillmentService, *fakeUnits, *capturingPublisher) {
	units := &fakeUnits{}
	publisher := &capturingPublisher{}
	locations := &fakeLocations{def: &domain.Location{LocationID: "loc-1", Code: "WH-A", IsDefault: true}}
	svc := NewFulfillmentService(workOrders, items, stock, locations, units, publisher, nil, testAppLogger())
	return svc, units, publisher
}

func TestCompleteConsumesLotsOldestFirst(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"fg":    {ItemID: "fg", Code: "FG-1", Name: "Widget", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{
		lotFor("lot-1", "steel", 3, 3*time.Hour),
		lotFor("lot-2", "steel", 4, 2*time.Hour),
		lotFor("lot-3", "steel", 5, time.Hour),
	}}
	workOrders := newFakeWorkOrders()
	svc, _, _ := newFulfillmentFixture(items, stock, workOrders)

	wo := inProgressOrder(t, workOrders, "fg", 2, []domain.MaterialRequirement{
		{RequirementID: "req-1", ItemID: "steel", RequiredQuantity: 6, Status: domain.MaterialPending},
	})

	dto, err := svc.Complete(context.Background(), CompleteWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", WorkOrderID: wo.WorkOrderID, ActorID: "tester",
	})
	require.NoError(t, err)

	assert.Equal(t, float64(0), stock.lot("lot-1").Available)
	assert.Equal(t, float64(1), stock.lot("lot-2").Available)
	assert.Equal(t, float64(5), stock.lot("lot-3").Available)

	assert.Equal(t, string(domain.StatusCompleted), dto.Status)
	assert.Equal(t, domain.MaterialIssued, wo.Materials[0].Status)
	assert.Equal(t, float64(6), wo.Materials[0].IssuedQuantity)
}

func TestCompleteCreatesFinishedGoodsLotAndUnits(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"fg":    {ItemID: "fg", Code: "FG-1", Name: "Widget", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-1", "steel", 10, time.Hour)}}
	workOrders := newFakeWorkOrders()
	svc, units, publisher := newFulfillmentFixture(items, stock, workOrders)

	wo := inProgressOrder(t, workOrders, "fg", 3, []domain.MaterialRequirement{
		{RequirementID: "req-1", ItemID: "steel", RequiredQuantity: 6, Status: domain.MaterialPending},
	})

	_, err := svc.Complete(context.Background(), CompleteWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", WorkOrderID: wo.WorkOrderID, ActorID: "tester",
	})
	require.NoError(t, err)

	require.Len(t, units.saved, 3)
	assert.Equal(t, "ACME-MAIN-FG-1", units.saved[0].UnitID)
	assert.Equal(t, "loc-1", units.saved[0].LocationID)

	require.Len(t, stock.createdLots, 1)
	fgLot := stock.createdLots[0]
	assert.Equal(t, "fg", fgLot.ItemID)
	assert.Equal(t, float64(3), fgLot.Quantity)
	assert.Equal(t, float64(3), fgLot.Available)
	assert.Equal(t, wo.WorkOrderID, fgLot.SourceWorkOrderID)

	completions := publisher.ofType("mfg.workorder.completed")
	require.Len(t, completions, 1)
	completed := completions[0].(*domain.WorkOrderCompletedEvent)
	assert.Len(t, completed.UnitIDs, 3)

	created := publisher.ofType("mfg.inventory.lot-created")
	require.Len(t, created, 1)
}

func TestCompletePartialFailureKeepsEarlierConsumption(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"fg":    {ItemID: "fg", Code: "FG-1", Name: "Widget", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
		"paint": rawItem("paint", "RM-PAINT"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{
		lotFor("lot-1", "steel", 10, 2*time.Hour),
		lotFor("lot-2", "paint", 1, time.Hour),
	}}
	workOrders := newFakeWorkOrders()
	svc, _, _ := newFulfillmentFixture(items, stock, workOrders)

	wo := inProgressOrder(t, workOrders, "fg", 1, []domain.MaterialRequirement{
		{RequirementID: "req-1", ItemID: "steel", RequiredQuantity: 5, Status: domain.MaterialPending},
		{RequirementID: "req-2", ItemID: "paint", RequiredQuantity: 4, Status: domain.MaterialPending},
	})

	_, err := svc.Complete(context.Background(), CompleteWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", WorkOrderID: wo.WorkOrderID, ActorID: "tester",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))

	appErr := apperrors.FromError(err)
	assert.Equal(t, "Need 4, Available 1, Short 3", appErr.Details["message"])

	// Steel was already drawn and stays drawn; the order is left open.
	assert.Equal(t, float64(5), stock.lot("lot-1").Available)
	assert.Equal(t, float64(1), stock.lot("lot-2").Available)
	assert.Equal(t, domain.StatusInProgress, workOrders.byID[wo.WorkOrderID].Status)
	assert.Equal(t, domain.MaterialIssued, wo.Materials[0].Status)
	assert.Equal(t, domain.MaterialPending, wo.Materials[1].Status)
	assert.Empty(t, stock.createdLots)
}

func TestCompleteRejectsNonInProgressOrder(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{}}
	stock := &fakeStock{}
	workOrders := newFakeWorkOrders()
	svc, _, _ := newFulfillmentFixture(items, stock, workOrders)

	wo, err := domain.NewWorkOrder("t1", "fg", "bom-1", 1, "tester")
	require.NoError(t, err)
	require.NoError(t, workOrders.Save(context.Background(), wo))

	_, err = svc.Complete(context.Background(), CompleteWorkOrderCommand{TenantID: "t1", WorkOrderID: wo.WorkOrderID})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestCompleteRejectsFractionalQuantity(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"fg":    {ItemID: "fg", Code: "FG-1", Name: "Widget", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-1", "steel", 10, time.Hour)}}
	workOrders := newFakeWorkOrders()
	svc, units, _ := newFulfillmentFixture(items, stock, workOrders)

	wo := inProgressOrder(t, workOrders, "fg", 2.5, []domain.MaterialRequirement{
		{RequirementID: "req-1", ItemID: "steel", RequiredQuantity: 5, Status: domain.MaterialPending},
	})

	_, err := svc.Complete(context.Background(), CompleteWorkOrderCommand{
		TenantID: "t1", TenantCode: "ACME", PlantCode: "MAIN", WorkOrderID: wo.WorkOrderID, ActorID: "tester",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationError))

	// Rejected before anything happened: no lots drawn, no units minted.
	assert.Equal(t, float64(10), stock.lot("lot-1").Available)
	assert.Empty(t, units.saved)
	assert.Empty(t, stock.createdLots)
	assert.Equal(t, domain.StatusInProgress, workOrders.byID[wo.WorkOrderID].Status)
}

func TestKeyedMutexEvictsIdleKeys(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.lockAll([]string{"t1/steel", "t1/paint", "t1/steel"})
	km.mu.Lock()
	assert.Len(t, km.locks, 2)
	km.mu.Unlock()

	unlock()
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}

func TestCompleteFailsWithoutDefaultLocation(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"fg":    {ItemID: "fg", Code: "FG-1", Name: "Widget", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{lotFor("lot-1", "steel", 10, time.Hour)}}
	workOrders := newFakeWorkOrders()

	svc := NewFulfillmentService(workOrders, items, stock, &fakeLocations{}, &fakeUnits{}, nil, nil, testAppLogger())

	wo := inProgressOrder(t, workOrders, "fg", 1, []domain.MaterialRequirement{
		{RequirementID: "req-1", ItemID: "steel", RequiredQuantity: 2, Status: domain.MaterialPending},
	})

	_, err := svc.Complete(context.Background(), CompleteWorkOrderCommand{TenantID: "t1", WorkOrderID: wo.WorkOrderID})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigurationError))
}

func TestCheckAvailabilityReportsShortagesAndSubstitutes(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"steel":     rawItem("steel", "RM-STEEL"),
		"alt-steel": rawItem("alt-steel", "RM-ALT"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{
		lotFor("lot-1", "steel", 2, time.Hour),
		lotFor("lot-2", "alt-steel", 10, time.Hour),
	}}
	workOrders := newFakeWorkOrders()
	svc, _, _ := newFulfillmentFixture(items, stock, workOrders)

	result, err := svc.CheckAvailability(context.Background(), CheckAvailabilityQuery{
		TenantID: "t1",
		Materials: []MaterialCheck{
			{ItemID: "steel", RequiredQuantity: 5},
			{ItemID: "steel", SubstituteItemID: "alt-steel", RequiredQuantity: 5},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.OK)
	require.Len(t, result.Shortages, 1)
	shortage := result.Shortages[0]
	assert.Equal(t, "steel", shortage.ItemID)
	assert.Equal(t, "RM-STEEL", shortage.ItemCode)
	assert.Equal(t, float64(5), shortage.Required)
	assert.Equal(t, float64(2), shortage.Available)
	assert.Equal(t, float64(3), shortage.Shortfall)
}

func TestGetCompletionPreviewDoesNotMutate(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"fg":    {ItemID: "fg", Code: "FG-1", Name: "Widget", Category: domain.CategoryFinishedGood, UOM: "EA"},
		"steel": rawItem("steel", "RM-STEEL"),
		"paint": rawItem("paint", "RM-PAINT"),
	}}
	stock := &fakeStock{lots: []*domain.StockLot{
		lotFor("lot-1", "steel", 10, 2*time.Hour),
		lotFor("lot-2", "paint", 1, time.Hour),
	}}
	workOrders := newFakeWorkOrders()
	svc, _, _ := newFulfillmentFixture(items, stock, workOrders)

	wo := inProgressOrder(t, workOrders, "fg", 2, []domain.MaterialRequirement{
		{RequirementID: "req-1", ItemID: "steel", RequiredQuantity: 6, Status: domain.MaterialPending},
		{RequirementID: "req-2", ItemID: "paint", RequiredQuantity: 4, Status: domain.MaterialPending},
	})

	preview, err := svc.GetCompletionPreview(context.Background(), GetCompletionPreviewQuery{TenantID: "t1", WorkOrderID: wo.WorkOrderID})
	require.NoError(t, err)

	assert.Equal(t, "fg", preview.FinishedGood.ItemID)
	assert.Equal(t, float64(2), preview.FinishedGood.Quantity)
	assert.False(t, preview.CanComplete)

	require.Len(t, preview.Materials, 2)
	steel := preview.Materials[0]
	assert.Equal(t, float64(6), steel.ToConsume)
	assert.Equal(t, float64(10), steel.CurrentStock)
	assert.Equal(t, float64(4), steel.NewStock)
	assert.True(t, steel.Sufficient)

	paint := preview.Materials[1]
	assert.Equal(t, float64(1), paint.CurrentStock)
	assert.False(t, paint.Sufficient)

	// Preview is read-only.
	assert.Equal(t, float64(10), stock.lot("lot-1").Available)
	assert.Equal(t, float64(1), stock.lot("lot-2").Available)
	assert.Equal(t, 0, stock.lotUpdates)
	assert.Equal(t, domain.StatusInProgress, workOrders.byID[wo.WorkOrderID].Status)
}
