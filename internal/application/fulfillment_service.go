package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mfg-platform/production-service/internal/domain"
	apperrors "github.com/mfg-platform/production-service/pkg/errors"
	"github.com/mfg-platform/production-service/pkg/logging"
	"github.com/mfg-platform/production-service/pkg/metrics"
)

// unitEntityType is the entity tag minted into produced unit identifiers
const unitEntityType = "FG"

// keyedMutex serializes work against a string key. Completions lock every
// (tenant, item) pair they will consume, in sorted order, so two orders
// racing for the same lots cannot both pass the sufficiency check. Keys are
// reference-counted and evicted once the last holder releases, keeping the
// map proportional to in-flight completions rather than the item catalog.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu      sync.Mutex
	holders int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) acquire(key string) *keyedLock {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.holders++
	k.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (k *keyedMutex) release(key string, lock *keyedLock) {
	lock.mu.Unlock()

	k.mu.Lock()
	lock.holders--
	if lock.holders == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// lockAll acquires the locks for all keys in sorted order and returns an
// unlock function releasing them in reverse.
func (k *keyedMutex) lockAll(keys []string) func() {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	sort.Strings(unique)

	held := make([]*keyedLock, 0, len(unique))
	for _, key := range unique {
		held = append(held, k.acquire(key))
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(unique[i], held[i])
		}
	}
}

// FulfillmentService executes single work orders: it validates and
// consumes material stock lot-by-lot, mints finished units, and moves the
// order to its terminal state.
type FulfillmentService struct {
	workOrders domain.WorkOrderRepository
	items      domain.ItemRepository
	stock      domain.StockRepository
	locations  domain.LocationRepository
	units      domain.UnitRegistry
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
	logger     *logging.Logger

	itemLocks *keyedMutex
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	workOrders domain.WorkOrderRepository,
	items domain.ItemRepository,
	stock domain.StockRepository,
	locations domain.LocationRepository,
	units domain.UnitRegistry,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		workOrders: workOrders,
		items:      items,
		stock:      stock,
		locations:  locations,
		units:      units,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		itemLocks:  newKeyedMutex(),
	}
}

// CheckAvailability compares each requirement against current aggregate
// stock for the resolved item (substitute when selected). Required
// quantities arrive pre-scaled; this operation has no side effects.
func (s *FulfillmentService) CheckAvailability(ctx context.Context, query CheckAvailabilityQuery) (*AvailabilityResultDTO, error) {
	result := &AvailabilityResultDTO{OK: true, Shortages: make([]ShortageDTO, 0)}

	for _, material := range query.Materials {
		itemID := material.ItemID
		if material.SubstituteItemID != "" {
			itemID = material.SubstituteItemID
		}

		item, err := s.items.FindByID(ctx, query.TenantID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
		}
		if item == nil {
			return nil, apperrors.ErrNotFoundWithID("Item", itemID)
		}

		available, err := s.stock.AvailableQuantity(ctx, query.TenantID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to read stock for item %s: %w", itemID, err)
		}

		if available < material.RequiredQuantity {
			result.OK = false
			result.Shortages = append(result.Shortages, ShortageDTO{
				ItemID:    item.ItemID,
				ItemCode:  item.Code,
				ItemName:  item.Name,
				Required:  material.RequiredQuantity,
				Available: available,
				Shortfall: material.RequiredQuantity - available,
			})
			if s.metrics != nil {
				s.metrics.RecordMaterialShortage()
			}
		}
	}

	return result, nil
}

// Complete executes an IN_PROGRESS work order: consumes every material
// requirement FIFO from its lots, mints one unit identifier per unit
// produced, creates the finished-goods lot, and marks the order COMPLETED.
//
// Materials are consumed one at a time and each lot mutation is persisted
// as it happens. A sufficiency failure on material N aborts the call but
// does not revert materials already consumed; the order stays IN_PROGRESS.
func (s *FulfillmentService) Complete(ctx context.Context, cmd CompleteWorkOrderCommand) (*WorkOrderDTO, error) {
	wo, err := s.workOrders.FindByID(ctx, cmd.TenantID, cmd.WorkOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work order %s: %w", cmd.WorkOrderID, err)
	}
	if wo == nil {
		return nil, apperrors.ErrNotFoundWithID("WorkOrder", cmd.WorkOrderID)
	}

	if wo.Status != domain.StatusInProgress {
		return nil, apperrors.ErrInvalidState(
			fmt.Sprintf("work order %s is %s, must be IN_PROGRESS to complete", wo.WorkOrderID, wo.Status))
	}

	// Every produced unit gets its own identifier, so the order quantity
	// must be a whole number of units. Checked before any lot is touched.
	if wo.Quantity != math.Trunc(wo.Quantity) {
		return nil, apperrors.ErrValidation(
			fmt.Sprintf("work order %s quantity %g is not a whole number of units", wo.WorkOrderID, wo.Quantity))
	}

	lockKeys := make([]string, 0, len(wo.Materials))
	for _, material := range wo.Materials {
		lockKeys = append(lockKeys, cmd.TenantID+"/"+material.ConsumableItemID())
	}
	unlock := s.itemLocks.lockAll(lockKeys)
	defer unlock()

	consumed := make([]*domain.StockConsumedEvent, 0, len(wo.Materials))

	for idx := range wo.Materials {
		material := &wo.Materials[idx]
		event, err := s.consumeMaterial(ctx, cmd.TenantID, wo, material)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordWorkOrderCompleted(false)
			}
			return nil, err
		}
		consumed = append(consumed, event)
	}

	location, err := s.locations.FindDefault(ctx, cmd.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage location: %w", err)
	}
	if location == nil {
		return nil, apperrors.ErrConfiguration(
			fmt.Sprintf("no default storage location configured for tenant %s", cmd.TenantID))
	}

	unitIDs, err := s.mintUnits(ctx, cmd, wo, location)
	if err != nil {
		return nil, err
	}

	lot := &domain.StockLot{
		LotID:             primitive.NewObjectID().Hex(),
		TenantID:          cmd.TenantID,
		ItemID:            wo.ItemID,
		LocationID:        location.LocationID,
		Quantity:          wo.Quantity,
		Available:         wo.Quantity,
		SourceWorkOrderID: wo.WorkOrderID,
		CreatedAt:         wo.UpdatedAt,
		UpdatedAt:         wo.UpdatedAt,
	}
	if err := s.stock.CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create finished goods lot: %w", err)
	}

	if err := wo.Complete(wo.Quantity, unitIDs); err != nil {
		return nil, apperrors.ErrInvalidState(err.Error())
	}

	events := wo.GetDomainEvents()
	for _, event := range consumed {
		events = append(events, event)
	}
	events = append(events, &domain.LotCreatedEvent{
		LotID:       lot.LotID,
		TenantID:    lot.TenantID,
		ItemID:      lot.ItemID,
		LocationID:  lot.LocationID,
		Quantity:    lot.Quantity,
		WorkOrderID: wo.WorkOrderID,
		CreatedAt:   lot.CreatedAt,
	})

	if err := s.workOrders.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to save completed work order: %w", err)
	}
	wo.ClearDomainEvents()

	if s.publisher != nil {
		if err := s.publisher.PublishAll(ctx, events); err != nil {
			s.logger.Error("Failed to publish completion events", "workOrderId", wo.WorkOrderID, "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordWorkOrderCompleted(true)
		s.metrics.RecordUnitsProduced(len(unitIDs))
	}

	s.logger.WithContext(ctx).Info("Work order completed",
		"workOrderId", wo.WorkOrderID,
		"itemId", wo.ItemID,
		"quantity", wo.Quantity,
		"units", len(unitIDs),
	)

	return ToWorkOrderDTO(wo), nil
}

// consumeMaterial draws one requirement from its item's lots oldest-first,
// persisting each lot as it is drained. The sufficiency check happens
// before any lot of this material is touched.
func (s *FulfillmentService) consumeMaterial(ctx context.Context, tenantID string, wo *domain.WorkOrder, material *domain.MaterialRequirement) (*domain.StockConsumedEvent, error) {
	itemID := material.ConsumableItemID()

	item, err := s.items.FindByID(ctx, tenantID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	if item == nil {
		return nil, apperrors.ErrNotFoundWithID("Item", itemID)
	}

	lots, err := s.stock.ListLotsWithAvailability(ctx, tenantID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots for item %s: %w", itemID, err)
	}

	var total float64
	for _, lot := range lots {
		total += lot.Available
	}

	if total < material.RequiredQuantity {
		if s.metrics != nil {
			s.metrics.RecordMaterialShortage()
		}
		short := material.RequiredQuantity - total
		return nil, apperrors.ErrInsufficientStock(item.Code, fmt.Sprintf("%g", short)).
			WithDetail("message", fmt.Sprintf("Need %g, Available %g, Short %g", material.RequiredQuantity, total, short))
	}

	remaining := material.RequiredQuantity
	lotIDs := make([]string, 0)
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		drawn := lot.Draw(remaining)
		if drawn == 0 {
			continue
		}
		remaining -= drawn
		lotIDs = append(lotIDs, lot.LotID)

		if err := s.stock.UpdateLotAvailable(ctx, tenantID, lot.LotID, lot.Available); err != nil {
			return nil, fmt.Errorf("failed to update lot %s: %w", lot.LotID, err)
		}
	}

	if err := wo.IssueMaterial(material.RequirementID, material.RequiredQuantity); err != nil {
		return nil, err
	}
	if err := s.workOrders.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to record material issue: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStockLotConsumed(len(lotIDs))
	}

	return &domain.StockConsumedEvent{
		WorkOrderID: wo.WorkOrderID,
		TenantID:    tenantID,
		ItemID:      itemID,
		Quantity:    material.RequiredQuantity,
		LotIDs:      lotIDs,
		ConsumedAt:  wo.UpdatedAt,
	}, nil
}

// mintUnits generates one identified unit record per unit of the order
// quantity, validated integral by Complete before consumption started.
func (s *FulfillmentService) mintUnits(ctx context.Context, cmd CompleteWorkOrderCommand, wo *domain.WorkOrder, location *domain.Location) ([]string, error) {
	count := int(wo.Quantity)
	unitIDs := make([]string, 0, count)

	for i := 0; i < count; i++ {
		unitID, err := s.units.MintUnitID(ctx, cmd.TenantCode, cmd.PlantCode, unitEntityType)
		if err != nil {
			return nil, fmt.Errorf("failed to mint unit identifier: %w", err)
		}

		unit := domain.NewProducedUnit(unitID, cmd.TenantID, wo.ItemID, wo.WorkOrderID, location.LocationID, cmd.ActorID)
		if err := s.units.Save(ctx, unit); err != nil {
			return nil, fmt.Errorf("failed to register unit %s: %w", unitID, err)
		}

		unitIDs = append(unitIDs, unitID)
	}

	return unitIDs, nil
}

// GetCompletionPreview projects what Complete would do without mutating
// anything, using the same lot-sum arithmetic as the consumption path.
func (s *FulfillmentService) GetCompletionPreview(ctx context.Context, query GetCompletionPreviewQuery) (*CompletionPreviewDTO, error) {
	wo, err := s.workOrders.FindByID(ctx, query.TenantID, query.WorkOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work order %s: %w", query.WorkOrderID, err)
	}
	if wo == nil {
		return nil, apperrors.ErrNotFoundWithID("WorkOrder", query.WorkOrderID)
	}

	finished, err := s.items.FindByID(ctx, query.TenantID, wo.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", wo.ItemID, err)
	}
	if finished == nil {
		return nil, apperrors.ErrNotFoundWithID("Item", wo.ItemID)
	}

	preview := &CompletionPreviewDTO{
		FinishedGood: FinishedGoodDTO{
			ItemID:   finished.ItemID,
			ItemCode: finished.Code,
			ItemName: finished.Name,
			Quantity: wo.Quantity,
		},
		Materials:   make([]CompletionMaterialDTO, 0, len(wo.Materials)),
		CanComplete: true,
	}

	for _, material := range wo.Materials {
		itemID := material.ConsumableItemID()

		item, err := s.items.FindByID(ctx, query.TenantID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
		}
		if item == nil {
			return nil, apperrors.ErrNotFoundWithID("Item", itemID)
		}

		lots, err := s.stock.ListLotsWithAvailability(ctx, query.TenantID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to list lots for item %s: %w", itemID, err)
		}

		var current float64
		for _, lot := range lots {
			current += lot.Available
		}

		sufficient := current >= material.RequiredQuantity
		if !sufficient {
			preview.CanComplete = false
		}

		preview.Materials = append(preview.Materials, CompletionMaterialDTO{
			ItemID:       item.ItemID,
			ItemCode:     item.Code,
			ItemName:     item.Name,
			ToConsume:    material.RequiredQuantity,
			CurrentStock: current,
			NewStock:     current - material.RequiredQuantity,
			Sufficient:   sufficient,
		})
	}

	return preview, nil
}
