package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mfg-platform/production-service/internal/domain"
	"github.com/mfg-platform/production-service/internal/planning"
	apperrors "github.com/mfg-platform/production-service/pkg/errors"
	"github.com/mfg-platform/production-service/pkg/logging"
	"github.com/mfg-platform/production-service/pkg/metrics"
)

// Work order origins recorded in metrics
const (
	originManual  = "manual"
	originCascade = "cascade"
	originRoot    = "smart"
)

// WorkOrderService orchestrates planning and work order creation. The
// cascade path explodes demand, builds and completes every missing
// sub-assembly, then creates the root order for the shop floor.
type WorkOrderService struct {
	engine      *planning.Engine
	workOrders  domain.WorkOrderRepository
	items       domain.ItemRepository
	boms        domain.BOMRepository
	fulfillment *FulfillmentService
	publisher   domain.EventPublisher
	metrics     *metrics.Metrics
	logger      *logging.Logger
}

// NewWorkOrderService creates a new WorkOrderService
func NewWorkOrderService(
	engine *planning.Engine,
	workOrders domain.WorkOrderRepository,
	items domain.ItemRepository,
	boms domain.BOMRepository,
	fulfillment *FulfillmentService,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		engine:      engine,
		workOrders:  workOrders,
		items:       items,
		boms:        boms,
		fulfillment: fulfillment,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
	}
}

// Explode runs the explosion engine and reports the build plan
func (s *WorkOrderService) Explode(ctx context.Context, query ExplodeQuery) (*planning.ExplosionReport, error) {
	start := time.Now()
	report, err := s.engine.Explode(ctx, query.TenantID, query.ItemID, query.Quantity)
	if s.metrics != nil {
		s.metrics.RecordExplosion(err == nil, time.Since(start))
	}
	return report, err
}

// CreateSmartWorkOrder runs the full cascade. The report lists sub-assembly
// plans in build order, dependencies first, so each parent order finds its
// child's output in stock by the time it consumes it. A completion failure
// aborts the cascade: no further sub-orders are created and the root order
// is never created, but stock already consumed by earlier sub-orders stays
// consumed; each completion is its own unit of work.
func (s *WorkOrderService) CreateSmartWorkOrder(ctx context.Context, cmd CreateSmartWorkOrderCommand) (*SmartWorkOrderResultDTO, error) {
	report, err := s.Explode(ctx, ExplodeQuery{TenantID: cmd.TenantID, ItemID: cmd.ItemID, Quantity: cmd.Quantity})
	if err != nil {
		return nil, err
	}

	plans := make([]planning.SubAssemblyPlan, 0, len(report.SubAssemblies))
	for _, plan := range report.SubAssemblies {
		if plan.ToMake > 0 {
			plans = append(plans, plan)
		}
	}

	// The root order's identifier is minted up front so sub-orders can
	// carry the back-reference before the root record exists.
	rootID := primitive.NewObjectID().Hex()

	subOrders := make([]*WorkOrderDTO, 0, len(plans))
	for _, plan := range plans {
		completed, err := s.buildAndCompleteSubAssembly(ctx, cmd, plan, rootID)
		if err != nil {
			s.logger.Warn("Cascade aborted",
				"itemId", plan.ItemID,
				"bomId", plan.BOMID,
				"completedSubOrders", len(subOrders),
				"error", err,
			)
			return nil, err
		}
		subOrders = append(subOrders, completed)
	}

	rootBOM, err := s.boms.FindByID(ctx, cmd.TenantID, report.RootBOMID)
	if err != nil {
		return nil, fmt.Errorf("failed to load root BOM %s: %w", report.RootBOMID, err)
	}
	if rootBOM == nil {
		return nil, apperrors.ErrNotFoundWithID("BOM", report.RootBOMID)
	}

	root, err := s.createOrder(ctx, cmd.TenantID, cmd.ActorID, cmd.ItemID, rootBOM, cmd.Quantity, cmd.StartDate, cmd.VariantSelections)
	if err != nil {
		return nil, err
	}
	root.AssignWorkOrderID(rootID)
	if err := s.workOrders.Save(ctx, root); err != nil {
		return nil, fmt.Errorf("failed to save work order: %w", err)
	}
	s.publishEvents(ctx, root)

	if s.metrics != nil {
		s.metrics.RecordWorkOrderCreated(originRoot)
	}

	s.logger.WithContext(ctx).Info("Smart work order created",
		"workOrderId", root.WorkOrderID,
		"itemId", cmd.ItemID,
		"quantity", cmd.Quantity,
		"subWorkOrders", len(subOrders),
	)

	return &SmartWorkOrderResultDTO{
		WorkOrder:       ToWorkOrderDTO(root),
		SubWorkOrders:   subOrders,
		ExplosionReport: report,
	}, nil
}

// buildAndCompleteSubAssembly creates one cascade sub-order, moves it
// straight to IN_PROGRESS, and completes it synchronously.
func (s *WorkOrderService) buildAndCompleteSubAssembly(ctx context.Context, cmd CreateSmartWorkOrderCommand, plan planning.SubAssemblyPlan, rootID string) (*WorkOrderDTO, error) {
	bom, err := s.boms.FindByID(ctx, cmd.TenantID, plan.BOMID)
	if err != nil {
		return nil, fmt.Errorf("failed to load BOM %s: %w", plan.BOMID, err)
	}
	if bom == nil {
		return nil, apperrors.ErrNotFoundWithID("BOM", plan.BOMID)
	}

	wo, err := s.createOrder(ctx, cmd.TenantID, cmd.ActorID, plan.ItemID, bom, plan.ToMake, nil, nil)
	if err != nil {
		return nil, err
	}
	wo.TagSystemGenerated(rootID)

	if err := s.workOrders.Save(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to save work order: %w", err)
	}
	s.publishEvents(ctx, wo)

	if err := wo.Start(); err != nil {
		return nil, apperrors.ErrInvalidState(err.Error())
	}
	if err := s.workOrders.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to start work order: %w", err)
	}
	s.publishEvents(ctx, wo)

	if s.metrics != nil {
		s.metrics.RecordWorkOrderCreated(originCascade)
	}

	return s.fulfillment.Complete(ctx, CompleteWorkOrderCommand{
		TenantID:    cmd.TenantID,
		TenantCode:  cmd.TenantCode,
		PlantCode:   cmd.PlantCode,
		WorkOrderID: wo.WorkOrderID,
		ActorID:     cmd.ActorID,
	})
}

// CreateFromBOM creates a single work order directly from one BOM without
// cascading. Every requirement is checked up front; any shortage fails the
// call before anything is persisted.
func (s *WorkOrderService) CreateFromBOM(ctx context.Context, cmd CreateFromBOMCommand) (*WorkOrderDTO, error) {
	bom, err := s.boms.FindByID(ctx, cmd.TenantID, cmd.BOMID)
	if err != nil {
		return nil, fmt.Errorf("failed to load BOM %s: %w", cmd.BOMID, err)
	}
	if bom == nil {
		return nil, apperrors.ErrNotFoundWithID("BOM", cmd.BOMID)
	}
	if bom.ItemID != cmd.ItemID {
		return nil, apperrors.ErrValidation(
			fmt.Sprintf("BOM %s does not produce item %s", cmd.BOMID, cmd.ItemID))
	}

	wo, err := s.createOrder(ctx, cmd.TenantID, cmd.ActorID, cmd.ItemID, bom, cmd.Quantity, cmd.StartDate, cmd.VariantSelections)
	if err != nil {
		return nil, err
	}

	checks := make([]MaterialCheck, 0, len(wo.Materials))
	for _, material := range wo.Materials {
		checks = append(checks, MaterialCheck{
			ItemID:           material.ItemID,
			SubstituteItemID: material.SubstituteItemID,
			RequiredQuantity: material.RequiredQuantity,
		})
	}

	availability, err := s.fulfillment.CheckAvailability(ctx, CheckAvailabilityQuery{TenantID: cmd.TenantID, Materials: checks})
	if err != nil {
		return nil, err
	}
	if !availability.OK {
		return nil, insufficientMaterialError(availability.Shortages)
	}

	if err := s.workOrders.Save(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to save work order: %w", err)
	}
	s.publishEvents(ctx, wo)

	if s.metrics != nil {
		s.metrics.RecordWorkOrderCreated(originManual)
	}

	s.logger.WithContext(ctx).Info("Work order created from BOM",
		"workOrderId", wo.WorkOrderID,
		"itemId", cmd.ItemID,
		"bomId", cmd.BOMID,
		"quantity", cmd.Quantity,
	)

	return ToWorkOrderDTO(wo), nil
}

// StartWorkOrder moves a PLANNED work order to IN_PROGRESS
func (s *WorkOrderService) StartWorkOrder(ctx context.Context, cmd StartWorkOrderCommand) (*WorkOrderDTO, error) {
	wo, err := s.loadWorkOrder(ctx, cmd.TenantID, cmd.WorkOrderID)
	if err != nil {
		return nil, err
	}

	if err := wo.Start(); err != nil {
		return nil, apperrors.ErrInvalidState(err.Error())
	}
	if err := s.workOrders.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to update work order: %w", err)
	}
	s.publishEvents(ctx, wo)

	return ToWorkOrderDTO(wo), nil
}

// CancelWorkOrder cancels a non-terminal work order
func (s *WorkOrderService) CancelWorkOrder(ctx context.Context, cmd CancelWorkOrderCommand) (*WorkOrderDTO, error) {
	wo, err := s.loadWorkOrder(ctx, cmd.TenantID, cmd.WorkOrderID)
	if err != nil {
		return nil, err
	}

	if err := wo.Cancel(cmd.Reason); err != nil {
		return nil, apperrors.ErrInvalidState(err.Error())
	}
	if err := s.workOrders.Update(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to update work order: %w", err)
	}
	s.publishEvents(ctx, wo)

	return ToWorkOrderDTO(wo), nil
}

// GetWorkOrder retrieves a single work order
func (s *WorkOrderService) GetWorkOrder(ctx context.Context, query GetWorkOrderQuery) (*WorkOrderDTO, error) {
	wo, err := s.loadWorkOrder(ctx, query.TenantID, query.WorkOrderID)
	if err != nil {
		return nil, err
	}
	return ToWorkOrderDTO(wo), nil
}

// ListWorkOrders lists a tenant's work orders
func (s *WorkOrderService) ListWorkOrders(ctx context.Context, query ListWorkOrdersQuery) ([]*WorkOrderDTO, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	orders, err := s.workOrders.FindAll(ctx, query.TenantID, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	return ToWorkOrderDTOs(orders), nil
}

func (s *WorkOrderService) loadWorkOrder(ctx context.Context, tenantID, workOrderID string) (*domain.WorkOrder, error) {
	wo, err := s.workOrders.FindByID(ctx, tenantID, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work order %s: %w", workOrderID, err)
	}
	if wo == nil {
		return nil, apperrors.ErrNotFoundWithID("WorkOrder", workOrderID)
	}
	return wo, nil
}

// createOrder builds a PLANNED work order with its number, materials and
// routing populated. It does not persist.
func (s *WorkOrderService) createOrder(ctx context.Context, tenantID, actorID, itemID string, bom *domain.BillOfMaterials, quantity float64, startDate *time.Time, variants map[string]string) (*domain.WorkOrder, error) {
	wo, err := domain.NewWorkOrder(tenantID, itemID, bom.BOMID, quantity, actorID)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	number, err := s.workOrders.NextOrderNumber(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint order number: %w", err)
	}
	wo.OrderNumber = number
	wo.StartDate = startDate
	wo.PopulateFromBOM(bom, variants)

	return wo, nil
}

func (s *WorkOrderService) publishEvents(ctx context.Context, wo *domain.WorkOrder) {
	if s.publisher == nil {
		wo.ClearDomainEvents()
		return
	}

	events := wo.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.PublishAll(ctx, events); err != nil {
		s.logger.Error("Failed to publish work order events", "workOrderId", wo.WorkOrderID, "error", err)
	}
	wo.ClearDomainEvents()
}

// insufficientMaterialError renders every shortage into one actionable error
func insufficientMaterialError(shortages []ShortageDTO) *apperrors.AppError {
	lines := make([]string, 0, len(shortages))
	appErr := apperrors.ErrInsufficientMaterial("")
	for _, s := range shortages {
		lines = append(lines, fmt.Sprintf("%s (%s): Need %g, Available %g, Short %g",
			s.ItemName, s.ItemCode, s.Required, s.Available, s.Shortfall))
		appErr.WithDetail(s.ItemCode, fmt.Sprintf("%g", s.Shortfall))
	}
	appErr.Message = "Insufficient material: " + strings.Join(lines, "; ")
	return appErr
}
