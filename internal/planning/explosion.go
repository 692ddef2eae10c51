package planning

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mfg-platform/production-service/internal/domain"
	apperrors "github.com/mfg-platform/production-service/pkg/errors"
	"github.com/mfg-platform/production-service/pkg/logging"
)

// NodeType distinguishes leaf components from manufactured sub-assemblies
type NodeType string

const (
	NodeLeaf         NodeType = "LEAF"
	NodeManufactured NodeType = "MANUFACTURED"
)

// ExplosionNode is one step of the explosion. Nodes are transient; they are
// reported to the caller and never persisted.
type ExplosionNode struct {
	Level             int      `json:"level"`
	Type              NodeType `json:"type"`
	BOMID             string   `json:"bomId,omitempty"`
	ItemID            string   `json:"itemId"`
	ItemCode          string   `json:"itemCode"`
	ItemName          string   `json:"itemName"`
	RequiredQuantity  float64  `json:"requiredQuantity"`
	AvailableQuantity float64  `json:"availableQuantity"`
	ToMakeQuantity    float64  `json:"toMakeQuantity,omitempty"`
	ShortageQuantity  float64  `json:"shortageQuantity,omitempty"`
}

// SubAssemblyPlan is the deduplicated build requirement for one
// (BOM, item) pair. ToMake is the maximum observed across all branches and
// Depth the deepest level at which the pair was required. The report lists
// plans in build order: a plan whose output another plan consumes always
// comes first, so the cascade can complete them front to back.
type SubAssemblyPlan struct {
	BOMID    string  `json:"bomId"`
	ItemID   string  `json:"itemId"`
	ItemCode string  `json:"itemCode"`
	ItemName string  `json:"itemName"`
	ToMake   float64 `json:"toMake"`
	Depth    int     `json:"depth"`
}

// ExplosionReport is the full result of one explosion call
type ExplosionReport struct {
	RootItemID    string            `json:"rootItemId"`
	RootQuantity  float64           `json:"rootQuantity"`
	RootBOMID     string            `json:"rootBomId,omitempty"`
	Nodes         []ExplosionNode   `json:"nodes"`
	SubAssemblies []SubAssemblyPlan `json:"subAssembliesToMake"`
}

// Engine walks the bill-of-materials graph and nets requirements against
// available stock. It is read-only; all writes happen downstream.
type Engine struct {
	items  domain.ItemRepository
	boms   domain.BOMRepository
	stock  domain.StockRepository
	logger *logging.Logger
}

// NewEngine creates an explosion engine
func NewEngine(items domain.ItemRepository, boms domain.BOMRepository, stock domain.StockRepository, logger *logging.Logger) *Engine {
	return &Engine{
		items:  items,
		boms:   boms,
		stock:  stock,
		logger: logger,
	}
}

type planKey struct {
	bomID  string
	itemID string
}

// walkState carries the per-call memo caches and accumulators. Item and
// stock lookups are cached for the whole explosion, so two branches that
// need the same component see the same availability snapshot; the engine
// does not decrement one branch's claim against the other's need.
type walkState struct {
	tenantID string

	itemCache  map[string]*domain.Item
	stockCache map[string]float64
	bomByID    map[string]*domain.BillOfMaterials
	activeBOM  map[string]*domain.BillOfMaterials

	nodes     []ExplosionNode
	plans     []SubAssemblyPlan
	planIndex map[planKey]int
	consumes  map[planKey][]planKey
}

// Explode computes the build plan for producing quantity units of itemID.
// A non-positive quantity returns an empty report without error. The item
// must have a BOM (active preferred, else highest version).
func (e *Engine) Explode(ctx context.Context, tenantID, itemID string, quantity float64) (*ExplosionReport, error) {
	report := &ExplosionReport{
		RootItemID:    itemID,
		RootQuantity:  quantity,
		Nodes:         make([]ExplosionNode, 0),
		SubAssemblies: make([]SubAssemblyPlan, 0),
	}

	if quantity <= 0 {
		return report, nil
	}

	st := &walkState{
		tenantID:   tenantID,
		itemCache:  make(map[string]*domain.Item),
		stockCache: make(map[string]float64),
		bomByID:    make(map[string]*domain.BillOfMaterials),
		activeBOM:  make(map[string]*domain.BillOfMaterials),
		nodes:      make([]ExplosionNode, 0),
		plans:      make([]SubAssemblyPlan, 0),
		planIndex:  make(map[planKey]int),
		consumes:   make(map[planKey][]planKey),
	}

	if _, err := e.lookupItem(ctx, st, itemID); err != nil {
		return nil, err
	}

	rootBOM, err := e.lookupActiveBOM(ctx, st, itemID)
	if err != nil {
		return nil, err
	}
	if rootBOM == nil {
		return nil, apperrors.ErrNotFoundWithID("BOM", itemID)
	}
	report.RootBOMID = rootBOM.BOMID

	if err := e.walk(ctx, st, rootBOM, nil, quantity, 0, map[string]struct{}{}); err != nil {
		return nil, err
	}

	report.Nodes = st.nodes
	report.SubAssemblies = st.orderedPlans()

	e.logger.WithContext(ctx).Info("BOM explosion complete",
		"itemId", itemID,
		"quantity", quantity,
		"nodes", len(st.nodes),
		"subAssemblies", len(st.plans),
	)

	return report, nil
}

// walk processes one BOM's lines at the given level. multiplier is the
// quantity of the BOM's own item to build and owner the plan key of that
// build, nil for the root BOM. visited holds the BOM ids on the current
// ancestor path only; each recursion gets its own copy so that sibling
// branches may legally reuse the same BOM.
func (e *Engine) walk(ctx context.Context, st *walkState, bom *domain.BillOfMaterials, owner *planKey, multiplier float64, level int, visited map[string]struct{}) error {
	if _, seen := visited[bom.BOMID]; seen {
		return apperrors.ErrCycleDetected(bom.BOMID)
	}

	path := make(map[string]struct{}, len(visited)+1)
	for id := range visited {
		path[id] = struct{}{}
	}
	path[bom.BOMID] = struct{}{}

	for _, line := range bom.SortedLines() {
		item, err := e.lookupItem(ctx, st, line.ItemID)
		if err != nil {
			return err
		}

		required := decimal.NewFromFloat(line.QuantityPerUnit).Mul(decimal.NewFromFloat(multiplier))
		requiredF, _ := required.Float64()

		childBOM, err := e.resolveChildBOM(ctx, st, &line, item)
		if err != nil {
			return err
		}

		available, err := e.lookupAvailability(ctx, st, line.ItemID)
		if err != nil {
			return err
		}

		net := required.Sub(decimal.NewFromFloat(available))
		if net.IsNegative() {
			net = decimal.Zero
		}
		netF, _ := net.Float64()

		if childBOM != nil {
			st.nodes = append(st.nodes, ExplosionNode{
				Level:             level,
				Type:              NodeManufactured,
				BOMID:             childBOM.BOMID,
				ItemID:            item.ItemID,
				ItemCode:          item.Code,
				ItemName:          item.Name,
				RequiredQuantity:  requiredF,
				AvailableQuantity: available,
				ToMakeQuantity:    netF,
			})

			childKey := planKey{bomID: childBOM.BOMID, itemID: item.ItemID}
			st.recordConsumption(owner, childKey)

			if netF > 0 {
				e.mergePlan(st, childKey, item, netF, level)
				if err := e.walk(ctx, st, childBOM, &childKey, netF, level+1, path); err != nil {
					return err
				}
			}
			continue
		}

		st.nodes = append(st.nodes, ExplosionNode{
			Level:             level,
			Type:              NodeLeaf,
			ItemID:            item.ItemID,
			ItemCode:          item.Code,
			ItemName:          item.Name,
			RequiredQuantity:  requiredF,
			AvailableQuantity: available,
			ShortageQuantity:  netF,
		})
	}

	return nil
}

// resolveChildBOM returns the BOM a line builds from, or nil for a plain
// leaf component. An explicit child BOM reference wins; otherwise an item
// of sub-assembly category gets its active BOM looked up dynamically.
func (e *Engine) resolveChildBOM(ctx context.Context, st *walkState, line *domain.BOMLine, item *domain.Item) (*domain.BillOfMaterials, error) {
	if line.HasChildBOM() {
		bom, err := e.lookupBOMByID(ctx, st, line.ChildBOMID)
		if err != nil {
			return nil, err
		}
		if bom == nil {
			return nil, apperrors.ErrNotFoundWithID("BOM", line.ChildBOMID)
		}
		return bom, nil
	}

	if item.IsSubAssembly() {
		return e.lookupActiveBOM(ctx, st, item.ItemID)
	}

	return nil, nil
}

// mergePlan appends or merges a plan entry, keeping the maximum toMake and
// the deepest level observed for the pair.
func (e *Engine) mergePlan(st *walkState, key planKey, item *domain.Item, toMake float64, level int) {
	if idx, ok := st.planIndex[key]; ok {
		if toMake > st.plans[idx].ToMake {
			st.plans[idx].ToMake = toMake
		}
		if level > st.plans[idx].Depth {
			st.plans[idx].Depth = level
		}
		return
	}

	st.planIndex[key] = len(st.plans)
	st.plans = append(st.plans, SubAssemblyPlan{
		BOMID:    key.bomID,
		ItemID:   item.ItemID,
		ItemCode: item.Code,
		ItemName: item.Name,
		ToMake:   toMake,
		Depth:    level,
	})
}

// recordConsumption remembers that the owner build's BOM carries a line for
// the child pair. Edges are recorded even when the child nets to zero at
// this occurrence, because the same pair may be planned from another branch
// and must still be built before any build that consumes its item.
func (st *walkState) recordConsumption(owner *planKey, child planKey) {
	if owner == nil {
		return
	}
	for _, existing := range st.consumes[*owner] {
		if existing == child {
			return
		}
	}
	st.consumes[*owner] = append(st.consumes[*owner], child)
}

// orderedPlans returns the plans in build order. Depth alone is not enough:
// deduplication keeps the deepest level per pair, which can lift a parent
// above its own child when the parent also appears on a deep branch where
// the child nets to zero. A post-order traversal of the consumption edges,
// restricted to planned pairs, always lists a build before its consumers.
// Plans with no dependency between them keep first-seen order.
func (st *walkState) orderedPlans() []SubAssemblyPlan {
	ordered := make([]SubAssemblyPlan, 0, len(st.plans))
	done := make(map[planKey]struct{}, len(st.plans))
	var visit func(key planKey)
	visit = func(key planKey) {
		if _, ok := done[key]; ok {
			return
		}
		done[key] = struct{}{}
		for _, dep := range st.consumes[key] {
			if _, planned := st.planIndex[dep]; planned {
				visit(dep)
			}
		}
		ordered = append(ordered, st.plans[st.planIndex[key]])
	}
	for _, plan := range st.plans {
		visit(planKey{bomID: plan.BOMID, itemID: plan.ItemID})
	}
	return ordered
}

func (e *Engine) lookupItem(ctx context.Context, st *walkState, itemID string) (*domain.Item, error) {
	if item, ok := st.itemCache[itemID]; ok {
		return item, nil
	}
	item, err := e.items.FindByID(ctx, st.tenantID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.ErrNotFoundWithID("Item", itemID)
	}
	st.itemCache[itemID] = item
	return item, nil
}

func (e *Engine) lookupAvailability(ctx context.Context, st *walkState, itemID string) (float64, error) {
	if qty, ok := st.stockCache[itemID]; ok {
		return qty, nil
	}
	qty, err := e.stock.AvailableQuantity(ctx, st.tenantID, itemID)
	if err != nil {
		return 0, err
	}
	st.stockCache[itemID] = qty
	return qty, nil
}

func (e *Engine) lookupBOMByID(ctx context.Context, st *walkState, bomID string) (*domain.BillOfMaterials, error) {
	if bom, ok := st.bomByID[bomID]; ok {
		return bom, nil
	}
	bom, err := e.boms.FindByID(ctx, st.tenantID, bomID)
	if err != nil {
		return nil, err
	}
	st.bomByID[bomID] = bom
	return bom, nil
}

func (e *Engine) lookupActiveBOM(ctx context.Context, st *walkState, itemID string) (*domain.BillOfMaterials, error) {
	if bom, ok := st.activeBOM[itemID]; ok {
		return bom, nil
	}
	bom, err := e.boms.FindActiveForItem(ctx, st.tenantID, itemID)
	if err != nil {
		return nil, err
	}
	st.activeBOM[itemID] = bom
	if bom != nil {
		st.bomByID[bom.BOMID] = bom
	}
	return bom, nil
}
