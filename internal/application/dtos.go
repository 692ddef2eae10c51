package application

import (
	"time"

	"github.com/mfg-platform/production-service/internal/planning"
)

// WorkOrderDTO represents a work order in responses
type WorkOrderDTO struct {
	WorkOrderID       string                   `json:"workOrderId"`
	OrderNumber       string                   `json:"orderNumber"`
	ItemID            string                   `json:"itemId"`
	BOMID             string                   `json:"bomId"`
	Quantity          float64                  `json:"quantity"`
	Status            string                   `json:"status"`
	Materials         []MaterialRequirementDTO `json:"materials"`
	Operations        []OperationDTO           `json:"operations"`
	SystemGenerated   bool                     `json:"systemGenerated"`
	ParentOrderID     string                   `json:"parentOrderId,omitempty"`
	StartDate         *time.Time               `json:"startDate,omitempty"`
	CompletedQuantity float64                  `json:"completedQuantity"`
	ActualEndDate     *time.Time               `json:"actualEndDate,omitempty"`
	CreatedBy         string                   `json:"createdBy"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// MaterialRequirementDTO represents one material line of a work order
type MaterialRequirementDTO struct {
	RequirementID    string  `json:"requirementId"`
	ItemID           string  `json:"itemId"`
	SubstituteItemID string  `json:"substituteItemId,omitempty"`
	RequiredQuantity float64 `json:"requiredQuantity"`
	IssuedQuantity   float64 `json:"issuedQuantity"`
	Status           string  `json:"status"`
}

// OperationDTO represents a routing step on a work order
type OperationDTO struct {
	Sequence    int     `json:"sequence"`
	Name        string  `json:"name"`
	WorkCenter  string  `json:"workCenter,omitempty"`
	DurationMin float64 `json:"durationMin,omitempty"`
}

// SmartWorkOrderResultDTO is the outcome of a full cascade
type SmartWorkOrderResultDTO struct {
	WorkOrder       *WorkOrderDTO             `json:"workOrder"`
	SubWorkOrders   []*WorkOrderDTO           `json:"subWorkOrders"`
	ExplosionReport *planning.ExplosionReport `json:"explosionReport"`
}

// ShortageDTO describes one material that cannot be satisfied
type ShortageDTO struct {
	ItemID    string  `json:"itemId"`
	ItemCode  string  `json:"itemCode"`
	ItemName  string  `json:"itemName"`
	Required  float64 `json:"required"`
	Available float64 `json:"available"`
	Shortfall float64 `json:"shortfall"`
}

// AvailabilityResultDTO is the outcome of an availability check
type AvailabilityResultDTO struct {
	OK        bool          `json:"ok"`
	Shortages []ShortageDTO `json:"shortages"`
}

// CompletionMaterialDTO projects the stock effect of consuming one material
type CompletionMaterialDTO struct {
	ItemID       string  `json:"itemId"`
	ItemCode     string  `json:"itemCode"`
	ItemName     string  `json:"itemName"`
	ToConsume    float64 `json:"toConsume"`
	CurrentStock float64 `json:"currentStock"`
	NewStock     float64 `json:"newStock"`
	Sufficient   bool    `json:"sufficient"`
}

// FinishedGoodDTO describes the item a completion will produce
type FinishedGoodDTO struct {
	ItemID   string  `json:"itemId"`
	ItemCode string  `json:"itemCode"`
	ItemName string  `json:"itemName"`
	Quantity float64 `json:"quantity"`
}

// CompletionPreviewDTO is the read-only projection of a completion
type CompletionPreviewDTO struct {
	FinishedGood FinishedGoodDTO         `json:"finishedGood"`
	Materials    []CompletionMaterialDTO `json:"materials"`
	CanComplete  bool                    `json:"canComplete"`
}
