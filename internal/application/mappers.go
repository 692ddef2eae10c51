package application

import "github.com/mfg-platform/production-service/internal/domain"

// ToWorkOrderDTO converts a domain WorkOrder to WorkOrderDTO
func ToWorkOrderDTO(wo *domain.WorkOrder) *WorkOrderDTO {
	if wo == nil {
		return nil
	}

	materials := make([]MaterialRequirementDTO, 0, len(wo.Materials))
	for _, m := range wo.Materials {
		materials = append(materials, MaterialRequirementDTO{
			RequirementID:    m.RequirementID,
			ItemID:           m.ItemID,
			SubstituteItemID: m.SubstituteItemID,
			RequiredQuantity: m.RequiredQuantity,
			IssuedQuantity:   m.IssuedQuantity,
			Status:           string(m.Status),
		})
	}

	operations := make([]OperationDTO, 0, len(wo.Ops))
	for _, op := range wo.Ops {
		operations = append(operations, OperationDTO{
			Sequence:    op.Sequence,
			Name:        op.Name,
			WorkCenter:  op.WorkCenter,
			DurationMin: op.DurationMin,
		})
	}

	return &WorkOrderDTO{
		WorkOrderID:       wo.WorkOrderID,
		OrderNumber:       wo.OrderNumber,
		ItemID:            wo.ItemID,
		BOMID:             wo.BOMID,
		Quantity:          wo.Quantity,
		Status:            string(wo.Status),
		Materials:         materials,
		Operations:        operations,
		SystemGenerated:   wo.SystemGenerated,
		ParentOrderID:     wo.ParentOrderID,
		StartDate:         wo.StartDate,
		CompletedQuantity: wo.CompletedQuantity,
		ActualEndDate:     wo.ActualEndDate,
		CreatedBy:         wo.CreatedBy,
		CreatedAt:         wo.CreatedAt,
		UpdatedAt:         wo.UpdatedAt,
	}
}

// ToWorkOrderDTOs converts a slice of work orders
func ToWorkOrderDTOs(orders []*domain.WorkOrder) []*WorkOrderDTO {
	dtos := make([]*WorkOrderDTO, 0, len(orders))
	for _, wo := range orders {
		dtos = append(dtos, ToWorkOrderDTO(wo))
	}
	return dtos
}
