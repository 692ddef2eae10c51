package domain

import "errors"

// Errors
var (
	ErrItemNotFound        = errors.New("item not found")
	ErrBOMNotFound         = errors.New("no BOM found for item")
	ErrWorkOrderNotFound   = errors.New("work order not found")
	ErrLotNotFound         = errors.New("stock lot not found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRequirementNotFound = errors.New("material requirement not found")
	ErrCycleDetected       = errors.New("BOM cycle detected")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrNoDefaultLocation   = errors.New("no default storage location configured")
)
