package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// quantity > 0 salvo en ADJUSTMENT (negativo = disminución). acquisition_cost obligatorio en RECEIPT.
type RegisterMovementRequest struct {
	ProductID           string           `json:"product_id" validate:"required"`
	Type                string           `json:"type" validate:"required"`
	Quantity            int64            `json:"quantity"`
	SourceLocation      string           `json:"source_location,omitempty" validate:"max=100"`
	DestinationLocation string           `json:"destination_location,omitempty" validate:"max=100"`
	Reason              string           `json:"reason,omitempty" validate:"max=500"`
	Reference           string           `json:"reference,omitempty" validate:"max=100"`
	WorkOrderID         string           `json:"work_order_id,omitempty" validate:"max=100"`
	OriginalMovementID  string           `json:"original_movement_id,omitempty"`
	AcquisitionCost     *decimal.Decimal `json:"acquisition_cost,omitempty"`
}

// MovementResponse movimiento persistido: eco de la entrada más id, fecha y costo valorado.
type MovementResponse struct {
	ID                    string          `json:"id"`
	ProductID             string          `json:"product_id"`
	Type                  string          `json:"type"`
	Quantity              int64           `json:"quantity"`
	SourceLocation        string          `json:"source_location,omitempty"`
	DestinationLocation   string          `json:"destination_location,omitempty"`
	Reason                string          `json:"reason,omitempty"`
	Reference             string          `json:"reference,omitempty"`
	WorkOrderID           string          `json:"work_order_id,omitempty"`
	OriginalMovementID    string          `json:"original_movement_id,omitempty"`
	UnitCostAtTransaction decimal.Decimal `json:"unit_cost_at_transaction"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	StockAfter            int64           `json:"stock_after"`
	Version               int64           `json:"version"`
	CreatedBy             string          `json:"created_by"`
	CreatedAt             time.Time       `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
