package dto

import "github.com/jhoicas/inventario-ledger/internal/domain/entity"

// FromMovement proyecta un movimiento persistido a su DTO de salida.
func FromMovement(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:                    m.ID,
		ProductID:             m.ProductID,
		Type:                  string(m.Type),
		Quantity:              m.Quantity,
		SourceLocation:        m.SourceLocation,
		DestinationLocation:   m.DestinationLocation,
		Reason:                m.Reason,
		Reference:             m.Reference,
		WorkOrderID:           m.WorkOrderID,
		OriginalMovementID:    m.OriginalMovementID,
		UnitCostAtTransaction: m.UnitCostAtTransaction,
		TotalCost:             m.TotalCost,
		StockAfter:            m.StockAfter,
		Version:               m.Version,
		CreatedBy:             m.CreatedBy,
		CreatedAt:             m.CreatedAt,
	}
}

// FromProduct proyecta un producto a su DTO de salida.
func FromProduct(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		CostingMethod: string(p.CostingMethod),
		CurrentStock:  p.CurrentStock,
		UnitCost:      p.UnitCost,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// FromLedger proyecta el estado del ledger con su versión.
func FromLedger(s entity.LedgerState, version int64) LedgerResponse {
	layers := make([]CostLayerResponse, 0, len(s.Layers))
	for _, l := range s.Layers {
		layers = append(layers, CostLayerResponse{Sequence: l.Sequence, Quantity: l.Quantity, UnitCost: l.UnitCost})
	}
	return LedgerResponse{
		ProductID:     s.ProductID,
		CostingMethod: string(s.CostingMethod),
		CurrentStock:  s.CurrentStock,
		UnitCost:      s.UnitCost,
		Value:         s.Value(),
		Layers:        layers,
		Version:       version,
	}
}
