package entity

import "github.com/shopspring/decimal"

// CostLayer capa de costo FIFO/LIFO: lo que queda de una recepción y su costo unitario.
type CostLayer struct {
	Sequence int64 // orden de recepción
	Quantity int64 // cantidad restante
	UnitCost decimal.Decimal
}

// TotalCost devuelve Quantity * UnitCost.
func (l CostLayer) TotalCost() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(l.Quantity))
}

// LedgerState estado durable por producto necesario para valorar el siguiente movimiento.
// En AVERAGE no hay capas: solo CurrentStock y UnitCost.
// Layers está ordenado por Sequence ascendente (más antigua primero).
type LedgerState struct {
	ProductID      string
	CostingMethod  CostingMethod
	CurrentStock   int64
	UnitCost       decimal.Decimal // promedio ponderado vigente
	LastInflowCost decimal.Decimal // costo de la última entrada de stock (recepción, devolución o ajuste +); respaldo sin capas
	Layers         []CostLayer
	NextSequence   int64
}

// NewLedgerState estado inicial de un producto recién creado: stock cero, sin capas.
func NewLedgerState(productID string, method CostingMethod) LedgerState {
	return LedgerState{
		ProductID:      productID,
		CostingMethod:  method,
		UnitCost:       decimal.Zero,
		LastInflowCost: decimal.Zero,
		Layers:         []CostLayer{},
		NextSequence:   1,
	}
}

// Clone copia profunda (el slice de capas no se comparte).
func (s LedgerState) Clone() LedgerState {
	out := s
	out.Layers = make([]CostLayer, len(s.Layers))
	copy(out.Layers, s.Layers)
	return out
}

// LayerQuantity suma las cantidades de todas las capas.
func (s LedgerState) LayerQuantity() int64 {
	var total int64
	for _, l := range s.Layers {
		total += l.Quantity
	}
	return total
}

// Value valor del inventario según el método vigente.
func (s LedgerState) Value() decimal.Decimal {
	if !s.CostingMethod.UsesLayers() {
		return s.UnitCost.Mul(decimal.NewFromInt(s.CurrentStock))
	}
	total := decimal.Zero
	for _, l := range s.Layers {
		total = total.Add(l.TotalCost())
	}
	return total
}
