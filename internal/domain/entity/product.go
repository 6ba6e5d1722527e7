package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CostingMethod método de valoración del inventario de un producto.
type CostingMethod string

const (
	CostingFIFO    CostingMethod = "FIFO"
	CostingLIFO    CostingMethod = "LIFO"
	CostingAverage CostingMethod = "AVERAGE" // promedio ponderado
)

// Valid indica si el método es uno de los soportados.
func (m CostingMethod) Valid() bool {
	switch m {
	case CostingFIFO, CostingLIFO, CostingAverage:
		return true
	}
	return false
}

// UsesLayers es verdadero para FIFO y LIFO (valoración por capas).
func (m CostingMethod) UsesLayers() bool {
	return m == CostingFIFO || m == CostingLIFO
}

// ParseCostingMethod normaliza el texto recibido ("fifo", "Average", ...).
func ParseCostingMethod(s string) (CostingMethod, bool) {
	m := CostingMethod(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Product representa un producto o SKU del inventario (solo campos relevantes para el ledger).
// CurrentStock, UnitCost y Version los modifica exclusivamente el procesador de movimientos.
type Product struct {
	ID            string
	SKU           string // único
	Name          string
	CostingMethod CostingMethod
	CurrentStock  int64
	UnitCost      decimal.Decimal // costo promedio ponderado (solo significativo en AVERAGE)
	Version       int64           // token de concurrencia optimista, +1 por movimiento confirmado
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
