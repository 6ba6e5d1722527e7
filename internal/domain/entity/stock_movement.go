package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipos de movimiento de inventario (conjunto cerrado).
type MovementType string

const (
	MovementTypeReceipt    MovementType = "RECEIPT"    // entrada por compra
	MovementTypeIssue      MovementType = "ISSUE"      // salida
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // ajuste (+/-)
	MovementTypeTransfer   MovementType = "TRANSFER"   // traslado de salida
	MovementTypeReturn     MovementType = "RETURN"     // devolución (entrada)
)

// MovementTypes lista todos los tipos válidos.
var MovementTypes = []MovementType{
	MovementTypeReceipt,
	MovementTypeIssue,
	MovementTypeAdjustment,
	MovementTypeTransfer,
	MovementTypeReturn,
}

// ParseMovementType normaliza el texto recibido.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range MovementTypes {
		if v == t {
			return t, true
		}
	}
	return t, false
}

// StockMovement registro inmutable de un movimiento confirmado (auditoría).
// Se crea una sola vez por operación aceptada; nunca se actualiza ni se borra.
type StockMovement struct {
	ID                    string
	ProductID             string
	Type                  MovementType
	Quantity              int64 // con signo según el tipo (solo ADJUSTMENT puede ser negativo)
	SourceLocation        string
	DestinationLocation   string
	Reason                string
	Reference             string // factura, orden, nota de ajuste, etc.
	WorkOrderID           string
	OriginalMovementID    string // solo RETURN: salida que se devuelve
	UnitCostAtTransaction decimal.Decimal
	TotalCost             decimal.Decimal
	StockAfter            int64
	Version               int64 // versión del ledger que produjo este movimiento
	CreatedBy             string
	CreatedAt             time.Time
}
