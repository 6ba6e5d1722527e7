package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInvalidQuantity     = errors.New("cantidad inválida")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia: reintentos agotados")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")

	// ErrVersionMismatch lo devuelve el almacenamiento cuando la versión leída ya no es la vigente.
	// Es interno al procesador: nunca llega al caller (se reintenta o se convierte en ErrConcurrencyConflict).
	ErrVersionMismatch = errors.New("la versión del ledger cambió")

	// ErrLedgerInconsistent indica que las capas de costo no cubren el stock registrado.
	ErrLedgerInconsistent = errors.New("ledger inconsistente: capas de costo no cuadran con el stock")
)

// InsufficientStockError detalla el rechazo por falta de stock (disponible vs solicitado).
// errors.Is(err, ErrInsufficientStock) es verdadero para este tipo.
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: disponible %d, solicitado %d", ErrInsufficientStock, e.Available, e.Requested)
}

// Is permite comparar contra el sentinel ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
