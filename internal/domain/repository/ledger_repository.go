package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// LedgerRepository contrato de almacenamiento que necesita el procesador de movimientos.
type LedgerRepository interface {
	// Load devuelve el estado del ledger y su versión vigente.
	// domain.ErrNotFound si el producto no existe.
	Load(ctx context.Context, productID string) (entity.LedgerState, int64, error)

	// CommitIfVersion guarda el nuevo estado e inserta el movimiento de forma atómica
	// (ambos o ninguno), solo si la versión vigente sigue siendo version.
	// Incrementa la versión en uno. domain.ErrVersionMismatch si otro movimiento confirmó antes.
	// Al retornar nil el commit ya es durable.
	CommitIfVersion(ctx context.Context, productID string, version int64, state entity.LedgerState, movement *entity.StockMovement) error
}
