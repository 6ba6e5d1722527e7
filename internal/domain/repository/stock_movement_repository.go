package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockMovementRepository lectura del historial de movimientos (append-only).
// Los movimientos solo se insertan a través de LedgerRepository.CommitIfVersion.
type StockMovementRepository interface {
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// ListByProduct devuelve los movimientos del producto, más reciente primero.
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error)
}
