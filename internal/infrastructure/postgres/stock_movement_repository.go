package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, type, quantity, source_location, destination_location, reason, reference,
	work_order_id, original_movement_id, unit_cost_at_transaction, total_cost, stock_after, version, created_by, created_at`

// StockMovementRepo lectura del historial de movimientos (la escritura va en LedgerRepo.CommitIfVersion).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByProduct lista movimientos de un producto, más reciente primero. limit <= 0 = sin límite.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	list := []*entity.StockMovement{}
	if !validID(productID) {
		return list, nil
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE product_id = $1 ORDER BY version DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, productID, lim, offset)
	if err != nil {
		return nil, fmt.Errorf("list by product: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var movType string
	var original *string
	err := row.Scan(&m.ID, &m.ProductID, &movType, &m.Quantity, &m.SourceLocation, &m.DestinationLocation,
		&m.Reason, &m.Reference, &m.WorkOrderID, &original, &m.UnitCostAtTransaction, &m.TotalCost,
		&m.StockAfter, &m.Version, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(movType)
	m.OriginalMovementID = stringOrEmpty(original)
	return &m, nil
}
