package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo estado de valoración por producto (fila de products + cost_layers).
// El control de concurrencia es optimista: CommitIfVersion hace UPDATE ... WHERE version = $n
// y no toma bloqueos entre la lectura y la escritura.
type LedgerRepo struct {
	tx *TxRunner
}

// NewLedgerRepository construye el repositorio. Requiere el pool: cada operación abre su transacción.
func NewLedgerRepository(db TxBeginner) *LedgerRepo {
	return &LedgerRepo{tx: NewTxRunner(db)}
}

// Load lee producto y capas en un snapshot consistente (REPEATABLE READ, solo lectura).
func (r *LedgerRepo) Load(ctx context.Context, productID string) (entity.LedgerState, int64, error) {
	if !validID(productID) {
		return entity.LedgerState{}, 0, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	var state entity.LedgerState
	var version int64
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := r.tx.Run(ctx, opts, func(tx pgx.Tx) error {
		var method string
		err := tx.QueryRow(ctx, `
			SELECT costing_method, current_stock, unit_cost, last_inflow_cost, next_layer_sequence, version
			FROM products WHERE id = $1`, productID).Scan(
			&method, &state.CurrentStock, &state.UnitCost, &state.LastInflowCost, &state.NextSequence, &version,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
			}
			return fmt.Errorf("load ledger: %w", err)
		}
		state.ProductID = productID
		state.CostingMethod = entity.CostingMethod(method)

		rows, err := tx.Query(ctx, `
			SELECT sequence, quantity, unit_cost FROM cost_layers
			WHERE product_id = $1 ORDER BY sequence`, productID)
		if err != nil {
			return fmt.Errorf("load cost layers: %w", err)
		}
		defer rows.Close()
		state.Layers = []entity.CostLayer{}
		for rows.Next() {
			var l entity.CostLayer
			if err := rows.Scan(&l.Sequence, &l.Quantity, &l.UnitCost); err != nil {
				return fmt.Errorf("scan cost layer: %w", err)
			}
			state.Layers = append(state.Layers, l)
		}
		return rows.Err()
	})
	if err != nil {
		return entity.LedgerState{}, 0, err
	}
	return state, version, nil
}

// CommitIfVersion escribe el nuevo estado y el movimiento en una sola transacción,
// solo si la versión almacenada sigue siendo version. Si otro commit ganó devuelve domain.ErrVersionMismatch.
func (r *LedgerRepo) CommitIfVersion(ctx context.Context, productID string, version int64, state entity.LedgerState, movement *entity.StockMovement) error {
	if !validID(productID) {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	if state.CostingMethod.UsesLayers() && state.LayerQuantity() != state.CurrentStock {
		return domain.ErrLedgerInconsistent
	}

	return r.tx.Run(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET current_stock = $3, unit_cost = $4, last_inflow_cost = $5, next_layer_sequence = $6,
			    version = version + 1, updated_at = $7
			WHERE id = $1 AND version = $2`,
			productID, version, state.CurrentStock, state.UnitCost, state.LastInflowCost, state.NextSequence, movement.CreatedAt,
		)
		if err != nil {
			if isCheckViolation(err) {
				return fmt.Errorf("%w: %v", domain.ErrLedgerInconsistent, err)
			}
			return fmt.Errorf("update ledger: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
				return fmt.Errorf("check product: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
			}
			return domain.ErrVersionMismatch
		}

		if err := replaceLayers(ctx, tx, productID, state.Layers); err != nil {
			return err
		}
		return insertMovement(ctx, tx, movement)
	})
}

// replaceLayers reescribe las capas del producto. Son pocas (lo que queda de recepciones vivas).
func replaceLayers(ctx context.Context, tx pgx.Tx, productID string, layers []entity.CostLayer) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cost_layers WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete cost layers: %w", err)
	}
	if len(layers) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"cost_layers"},
		[]string{"product_id", "sequence", "quantity", "unit_cost"},
		pgx.CopyFromSlice(len(layers), func(i int) ([]any, error) {
			l := layers[i]
			return []any{productID, l.Sequence, l.Quantity, l.UnitCost}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert cost layers: %w", err)
	}
	return nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, type, quantity, source_location, destination_location, reason, reference,
			work_order_id, original_movement_id, unit_cost_at_transaction, total_cost, stock_after, version, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := tx.Exec(ctx, query,
		m.ID, m.ProductID, string(m.Type), m.Quantity, m.SourceLocation, m.DestinationLocation, m.Reason, m.Reference,
		m.WorkOrderID, nullIfEmpty(m.OriginalMovementID), m.UnitCostAtTransaction, m.TotalCost, m.StockAfter, m.Version,
		m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if constraintName(err) == "stock_movements_product_version_key" {
				return domain.ErrVersionMismatch
			}
			return fmt.Errorf("%w: movimiento %s", domain.ErrDuplicate, m.ID)
		}
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}
