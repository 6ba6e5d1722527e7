package inventory

import (
	"fmt"
	"math"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MaxQuantity tope de unidades por movimiento (en ajustes, en valor absoluto).
const MaxQuantity int64 = 1_000_000_000

// MaxUnitCost tope del costo unitario aceptado. Con MaxQuantity mantiene el costo total
// dentro de NUMERIC(24,4) y el unitario dentro de NUMERIC(20,4).
var MaxUnitCost = decimal.New(1, 10)

// Movement lo que el motor de valoración necesita de un movimiento solicitado.
// AcquisitionCost es obligatorio en RECEIPT; en RETURN es opcional (si falta se usa el costo vigente);
// en ADJUSTMENT se ignora.
type Movement struct {
	Type            entity.MovementType
	Quantity        int64
	AcquisitionCost *decimal.Decimal
}

// Valuation resultado de valorar un movimiento.
type Valuation struct {
	UnitCost  decimal.Decimal // UnitCostAtTransaction a registrar
	TotalCost decimal.Decimal // costo total del movimiento (positivo)
	State     entity.LedgerState
}

// Validate rechaza entradas mal formadas antes de leer estado alguno.
func Validate(m Movement) error {
	switch m.Type {
	case entity.MovementTypeReceipt, entity.MovementTypeIssue,
		entity.MovementTypeTransfer, entity.MovementTypeReturn:
		if m.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		if m.Quantity > MaxQuantity {
			return fmt.Errorf("%w: %d supera el máximo %d", domain.ErrInvalidQuantity, m.Quantity, MaxQuantity)
		}
	case entity.MovementTypeAdjustment:
		if m.Quantity == 0 {
			return domain.ErrInvalidQuantity
		}
		if m.Quantity > MaxQuantity || m.Quantity < -MaxQuantity {
			return fmt.Errorf("%w: %d fuera de ±%d", domain.ErrInvalidQuantity, m.Quantity, MaxQuantity)
		}
	default:
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, m.Type)
	}
	if m.Type == entity.MovementTypeReceipt && m.AcquisitionCost == nil {
		return fmt.Errorf("%w: costo de adquisición requerido", domain.ErrInvalidInput)
	}
	if m.AcquisitionCost != nil {
		if m.AcquisitionCost.IsNegative() {
			return fmt.Errorf("%w: costo de adquisición negativo", domain.ErrInvalidInput)
		}
		if m.AcquisitionCost.GreaterThan(MaxUnitCost) {
			return fmt.Errorf("%w: costo de adquisición supera %s", domain.ErrInvalidInput, MaxUnitCost)
		}
	}
	return nil
}

// Price valora el movimiento contra el estado actual y devuelve el nuevo estado.
// Función pura: no modifica state ni hace I/O. Si devuelve error el estado no cambia.
func Price(m Movement, state entity.LedgerState) (Valuation, error) {
	if err := Validate(m); err != nil {
		return Valuation{}, err
	}
	if !state.CostingMethod.Valid() {
		return Valuation{}, fmt.Errorf("%w: método de costeo %q", domain.ErrInvalidInput, state.CostingMethod)
	}

	next := state.Clone()
	switch m.Type {
	case entity.MovementTypeReceipt:
		return receive(next, m.Quantity, RoundCost(*m.AcquisitionCost))
	case entity.MovementTypeReturn:
		cost := CurrentCost(state)
		if m.AcquisitionCost != nil {
			cost = RoundCost(*m.AcquisitionCost)
		}
		return receive(next, m.Quantity, cost)
	case entity.MovementTypeIssue, entity.MovementTypeTransfer:
		return issue(next, m.Quantity)
	case entity.MovementTypeAdjustment:
		if m.Quantity > 0 {
			return receive(next, m.Quantity, CurrentCost(state))
		}
		return issue(next, -m.Quantity)
	}
	return Valuation{}, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, m.Type)
}

// CurrentCost costo vigente sin información nueva: promedio en AVERAGE,
// capa más reciente en FIFO/LIFO, o el costo de la última entrada (de cualquier tipo) si no quedan capas.
func CurrentCost(state entity.LedgerState) decimal.Decimal {
	if !state.CostingMethod.UsesLayers() {
		return state.UnitCost
	}
	if n := len(state.Layers); n > 0 {
		return state.Layers[n-1].UnitCost
	}
	return state.LastInflowCost
}

// receive suma stock: nueva capa en FIFO/LIFO o mezcla del promedio en AVERAGE.
// El costo registrado es el de la entrada, no el promedio resultante.
func receive(next entity.LedgerState, qty int64, cost decimal.Decimal) (Valuation, error) {
	if qty > math.MaxInt64-next.CurrentStock {
		return Valuation{}, fmt.Errorf("%w: el stock resultante excede el rango", domain.ErrInvalidQuantity)
	}
	if next.CostingMethod.UsesLayers() {
		next.Layers = append(next.Layers, entity.CostLayer{
			Sequence: next.NextSequence,
			Quantity: qty,
			UnitCost: cost,
		})
		next.NextSequence++
	} else {
		next.UnitCost = CostCalculator(next.CurrentStock, next.UnitCost, qty, cost)
	}
	next.CurrentStock += qty
	next.LastInflowCost = cost
	return Valuation{
		UnitCost:  cost,
		TotalCost: cost.Mul(decimal.NewFromInt(qty)),
		State:     next,
	}, nil
}

// issue resta stock. Rechaza (sin truncar) si la cantidad supera el disponible.
func issue(next entity.LedgerState, qty int64) (Valuation, error) {
	if qty > next.CurrentStock {
		return Valuation{}, &domain.InsufficientStockError{Available: next.CurrentStock, Requested: qty}
	}

	if !next.CostingMethod.UsesLayers() {
		next.CurrentStock -= qty
		return Valuation{
			UnitCost:  next.UnitCost,
			TotalCost: next.UnitCost.Mul(decimal.NewFromInt(qty)),
			State:     next,
		}, nil
	}

	layers, total, err := consumeLayers(next.Layers, qty, next.CostingMethod == entity.CostingLIFO)
	if err != nil {
		return Valuation{}, err
	}
	next.Layers = layers
	next.CurrentStock -= qty
	return Valuation{
		UnitCost:  RoundCost(total.Div(decimal.NewFromInt(qty))),
		TotalCost: total,
		State:     next,
	}, nil
}

// consumeLayers drena capas desde el frente (FIFO) o desde el final (LIFO) hasta cubrir qty.
// La última capa tocada puede quedar parcial y conserva su costo. Las capas vacías se eliminan.
func consumeLayers(layers []entity.CostLayer, qty int64, newestFirst bool) ([]entity.CostLayer, decimal.Decimal, error) {
	total := decimal.Zero
	remaining := qty
	out := make([]entity.CostLayer, len(layers))
	copy(out, layers)

	if newestFirst {
		end := len(out)
		for remaining > 0 && end > 0 {
			l := &out[end-1]
			take := min(l.Quantity, remaining)
			total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(take)))
			l.Quantity -= take
			remaining -= take
			if l.Quantity == 0 {
				end--
			}
		}
		out = out[:end]
	} else {
		start := 0
		for remaining > 0 && start < len(out) {
			l := &out[start]
			take := min(l.Quantity, remaining)
			total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(take)))
			l.Quantity -= take
			remaining -= take
			if l.Quantity == 0 {
				start++
			}
		}
		out = out[start:]
	}

	if remaining > 0 {
		return nil, decimal.Zero, domain.ErrLedgerInconsistent
	}
	return out, total, nil
}
