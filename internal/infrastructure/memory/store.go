package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var (
	_ repository.ProductRepository = (*Store)(nil)
	_ repository.LedgerRepository  = (*Store)(nil)
)

type productRow struct {
	product entity.Product
	state   entity.LedgerState
}

// Store implementación en memoria de los repositorios del ledger.
// CommitIfVersion es un compare-and-swap bajo el mutex: el mutex solo se toma durante la copia
// del estado, nunca mientras se valora un movimiento.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*productRow
	skus      map[string]string
	movements map[string]*entity.StockMovement
	byProduct map[string][]string // ids en orden de confirmación
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*productRow),
		skus:      make(map[string]string),
		movements: make(map[string]*entity.StockMovement),
		byProduct: make(map[string][]string),
	}
}

// Create registra el producto y su ledger inicial.
func (s *Store) Create(ctx context.Context, product *entity.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := s.skus[product.SKU]; ok {
		return domain.ErrDuplicate
	}
	p := *product
	p.CurrentStock = 0
	p.Version = 0
	s.products[p.ID] = &productRow{
		product: p,
		state:   entity.NewLedgerState(p.ID, p.CostingMethod),
	}
	s.skus[p.SKU] = p.ID
	return nil
}

// GetByID devuelve nil, nil si no existe.
func (s *Store) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	p := row.product
	return &p, nil
}

// GetBySKU devuelve nil, nil si no existe.
func (s *Store) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.skus[sku]
	if !ok {
		return nil, nil
	}
	p := s.products[id].product
	return &p, nil
}

// Load devuelve una copia del estado y su versión.
func (s *Store) Load(ctx context.Context, productID string) (entity.LedgerState, int64, error) {
	if err := ctx.Err(); err != nil {
		return entity.LedgerState{}, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.products[productID]
	if !ok {
		return entity.LedgerState{}, 0, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return row.state.Clone(), row.product.Version, nil
}

// CommitIfVersion aplica estado y movimiento juntos si la versión no cambió.
func (s *Store) CommitIfVersion(ctx context.Context, productID string, version int64, state entity.LedgerState, movement *entity.StockMovement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	if row.product.Version != version {
		return domain.ErrVersionMismatch
	}
	if _, dup := s.movements[movement.ID]; dup {
		return fmt.Errorf("%w: movimiento %s", domain.ErrDuplicate, movement.ID)
	}
	if state.CurrentStock < 0 || (state.CostingMethod.UsesLayers() && state.LayerQuantity() != state.CurrentStock) {
		return domain.ErrLedgerInconsistent
	}

	row.state = state.Clone()
	row.product.CurrentStock = state.CurrentStock
	row.product.UnitCost = state.UnitCost
	row.product.Version = version + 1
	row.product.UpdatedAt = movement.CreatedAt

	m := *movement
	s.movements[m.ID] = &m
	s.byProduct[productID] = append(s.byProduct[productID], m.ID)
	return nil
}

// Movements vista de solo lectura del historial, implementa repository.StockMovementRepository.
func (s *Store) Movements() *MovementsView {
	return &MovementsView{s: s}
}

// MovementsView historial de movimientos del Store.
type MovementsView struct {
	s *Store
}

var _ repository.StockMovementRepository = (*MovementsView)(nil)

// GetByID devuelve nil, nil si no existe.
func (v *MovementsView) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	m, ok := v.s.movements[id]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

// ListByProduct más reciente primero.
func (v *MovementsView) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockMovement, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	ids := v.s.byProduct[productID]
	list := make([]*entity.StockMovement, 0, len(ids))
	for _, id := range ids {
		m := *v.s.movements[id]
		list = append(list, &m)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Version > list[j].Version })
	if offset >= len(list) {
		return []*entity.StockMovement{}, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}
