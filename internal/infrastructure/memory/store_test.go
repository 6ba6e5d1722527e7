package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, s *memory.Store, id string, method entity.CostingMethod) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &entity.Product{
		ID:            id,
		SKU:           "SKU-" + id,
		Name:          "Producto " + id,
		CostingMethod: method,
		UnitCost:      decimal.Zero,
	}))
}

func receiptState(productID string, qty int64, cost string) entity.LedgerState {
	st := entity.NewLedgerState(productID, entity.CostingFIFO)
	st.CurrentStock = qty
	st.LastInflowCost = decimal.RequireFromString(cost)
	st.Layers = []entity.CostLayer{{Sequence: 1, Quantity: qty, UnitCost: decimal.RequireFromString(cost)}}
	st.NextSequence = 2
	return st
}

func TestStore_CreateDuplicado(t *testing.T) {
	s := memory.NewStore()
	newProduct(t, s, "p1", entity.CostingFIFO)

	err := s.Create(context.Background(), &entity.Product{ID: "p2", SKU: "SKU-p1", CostingMethod: entity.CostingFIFO})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	err = s.Create(context.Background(), &entity.Product{ID: "p1", SKU: "otro", CostingMethod: entity.CostingFIFO})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStore_LoadInicial(t *testing.T) {
	s := memory.NewStore()
	newProduct(t, s, "p1", entity.CostingLIFO)

	st, version, err := s.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
	assert.Equal(t, int64(0), st.CurrentStock)
	assert.Empty(t, st.Layers)
	assert.Equal(t, entity.CostingLIFO, st.CostingMethod)

	_, _, err = s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := s.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_CommitIfVersion(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	newProduct(t, s, "p1", entity.CostingFIFO)

	mov := &entity.StockMovement{ID: "m1", ProductID: "p1", Type: entity.MovementTypeReceipt, Quantity: 10, StockAfter: 10, Version: 1, CreatedAt: time.Now()}
	require.NoError(t, s.CommitIfVersion(ctx, "p1", 0, receiptState("p1", 10, "1"), mov))

	st, version, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, int64(10), st.CurrentStock)
	require.Len(t, st.Layers, 1)

	p, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.CurrentStock)
	assert.Equal(t, int64(1), p.Version)

	t.Run("versión vieja", func(t *testing.T) {
		mov2 := &entity.StockMovement{ID: "m2", ProductID: "p1", Type: entity.MovementTypeReceipt, Quantity: 5, Version: 1}
		err := s.CommitIfVersion(ctx, "p1", 0, receiptState("p1", 15, "1"), mov2)
		assert.ErrorIs(t, err, domain.ErrVersionMismatch)

		got, err := s.Movements().GetByID(ctx, "m2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("capas que no cuadran", func(t *testing.T) {
		bad := receiptState("p1", 10, "1")
		bad.CurrentStock = 12
		mov3 := &entity.StockMovement{ID: "m3", ProductID: "p1", Version: 2}
		err := s.CommitIfVersion(ctx, "p1", 1, bad, mov3)
		assert.ErrorIs(t, err, domain.ErrLedgerInconsistent)

		_, version, _ := s.Load(ctx, "p1")
		assert.Equal(t, int64(1), version)
	})

	t.Run("movimiento repetido", func(t *testing.T) {
		err := s.CommitIfVersion(ctx, "p1", 1, receiptState("p1", 10, "1"), mov)
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})
}

func TestStore_LoadDevuelveCopia(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	newProduct(t, s, "p1", entity.CostingFIFO)
	require.NoError(t, s.CommitIfVersion(ctx, "p1", 0, receiptState("p1", 10, "1"), &entity.StockMovement{ID: "m1", ProductID: "p1", Version: 1}))

	st, _, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	st.Layers[0].Quantity = 999

	again, _, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.Layers[0].Quantity)
}

func TestMovementsView_ListByProduct(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	newProduct(t, s, "p1", entity.CostingFIFO)

	for i := int64(0); i < 5; i++ {
		mov := &entity.StockMovement{ID: string(rune('a' + i)), ProductID: "p1", Quantity: 1, Version: i + 1}
		require.NoError(t, s.CommitIfVersion(ctx, "p1", i, receiptState("p1", i+1, "1"), mov))
	}

	all, err := s.Movements().ListByProduct(ctx, "p1", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(5), all[0].Version)
	assert.Equal(t, int64(1), all[4].Version)

	page, err := s.Movements().ListByProduct(ctx, "p1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].Version)
	assert.Equal(t, int64(3), page[1].Version)

	empty, err := s.Movements().ListByProduct(ctx, "p1", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	other, err := s.Movements().ListByProduct(ctx, "p2", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}
