package nats_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/nats"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMovementCommittedEvent(t *testing.T) {
	at := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	m := &entity.StockMovement{
		ID:                    "m-1",
		ProductID:             "p-1",
		Type:                  entity.MovementTypeReturn,
		Quantity:              3,
		OriginalMovementID:    "m-0",
		UnitCostAtTransaction: decimal.RequireFromString("1.3333"),
		TotalCost:             decimal.RequireFromString("3.9999"),
		StockAfter:            8,
		Version:               4,
		CreatedBy:             "u-1",
		CreatedAt:             at,
	}

	data, err := json.Marshal(nats.NewMovementCommittedEvent(m))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "m-1", got["movement_id"])
	assert.Equal(t, "RETURN", got["type"])
	assert.Equal(t, "1.3333", got["unit_cost"])
	assert.Equal(t, "3.9999", got["total_cost"])
	assert.Equal(t, "m-0", got["original_movement_id"])
	assert.Equal(t, float64(4), got["version"])
	assert.Equal(t, "2024-05-02T08:30:00Z", got["occurred_at"])
	assert.NotContains(t, got, "reference")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "inventory.movements.committed.ISSUE", nats.Subject("inventory.movements.committed", entity.MovementTypeIssue))
}
