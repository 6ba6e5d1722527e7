package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
)

var _ inventory.MovementPublisher = (*MovementPublisher)(nil)

// MovementCommittedEvent payload publicado por cada movimiento confirmado.
type MovementCommittedEvent struct {
	MovementID         string          `json:"movement_id"`
	ProductID          string          `json:"product_id"`
	Type               string          `json:"type"`
	Quantity           int64           `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	StockAfter         int64           `json:"stock_after"`
	Version            int64           `json:"version"`
	Reference          string          `json:"reference,omitempty"`
	OriginalMovementID string          `json:"original_movement_id,omitempty"`
	CreatedBy          string          `json:"created_by,omitempty"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

// NewMovementCommittedEvent proyecta el movimiento al evento.
func NewMovementCommittedEvent(m *entity.StockMovement) MovementCommittedEvent {
	return MovementCommittedEvent{
		MovementID:         m.ID,
		ProductID:          m.ProductID,
		Type:               string(m.Type),
		Quantity:           m.Quantity,
		UnitCost:           m.UnitCostAtTransaction,
		TotalCost:          m.TotalCost,
		StockAfter:         m.StockAfter,
		Version:            m.Version,
		Reference:          m.Reference,
		OriginalMovementID: m.OriginalMovementID,
		CreatedBy:          m.CreatedBy,
		OccurredAt:         m.CreatedAt,
	}
}

// Subject subject final: <base>.<TYPE>, ej. inventory.movements.committed.ISSUE.
func Subject(base string, t entity.MovementType) string {
	return base + "." + string(t)
}

// MovementPublisher publica movimientos confirmados en JetStream.
type MovementPublisher struct {
	js      jetstream.JetStream
	subject string
	timeout time.Duration
}

// NewMovementPublisher subject es la base; se le agrega el tipo de movimiento.
func NewMovementPublisher(js jetstream.JetStream, subject string, timeout time.Duration) *MovementPublisher {
	return &MovementPublisher{js: js, subject: subject, timeout: timeout}
}

// PublishMovement implementa inventory.MovementPublisher. El id del movimiento va como Nats-Msg-Id
// para que JetStream descarte duplicados.
func (p *MovementPublisher) PublishMovement(ctx context.Context, m *entity.StockMovement) error {
	data, err := json.Marshal(NewMovementCommittedEvent(m))
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if _, err := p.js.Publish(ctx, Subject(p.subject, m.Type), data, jetstream.WithMsgID(m.ID)); err != nil {
		return fmt.Errorf("publicar %s: %w", m.ID, err)
	}
	return nil
}

// EnsureStream crea o actualiza el stream que captura <subject>.>.
func EnsureStream(ctx context.Context, js jetstream.JetStream, stream, subject string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{subject + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("crear stream %s: %w", stream, err)
	}
	return nil
}

// Connect abre la conexión y el contexto JetStream.
func Connect(url string, timeout time.Duration) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Timeout(timeout), nats.Name("inventario-ledger"))
	if err != nil {
		return nil, nil, fmt.Errorf("conectar a NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("crear contexto JetStream: %w", err)
	}
	return nc, js, nil
}
