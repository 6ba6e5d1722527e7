package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Outcome estado terminal de un movimiento procesado.
type Outcome string

const (
	OutcomeCommitted         Outcome = "committed"
	OutcomeRejected          Outcome = "rejected"           // validación, regla de negocio o no encontrado
	OutcomeConflictExhausted Outcome = "conflict_exhausted" // reintentos agotados
	OutcomeFailed            Outcome = "failed"             // error de almacenamiento o cancelación
)

// MovementPublisher publica los movimientos ya confirmados (ej. NATS).
// Un error de publicación no revierte el movimiento.
type MovementPublisher interface {
	PublishMovement(ctx context.Context, movement *entity.StockMovement) error
}

// MovementObserver recibe métricas del procesador (ej. Prometheus).
type MovementObserver interface {
	MovementFinished(movementType entity.MovementType, outcome Outcome, elapsed time.Duration)
	ConflictRetry(movementType entity.MovementType)
}

type noopPublisher struct{}

func (noopPublisher) PublishMovement(context.Context, *entity.StockMovement) error { return nil }

type noopObserver struct{}

func (noopObserver) MovementFinished(entity.MovementType, Outcome, time.Duration) {}
func (noopObserver) ConflictRetry(entity.MovementType)                          {}
