package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	valuation "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// DefaultMaxAttempts intentos por movimiento ante conflictos de versión (incluye el primero).
const DefaultMaxAttempts = 3

// MovementProcessor registra movimientos de inventario contra el ledger de un producto.
// No usa bloqueos: lee estado+versión, valora, y confirma con compare-and-swap sobre la versión;
// si otro movimiento confirmó antes, vuelve a leer y a valorar (nunca reutiliza un precio viejo).
type MovementProcessor struct {
	ledger      repository.LedgerRepository
	movements   repository.StockMovementRepository
	publisher   MovementPublisher
	observer    MovementObserver
	log         *logger.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	newID       func() string
}

// Option configura el procesador.
type Option func(*MovementProcessor)

// WithMaxAttempts fija el número máximo de intentos (mínimo 1).
func WithMaxAttempts(n int) Option {
	return func(p *MovementProcessor) {
		if n >= 1 {
			p.maxAttempts = n
		}
	}
}

// WithRetryBackoff espera d entre intentos.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *MovementProcessor) { p.backoff = d }
}

// WithPublisher publica cada movimiento confirmado.
func WithPublisher(pub MovementPublisher) Option {
	return func(p *MovementProcessor) {
		if pub != nil {
			p.publisher = pub
		}
	}
}

// WithObserver registra métricas de cada movimiento.
func WithObserver(o MovementObserver) Option {
	return func(p *MovementProcessor) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(p *MovementProcessor) { p.now = now }
}

// NewMovementProcessor construye el procesador.
func NewMovementProcessor(
	ledger repository.LedgerRepository,
	movements repository.StockMovementRepository,
	log *logger.Logger,
	opts ...Option,
) *MovementProcessor {
	if log == nil {
		log = logger.Nop()
	}
	p := &MovementProcessor{
		ledger:      ledger,
		movements:   movements,
		publisher:   noopPublisher{},
		observer:    noopObserver{},
		log:         log.Component("movement_processor"),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MovementInputDTO entrada para registrar un movimiento.
// Quantity es positiva salvo en ADJUSTMENT, donde el signo indica aumento o disminución.
// AcquisitionCost es obligatorio en RECEIPT; en RETURN puede omitirse si se indica OriginalMovementID.
type MovementInputDTO struct {
	ProductID           string
	UserID              string
	Type                entity.MovementType
	Quantity            int64
	SourceLocation      string
	DestinationLocation string
	Reason              string
	Reference           string
	WorkOrderID         string
	OriginalMovementID  string
	AcquisitionCost     *decimal.Decimal
}

// Apply procesa un movimiento de punta a punta y devuelve el registro persistido.
// Errores: domain.ErrInvalidInput / ErrInvalidQuantity (sin leer estado), domain.ErrNotFound,
// *domain.InsufficientStockError, domain.ErrConcurrencyConflict tras agotar los intentos.
// Ningún camino de error deja estado modificado ni movimiento insertado.
func (p *MovementProcessor) Apply(ctx context.Context, input MovementInputDTO) (*entity.StockMovement, error) {
	start := p.now()
	mov, err := p.apply(ctx, input)
	p.observer.MovementFinished(input.Type, outcomeOf(err), p.now().Sub(start))
	return mov, err
}

func (p *MovementProcessor) apply(ctx context.Context, input MovementInputDTO) (*entity.StockMovement, error) {
	req := valuation.Movement{
		Type:            input.Type,
		Quantity:        input.Quantity,
		AcquisitionCost: input.AcquisitionCost,
	}
	if input.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if input.OriginalMovementID != "" && input.Type != entity.MovementTypeReturn {
		return nil, fmt.Errorf("%w: original_movement_id solo aplica a RETURN", domain.ErrInvalidInput)
	}
	if err := valuation.Validate(req); err != nil {
		return nil, err
	}

	if input.Type == entity.MovementTypeReturn && input.AcquisitionCost == nil && input.OriginalMovementID != "" {
		cost, err := p.originalCost(ctx, input)
		if err != nil {
			return nil, err
		}
		req.AcquisitionCost = &cost
	}

	log := p.log.Zerolog().With().
		Str("product_id", input.ProductID).
		Str("type", string(input.Type)).
		Int64("quantity", input.Quantity).
		Logger()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		state, version, err := p.ledger.Load(ctx, input.ProductID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Error().Err(err).Msg("leer ledger")
			}
			return nil, err
		}
		log.Debug().Int("attempt", attempt).Int64("version", version).Msg("ledger leído")

		val, err := valuation.Price(req, state)
		if err != nil {
			log.Info().Err(err).Int64("stock", state.CurrentStock).Msg("movimiento rechazado")
			return nil, err
		}

		record := p.newRecord(input, val, version+1)
		err = p.ledger.CommitIfVersion(ctx, input.ProductID, version, val.State, record)
		if err == nil {
			log.Info().
				Str("movement_id", record.ID).
				Str("unit_cost", record.UnitCostAtTransaction.String()).
				Int64("stock_after", record.StockAfter).
				Int64("version", record.Version).
				Msg("movimiento confirmado")
			p.publish(ctx, record)
			return record, nil
		}
		if !errors.Is(err, domain.ErrVersionMismatch) {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Error().Err(err).Msg("confirmar movimiento")
			}
			return nil, err
		}

		p.observer.ConflictRetry(input.Type)
		if attempt >= p.maxAttempts {
			log.Warn().Int("attempts", attempt).Msg("reintentos agotados por conflicto de versión")
			return nil, fmt.Errorf("%w: producto %s tras %d intentos", domain.ErrConcurrencyConflict, input.ProductID, attempt)
		}
		log.Warn().Int("attempt", attempt).Int64("version", version).Msg("conflicto de versión, reintentando")
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// originalCost costo unitario de la salida que se devuelve. Debe ser del mismo producto
// y de un tipo que haya sacado stock.
func (p *MovementProcessor) originalCost(ctx context.Context, input MovementInputDTO) (decimal.Decimal, error) {
	orig, err := p.movements.GetByID(ctx, input.OriginalMovementID)
	if err != nil {
		return decimal.Zero, err
	}
	if orig == nil {
		return decimal.Zero, fmt.Errorf("%w: movimiento original %s", domain.ErrNotFound, input.OriginalMovementID)
	}
	if orig.ProductID != input.ProductID {
		return decimal.Zero, fmt.Errorf("%w: el movimiento original es de otro producto", domain.ErrInvalidInput)
	}
	switch {
	case orig.Type == entity.MovementTypeIssue, orig.Type == entity.MovementTypeTransfer:
	case orig.Type == entity.MovementTypeAdjustment && orig.Quantity < 0:
	default:
		return decimal.Zero, fmt.Errorf("%w: el movimiento original no es una salida", domain.ErrInvalidInput)
	}
	return orig.UnitCostAtTransaction, nil
}

func (p *MovementProcessor) newRecord(input MovementInputDTO, val valuation.Valuation, version int64) *entity.StockMovement {
	return &entity.StockMovement{
		ID:                    p.newID(),
		ProductID:             input.ProductID,
		Type:                  input.Type,
		Quantity:              input.Quantity,
		SourceLocation:        input.SourceLocation,
		DestinationLocation:   input.DestinationLocation,
		Reason:                input.Reason,
		Reference:             input.Reference,
		WorkOrderID:           input.WorkOrderID,
		OriginalMovementID:    input.OriginalMovementID,
		UnitCostAtTransaction: val.UnitCost,
		TotalCost:             val.TotalCost,
		StockAfter:            val.State.CurrentStock,
		Version:               version,
		CreatedBy:             input.UserID,
		CreatedAt:             p.now().UTC(),
	}
}

// publish no propaga errores: el movimiento ya está confirmado.
func (p *MovementProcessor) publish(ctx context.Context, record *entity.StockMovement) {
	if err := p.publisher.PublishMovement(context.WithoutCancel(ctx), record); err != nil {
		p.log.Warn().Err(err).Str("movement_id", record.ID).Msg("publicar movimiento confirmado")
	}
}

func (p *MovementProcessor) wait(ctx context.Context) error {
	if p.backoff <= 0 {
		return nil
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return OutcomeConflictExhausted
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrNotFound):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
