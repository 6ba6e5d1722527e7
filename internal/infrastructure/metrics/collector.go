package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ inventory.MovementObserver = (*Collector)(nil)

// Collector métricas Prometheus del procesador de movimientos y del servidor HTTP.
type Collector struct {
	gatherer        prometheus.Gatherer
	movements       *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector crea y registra las métricas en reg. prefix se antepone a cada nombre (ej. "inventario_ledger").
func NewCollector(prefix string, reg *prometheus.Registry) *Collector {
	c := &Collector{
		gatherer: reg,
		movements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "movements_total",
				Help:      "Movimientos procesados por tipo y resultado",
			},
			[]string{"type", "outcome"},
		),
		conflictRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "movement_conflict_retries_total",
				Help:      "Conflictos de versión detectados al confirmar un movimiento",
			},
			[]string{"type"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: prefix,
				Name:      "movement_duration_seconds",
				Help:      "Duración de Apply, reintentos incluidos",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: prefix,
				Name:      "http_request_duration_seconds",
				Help:      "Duración de las peticiones HTTP en segundos",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(c.movements, c.conflictRetries, c.duration, c.httpDuration)
	return c
}

// MovementFinished implementa inventory.MovementObserver.
func (c *Collector) MovementFinished(movementType entity.MovementType, outcome inventory.Outcome, elapsed time.Duration) {
	c.movements.WithLabelValues(string(movementType), string(outcome)).Inc()
	c.duration.WithLabelValues(string(movementType)).Observe(elapsed.Seconds())
}

// ConflictRetry implementa inventory.MovementObserver.
func (c *Collector) ConflictRetry(movementType entity.MovementType) {
	c.conflictRetries.WithLabelValues(string(movementType)).Inc()
}

// Handler expone el registro en formato Prometheus (montar en /metrics).
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Middleware registra la duración de cada petición. path es la ruta declarada, no la URL concreta.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		c.httpDuration.
			WithLabelValues(ctx.Method(), ctx.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
