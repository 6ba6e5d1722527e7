package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
	infranats "github.com/jhoicas/inventario-ledger/internal/infrastructure/nats"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type stores struct {
	products  repository.ProductRepository
	ledger    repository.LedgerRepository
	movements repository.StockMovementRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(cfg.Metrics.Prefix, reg)

	opts := []inventory.Option{
		inventory.WithMaxAttempts(cfg.Ledger.MaxAttempts),
		inventory.WithRetryBackoff(cfg.Ledger.RetryBackoff),
		inventory.WithObserver(collector),
	}
	if cfg.NATS.URL != "" {
		nc, js, err := infranats.Connect(cfg.NATS.URL, cfg.NATS.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a NATS")
		}
		defer nc.Drain()
		if err := infranats.EnsureStream(ctx, js, cfg.NATS.Stream, cfg.NATS.Subject); err != nil {
			log.Fatal().Err(err).Msg("stream JetStream")
		}
		opts = append(opts, inventory.WithPublisher(infranats.NewMovementPublisher(js, cfg.NATS.Subject, cfg.NATS.Timeout)))
		log.Info().Str("subject", cfg.NATS.Subject).Msg("publicación de movimientos habilitada")
	}

	processor := inventory.NewMovementProcessor(st.ledger, st.movements, log, opts...)
	productUC := usecase.NewProductUseCase(st.products, st.ledger, st.movements)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(collector.Middleware())

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:      productUC,
		Movements:      processor,
		JWTSecret:      cfg.JWT.Secret,
		Log:            log,
		MetricsHandler: collector.Handler(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor HTTP finalizado")
	}
	log.Info().Msg("aplicación detenida")
}

// openStores elige el almacenamiento según STORAGE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.App.Storage == config.StorageMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		m := memory.NewStore()
		return &stores{products: m, ledger: m, movements: m.Movements(), close: func() {}}, nil
	}

	if cfg.DB.RunMigrations {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &stores{
		products:  postgres.NewProductRepository(pool),
		ledger:    postgres.NewLedgerRepository(pool),
		movements: postgres.NewStockMovementRepository(pool),
		close:     pool.Close,
	}, nil
}
