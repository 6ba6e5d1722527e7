package postgres_test

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	valuation "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

const skipIntegrationTests = "LEDGER_SKIP_INTEGRATION_TESTS"

type LedgerStoreSuite struct {
	suite.Suite
	pgContainer *tcpostgres.PostgresContainer
	pool        *pgxpool.Pool
	products    *postgres.ProductRepo
	ledger      *postgres.LedgerRepo
	movements   *postgres.StockMovementRepo
	ctx         context.Context
}

func TestLedgerStoreSuite(t *testing.T) {
	if os.Getenv(skipIntegrationTests) != "" {
		t.Skipf("%s definido, se omiten tests de integración", skipIntegrationTests)
	}
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.pgContainer, err = tcpostgres.Run(s.ctx,
		"postgres:17.5-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "levantar contenedor PostgreSQL")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	require.NoError(s.T(), postgres.Migrate(connStr, logger.Nop()))
	// segunda vez: sin cambios, no es error
	require.NoError(s.T(), postgres.Migrate(connStr, logger.Nop()))

	s.pool, err = postgres.NewPool(s.ctx, config.DBConfig{DatabaseURL: connStr, MaxConns: 10})
	require.NoError(s.T(), err)

	s.products = postgres.NewProductRepository(s.pool)
	s.ledger = postgres.NewLedgerRepository(s.pool)
	s.movements = postgres.NewStockMovementRepository(s.pool)
}

func (s *LedgerStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.T().Logf("terminar contenedor: %v", err)
		}
	}
}

func (s *LedgerStoreSuite) newProduct(method entity.CostingMethod) *entity.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &entity.Product{
		ID:            uuid.New().String(),
		SKU:           "SKU-" + uuid.New().String()[:8],
		Name:          "Producto",
		CostingMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.Require().NoError(s.products.Create(s.ctx, p))
	return p
}

func (s *LedgerStoreSuite) processor(opts ...inventory.Option) *inventory.MovementProcessor {
	return inventory.NewMovementProcessor(s.ledger, s.movements, logger.Nop(), opts...)
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func (s *LedgerStoreSuite) TestProduct_CreateAndGet() {
	p := s.newProduct(entity.CostingLIFO)

	got, err := s.products.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(p.SKU, got.SKU)
	s.Equal(entity.CostingLIFO, got.CostingMethod)
	s.Equal(int64(0), got.Version)
	s.True(got.UnitCost.IsZero())

	bySKU, err := s.products.GetBySKU(s.ctx, p.SKU)
	s.Require().NoError(err)
	s.Require().NotNil(bySKU)
	s.Equal(p.ID, bySKU.ID)

	dup := *p
	dup.ID = uuid.New().String()
	s.ErrorIs(s.products.Create(s.ctx, &dup), domain.ErrDuplicate)

	missing, err := s.products.GetByID(s.ctx, "no-es-uuid")
	s.NoError(err)
	s.Nil(missing)
}

func (s *LedgerStoreSuite) TestLedger_FIFOFlow() {
	p := s.newProduct(entity.CostingFIFO)
	proc := s.processor()

	_, err := proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReceipt, Quantity: 10, AcquisitionCost: dec("1")})
	s.Require().NoError(err)
	_, err = proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReceipt, Quantity: 10, AcquisitionCost: dec("2")})
	s.Require().NoError(err)
	out, err := proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeIssue, Quantity: 15, Reference: "OT-7"})
	s.Require().NoError(err)
	s.Equal("1.3333", out.UnitCostAtTransaction.String())
	s.True(decimal.NewFromInt(20).Equal(out.TotalCost))

	state, version, err := s.ledger.Load(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), version)
	s.Equal(int64(5), state.CurrentStock)
	s.Require().Len(state.Layers, 1)
	s.Equal(int64(2), state.Layers[0].Sequence)
	s.Equal(int64(5), state.Layers[0].Quantity)
	s.Equal(int64(3), state.NextSequence)

	ret, err := proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReturn, Quantity: 3, OriginalMovementID: out.ID})
	s.Require().NoError(err)
	s.Equal("1.3333", ret.UnitCostAtTransaction.String())

	stored, err := s.movements.GetByID(s.ctx, ret.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(out.ID, stored.OriginalMovementID)
	s.Equal(entity.MovementTypeReturn, stored.Type)
	s.Equal(int64(8), stored.StockAfter)

	list, err := s.movements.ListByProduct(s.ctx, p.ID, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(int64(4), list[0].Version)
	s.Equal("OT-7", list[1].Reference)
}

func (s *LedgerStoreSuite) TestLedger_RejectionLeavesNoTrace() {
	p := s.newProduct(entity.CostingAverage)
	proc := s.processor()

	_, err := proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeIssue, Quantity: 1})
	s.ErrorIs(err, domain.ErrInsufficientStock)

	_, version, err := s.ledger.Load(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), version)
	list, err := s.movements.ListByProduct(s.ctx, p.ID, 10, 0)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *LedgerStoreSuite) TestLedger_ValoresExtremos() {
	p := s.newProduct(entity.CostingFIFO)
	proc := s.processor()

	// los topes aceptados caben en las columnas NUMERIC
	maxCost := valuation.MaxUnitCost
	out, err := proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReceipt,
		Quantity: valuation.MaxQuantity, AcquisitionCost: &maxCost})
	s.Require().NoError(err)
	s.True(maxCost.Mul(decimal.NewFromInt(valuation.MaxQuantity)).Equal(out.TotalCost))

	rejected := []struct {
		in   inventory.MovementInputDTO
		want error
	}{
		{inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReceipt, Quantity: 1, AcquisitionCost: dec("100000000000000000")}, domain.ErrInvalidInput},
		{inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeAdjustment, Quantity: math.MinInt64}, domain.ErrInvalidQuantity},
		{inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReceipt, Quantity: math.MaxInt64, AcquisitionCost: dec("1")}, domain.ErrInvalidQuantity},
	}
	for _, r := range rejected {
		_, err := proc.Apply(s.ctx, r.in)
		s.ErrorIs(err, r.want)
		s.NotErrorIs(err, domain.ErrLedgerInconsistent)
	}

	state, version, err := s.ledger.Load(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), version)
	s.Equal(valuation.MaxQuantity, state.CurrentStock)
}

func (s *LedgerStoreSuite) TestLedger_StaleVersion() {
	p := s.newProduct(entity.CostingAverage)
	state, version, err := s.ledger.Load(s.ctx, p.ID)
	s.Require().NoError(err)

	state.CurrentStock = 1
	state.UnitCost = decimal.NewFromInt(5)
	mov := &entity.StockMovement{ID: uuid.New().String(), ProductID: p.ID, Type: entity.MovementTypeReceipt, Quantity: 1,
		UnitCostAtTransaction: decimal.NewFromInt(5), TotalCost: decimal.NewFromInt(5), StockAfter: 1, Version: version + 1, CreatedAt: time.Now()}
	s.Require().NoError(s.ledger.CommitIfVersion(s.ctx, p.ID, version, state, mov))

	mov2 := *mov
	mov2.ID = uuid.New().String()
	err = s.ledger.CommitIfVersion(s.ctx, p.ID, version, state, &mov2)
	s.ErrorIs(err, domain.ErrVersionMismatch)

	err = s.ledger.CommitIfVersion(s.ctx, uuid.New().String(), 0, state, &mov2)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *LedgerStoreSuite) TestLedger_ConcurrentMovements() {
	const workers = 16
	p := s.newProduct(entity.CostingFIFO)
	proc := s.processor(inventory.WithMaxAttempts(workers+1), inventory.WithRetryBackoff(time.Millisecond))

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := proc.Apply(s.ctx, inventory.MovementInputDTO{ProductID: p.ID, Type: entity.MovementTypeReceipt, Quantity: 2, AcquisitionCost: dec("3")})
			return err
		})
	}
	s.Require().NoError(g.Wait())

	state, version, err := s.ledger.Load(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(workers), version)
	s.Equal(int64(2*workers), state.CurrentStock)
	s.Equal(int64(2*workers), state.LayerQuantity())

	list, err := s.movements.ListByProduct(s.ctx, p.ID, 0, 0)
	s.Require().NoError(err)
	s.Len(list, workers)
}
