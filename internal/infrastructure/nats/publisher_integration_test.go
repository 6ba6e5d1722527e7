package nats_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
)

const (
	skipIntegrationTests = "LEDGER_SKIP_INTEGRATION_TESTS"
	natsImg              = "nats:2.11.6-alpine"
	testStream           = "INVENTORY_MOVEMENTS"
	testSubject          = "inventory.movements.committed"
)

type PublisherSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcnats.NATSContainer
	nc        *natsgo.Conn
	js        jetstream.JetStream
}

func TestPublisherIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) != "" {
		t.Skipf("%s definido, se omiten tests de integración", skipIntegrationTests)
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.container, err = tcnats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "levantar contenedor NATS")

	url, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)

	s.nc, s.js, err = nats.Connect(url, 5*time.Second)
	require.NoError(s.T(), err)
	require.NoError(s.T(), nats.EnsureStream(s.ctx, s.js, testStream, testSubject))
	// idempotente
	require.NoError(s.T(), nats.EnsureStream(s.ctx, s.js, testStream, testSubject))
}

func (s *PublisherSuite) TearDownSuite() {
	if s.nc != nil {
		s.nc.Close()
	}
	if err := testcontainers.TerminateContainer(s.container); err != nil {
		s.T().Logf("terminar contenedor NATS: %v", err)
	}
}

func (s *PublisherSuite) TestPublishMovement() {
	pub := nats.NewMovementPublisher(s.js, testSubject, 2*time.Second)
	m := &entity.StockMovement{
		ID:                    uuid.New().String(),
		ProductID:             uuid.New().String(),
		Type:                  entity.MovementTypeIssue,
		Quantity:              5,
		UnitCostAtTransaction: decimal.RequireFromString("15"),
		TotalCost:             decimal.RequireFromString("75"),
		StockAfter:            15,
		Version:               3,
		CreatedAt:             time.Now().UTC(),
	}

	s.Require().NoError(pub.PublishMovement(s.ctx, m))
	// mismo id: JetStream lo descarta como duplicado
	s.Require().NoError(pub.PublishMovement(s.ctx, m))

	stream, err := s.js.Stream(s.ctx, testStream)
	s.Require().NoError(err)
	info, err := stream.Info(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), info.State.Msgs)

	raw, err := stream.GetLastMsgForSubject(s.ctx, nats.Subject(testSubject, entity.MovementTypeIssue))
	s.Require().NoError(err)
	var ev nats.MovementCommittedEvent
	s.Require().NoError(json.Unmarshal(raw.Data, &ev))
	s.Equal(m.ID, ev.MovementID)
	s.Equal(int64(3), ev.Version)
	s.True(decimal.RequireFromString("75").Equal(ev.TotalCost))
}
