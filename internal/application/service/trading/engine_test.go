package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "main/internal/domain/entity/trading"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu          sync.Mutex
	placed      []domain.OrderIntent
	placeErr    error
	nextOrderID string
	polls       map[string][]*domain.OrderUpdate
	pollErr     error
	open        []domain.OrderUpdate
	listErr     error
	cancelErrs  map[string]error
	cancelCalls map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextOrderID: "broker-1",
		polls:       make(map[string][]*domain.OrderUpdate),
		cancelErrs:  make(map[string]error),
		cancelCalls: make(map[string]int),
	}
}

func (g *fakeGateway) Place(_ context.Context, _ string, intent domain.OrderIntent) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.placeErr != nil {
		return "", g.placeErr
	}
	g.placed = append(g.placed, intent)
	return g.nextOrderID, nil
}

func (g *fakeGateway) PollState(_ context.Context, _, orderID string) (*domain.OrderUpdate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pollErr != nil {
		err := g.pollErr
		g.pollErr = nil
		return nil, err
	}
	queue := g.polls[orderID]
	if len(queue) == 0 {
		return nil, nil
	}
	update := queue[0]
	g.polls[orderID] = queue[1:]
	return update, nil
}

func (g *fakeGateway) Cancel(_ context.Context, _, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelCalls[orderID]++
	return g.cancelErrs[orderID]
}

func (g *fakeGateway) ListOpenOrders(_ context.Context, _ string) ([]domain.OrderUpdate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open, g.listErr
}

func (g *fakeGateway) placedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.placed)
}

// scriptedStrategy pops one pre-planned intent batch per candle and records
// every update it is handed.
type scriptedStrategy struct {
	mu       sync.Mutex
	batches  [][]domain.OrderIntent
	cancelID string
	updates  []domain.OrderUpdate
}

func (s *scriptedStrategy) OnCandle(domain.Candle) []domain.OrderIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch
}

func (s *scriptedStrategy) CancelPreviousOrder(domain.Candle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelID == "" {
		return "", false
	}
	id := s.cancelID
	s.cancelID = ""
	return id, true
}

func (s *scriptedStrategy) OnOrderUpdate(update domain.OrderUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
}

func (s *scriptedStrategy) recorded() []domain.OrderUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OrderUpdate(nil), s.updates...)
}

func testEngine(gateway *fakeGateway) *Engine {
	return NewEngine(Config{
		AccountID:         "acc-1",
		OrderPollInterval: 5 * time.Millisecond,
		ShutdownTimeout:   time.Second,
	}, gateway, nil, nil, testLogger())
}

func testInstrument() domain.Instrument {
	return domain.Instrument{
		FIGI:              "BBG000000001",
		Ticker:            "SPBE",
		Exchange:          "SPB",
		MinPriceIncrement: decimal.RequireFromString("0.01"),
	}
}

func testConfigs() map[string]domain.TradeConfig {
	return map[string]domain.TradeConfig{
		"SPBE": {
			MaxBalance:     decimal.RequireFromString("50"),
			MaxTradeAmount: 10,
			PriceStep:      decimal.RequireFromString("0.01"),
			Commission:     decimal.RequireFromString("0.01"),
			Strategy:       domain.StrategyThreshold,
		},
	}
}

func TestRunNoInstruments(t *testing.T) {
	e := testEngine(newFakeGateway())
	err := e.Run(context.Background(), nil, nil, make(chan domain.Candle))
	require.ErrorIs(t, err, domain.ErrNoTradableInstruments)
}

func TestRunNoConfiguredInstruments(t *testing.T) {
	e := testEngine(newFakeGateway())
	err := e.Run(context.Background(), []domain.Instrument{testInstrument()},
		map[string]domain.TradeConfig{}, make(chan domain.Candle))
	require.ErrorIs(t, err, domain.ErrNoTradableInstruments)
}

func TestRunPlacesOrderFromCandle(t *testing.T) {
	gateway := newFakeGateway()
	e := testEngine(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	candles := make(chan domain.Candle, 1)
	candles <- domain.Candle{
		FIGI: "BBG000000001",
		Low:  decimal.RequireFromString("4.50"),
		High: decimal.RequireFromString("4.60"),
	}

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, []domain.Instrument{testInstrument()}, testConfigs(), candles) }()

	require.Eventually(t, func() bool { return gateway.placedCount() == 1 },
		time.Second, 5*time.Millisecond, "the candle must produce a placed buy order")

	cancel()
	require.NoError(t, <-done)

	intent := gateway.placed[0]
	assert.Equal(t, domain.SideBuy, intent.Side)
	assert.EqualValues(t, 10, intent.Quantity)
}

func TestShutdownCancelsOpenOrdersExactlyOnce(t *testing.T) {
	gateway := newFakeGateway()
	gateway.open = []domain.OrderUpdate{
		{OrderID: "o-1"}, {OrderID: "o-2"}, {OrderID: "o-3"},
	}
	gateway.cancelErrs["o-2"] = errors.New("broker unavailable")

	e := testEngine(gateway)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Run(ctx, []domain.Instrument{testInstrument()}, testConfigs(), make(chan domain.Candle))
	require.NoError(t, err)

	// A failed cancel is logged, not retried; a second shutdown is a no-op.
	e.shutdown()
	for _, id := range []string{"o-1", "o-2", "o-3"} {
		assert.Equal(t, 1, gateway.cancelCalls[id], "order %s must get exactly one cancel call", id)
	}
}

func TestWatchOrderStopsOnTerminal(t *testing.T) {
	gateway := newFakeGateway()
	intent := domain.OrderIntent{OrderID: "client-1", Side: domain.SideBuy, Quantity: 5}
	gateway.polls["broker-1"] = []*domain.OrderUpdate{
		nil, // nothing new on the first poll
		{
			Status:        domain.OrderStatusPartiallyFilled,
			LotsRequested: 5,
			LotsExecuted:  2,
			Stage:         &domain.ExecutionStage{TradeID: "t-1", Price: decimal.RequireFromString("4.51"), Quantity: 2},
		},
		{
			Status:        domain.OrderStatusFilled,
			LotsRequested: 5,
			LotsExecuted:  5,
			Stage:         &domain.ExecutionStage{TradeID: "t-2", Price: decimal.RequireFromString("4.51"), Quantity: 3},
		},
	}

	e := testEngine(gateway)
	strat := &scriptedStrategy{}

	done := make(chan struct{})
	go func() {
		e.watchOrder(context.Background(), "SPBE", strat, intent, "broker-1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop on terminal state")
	}

	updates := strat.recorded()
	require.Len(t, updates, 2)
	// The watch loop restores the client order id and requested side.
	assert.Equal(t, "client-1", updates[0].OrderID)
	assert.Equal(t, domain.SideBuy, updates[0].Side)
	assert.True(t, updates[1].Executed())
}

func TestWatchOrderStopsWhenOrderVanishes(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pollErr = domain.ErrOrderNotFound

	e := testEngine(gateway)
	done := make(chan struct{})
	go func() {
		e.watchOrder(context.Background(), "SPBE", &scriptedStrategy{},
			domain.OrderIntent{OrderID: "client-1", Side: domain.SideBuy}, "broker-1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop must stop when the broker does not know the order")
	}
}

func TestProcessCandleCancelsByBrokerID(t *testing.T) {
	gateway := newFakeGateway()
	e := testEngine(gateway)
	strat := &scriptedStrategy{
		batches: [][]domain.OrderIntent{
			{{OrderID: "client-1", FIGI: "BBG000000001", Side: domain.SideBuy, Quantity: 1}},
			nil,
		},
	}
	brokerIDs := make(map[string]string)
	log := e.log.WithField("ticker", "SPBE")
	ctx, cancel := context.WithCancel(context.Background())

	e.processCandle(ctx, testInstrument(), strat, domain.Candle{}, brokerIDs, log)
	require.Equal(t, "broker-1", brokerIDs["client-1"])

	// The strategy cancels by its own client id; the gateway must be
	// called with the broker's id.
	strat.mu.Lock()
	strat.cancelID = "client-1"
	strat.mu.Unlock()
	e.processCandle(ctx, testInstrument(), strat, domain.Candle{}, brokerIDs, log)

	gateway.mu.Lock()
	assert.Equal(t, 1, gateway.cancelCalls["broker-1"])
	assert.Zero(t, gateway.cancelCalls["client-1"])
	gateway.mu.Unlock()

	cancel()
	e.watchers.Wait()
}

func TestProcessCandlePlaceFailureIsContained(t *testing.T) {
	gateway := newFakeGateway()
	gateway.placeErr = errors.New("transport down")
	e := testEngine(gateway)
	strat := &scriptedStrategy{
		batches: [][]domain.OrderIntent{
			{{OrderID: "client-1", Side: domain.SideBuy, Quantity: 1}},
		},
	}

	assert.NotPanics(t, func() {
		e.processCandle(context.Background(), testInstrument(), strat, domain.Candle{},
			make(map[string]string), e.log.WithField("ticker", "SPBE"))
	})
	e.watchers.Wait()
	assert.Zero(t, gateway.placedCount())
}
