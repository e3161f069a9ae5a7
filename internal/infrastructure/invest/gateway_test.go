package invest

import (
	"context"
	"io"
	"testing"

	domain "main/internal/domain/entity/trading"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrdersAPI struct {
	state    *pb.OrderState
	posted   []*investgo.PostOrderRequest
	stateErr error
}

func (f *fakeOrdersAPI) postOrder(req *investgo.PostOrderRequest) (string, error) {
	f.posted = append(f.posted, req)
	return "broker-1", nil
}

func (f *fakeOrdersAPI) orderState(_, _ string) (orderStateView, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.state, nil
}

func (f *fakeOrdersAPI) cancelOrder(_, _ string) error { return nil }

func (f *fakeOrdersAPI) openOrders(_ string) ([]orderStateView, error) {
	return []orderStateView{f.state}, nil
}

func testGateway(api ordersAPI) *Gateway {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Gateway{log: logger, api: api, seen: make(map[string]orderMark)}
}

func orderState(status pb.OrderExecutionReportStatus, executed int64, stages ...*pb.OrderStage) *pb.OrderState {
	return &pb.OrderState{
		OrderId:               "broker-1",
		Figi:                  "BBG000000001",
		Direction:             pb.OrderDirection_ORDER_DIRECTION_BUY,
		ExecutionReportStatus: status,
		LotsRequested:         5,
		LotsExecuted:          executed,
		Stages:                stages,
	}
}

func stage(tradeID string, qty int64) *pb.OrderStage {
	return &pb.OrderStage{
		TradeId:  tradeID,
		Quantity: qty,
		Price:    &pb.MoneyValue{Units: 4, Nano: 510000000},
	}
}

func TestPollStateDedupsUnchangedState(t *testing.T) {
	api := &fakeOrdersAPI{state: orderState(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_NEW, 0)}
	g := testGateway(api)
	ctx := context.Background()

	update, err := g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)
	require.NotNil(t, update, "the first poll always reports")
	assert.Equal(t, domain.OrderStatusNew, update.Status)

	update, err = g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)
	assert.Nil(t, update, "an unchanged state must not be re-reported")
}

func TestPollStateReportsStageOnce(t *testing.T) {
	api := &fakeOrdersAPI{state: orderState(
		pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_PARTIALLYFILL, 2, stage("t-1", 2))}
	g := testGateway(api)
	ctx := context.Background()

	update, err := g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)
	require.NotNil(t, update)
	require.NotNil(t, update.Stage)
	assert.Equal(t, "t-1", update.Stage.TradeID)
	assert.Equal(t, "4.51", update.Stage.Price.String())
	assert.EqualValues(t, 2, update.Stage.Quantity)

	// Same broker state on the next poll: nothing to report.
	update, err = g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)
	assert.Nil(t, update)

	// A later stage arrives; only the new one is handed out.
	api.state = orderState(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_FILL, 5,
		stage("t-1", 2), stage("t-2", 3))
	update, err = g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)
	require.NotNil(t, update)
	require.NotNil(t, update.Stage)
	assert.Equal(t, "t-2", update.Stage.TradeID)
	assert.True(t, update.Executed())
}

func TestPollStateStatusChangeWithoutStage(t *testing.T) {
	api := &fakeOrdersAPI{state: orderState(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_NEW, 0)}
	g := testGateway(api)
	ctx := context.Background()

	_, err := g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)

	// The order gets cancelled broker-side; no new stage, but the status
	// transition must still come through so the watch loop can stop.
	api.state = orderState(pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_CANCELLED, 0)
	update, err := g.PollState(ctx, "acc", "broker-1")
	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Equal(t, domain.OrderStatusCancelled, update.Status)
	assert.Nil(t, update.Stage)
	assert.True(t, update.Done())
}

func TestPlaceBuildsLimitOrder(t *testing.T) {
	api := &fakeOrdersAPI{}
	g := testGateway(api)

	orderID, err := g.Place(context.Background(), "acc", domain.OrderIntent{
		OrderID:  "client-1",
		FIGI:     "BBG000000001",
		Side:     domain.SideBuy,
		Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "broker-1", orderID)

	require.Len(t, api.posted, 1)
	req := api.posted[0]
	assert.Equal(t, "BBG000000001", req.InstrumentId)
	assert.Equal(t, pb.OrderType_ORDER_TYPE_LIMIT, req.OrderType)
	assert.Equal(t, pb.OrderDirection_ORDER_DIRECTION_BUY, req.Direction)
	assert.Equal(t, "client-1", req.OrderId)
	assert.Equal(t, "acc", req.AccountId)
}

func TestPlaceCancelledContext(t *testing.T) {
	g := testGateway(&fakeOrdersAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Place(ctx, "acc", domain.OrderIntent{})
	require.ErrorIs(t, err, context.Canceled)
}
