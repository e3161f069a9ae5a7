// Package invest adapts the T-Invest gRPC SDK to the engine's collaborator
// interfaces: orders, instruments, trading schedules, accounts and the
// candle stream.
package invest

import (
	"context"
	"fmt"
	"sync"

	domain "main/internal/domain/entity/trading"
	"main/internal/domain/quotation"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// orderStateView is the slice of broker order state the gateway reads. Both
// the GetOrderState response and the entries of GetOrders satisfy it.
type orderStateView interface {
	GetOrderId() string
	GetFigi() string
	GetDirection() pb.OrderDirection
	GetExecutionReportStatus() pb.OrderExecutionReportStatus
	GetLotsRequested() int64
	GetLotsExecuted() int64
	GetExecutedOrderPrice() *pb.MoneyValue
	GetStages() []*pb.OrderStage
}

// ordersAPI hides the live/sandbox split of the SDK.
type ordersAPI interface {
	postOrder(req *investgo.PostOrderRequest) (string, error)
	orderState(accountID, orderID string) (orderStateView, error)
	cancelOrder(accountID, orderID string) error
	openOrders(accountID string) ([]orderStateView, error)
}

// orderMark is what the gateway remembers about the last reported poll of
// one order, keyed by broker order id.
type orderMark struct {
	tradeID  string
	status   domain.OrderStatus
	executed int64
}

// Gateway places, polls and cancels orders against the broker. It owns the
// poll dedup bookkeeping: consecutive polls that bring nothing new come back
// as (nil, nil), and an execution stage is reported at most once.
type Gateway struct {
	log *logrus.Logger
	api ordersAPI

	mu   sync.Mutex
	seen map[string]orderMark
}

func NewGateway(client *investgo.Client, sandbox bool, logger *logrus.Logger) *Gateway {
	var api ordersAPI
	if sandbox {
		api = sandboxOrders{client: client.NewSandboxServiceClient()}
	} else {
		api = liveOrders{client: client.NewOrdersServiceClient()}
	}
	return &Gateway{log: logger, api: api, seen: make(map[string]orderMark)}
}

// Place submits a limit order and returns the broker-assigned order id.
func (g *Gateway) Place(ctx context.Context, accountID string, intent domain.OrderIntent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	orderID, err := g.api.postOrder(&investgo.PostOrderRequest{
		InstrumentId: intent.FIGI,
		Quantity:     intent.Quantity,
		Price:        quotation.FromDecimal(intent.Price),
		Direction:    directionOf(intent.Side),
		AccountId:    accountID,
		OrderType:    pb.OrderType_ORDER_TYPE_LIMIT,
		OrderId:      intent.OrderID,
	})
	if err != nil {
		return "", fmt.Errorf("post order: %w", err)
	}
	return orderID, nil
}

// PollState fetches the current order state. It returns (nil, nil) when the
// broker reported nothing the gateway has not already handed out for this
// order id.
func (g *Gateway) PollState(ctx context.Context, accountID, orderID string) (*domain.OrderUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := g.api.orderState(accountID, orderID)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order state: %w", err)
	}

	update := convertState(state)
	if !g.fresh(orderID, update) {
		return nil, nil
	}
	return update, nil
}

// Cancel withdraws an open order.
func (g *Gateway) Cancel(ctx context.Context, accountID, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.api.cancelOrder(accountID, orderID); err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

// ListOpenOrders returns the account's open orders, undeduplicated.
func (g *Gateway) ListOpenOrders(ctx context.Context, accountID string) ([]domain.OrderUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	states, err := g.api.openOrders(accountID)
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	out := make([]domain.OrderUpdate, 0, len(states))
	for _, state := range states {
		out = append(out, *convertState(state))
	}
	return out, nil
}

// fresh records the poll and reports whether it carries anything new. An
// already-reported stage is stripped so the caller never sees it twice.
func (g *Gateway) fresh(orderID string, update *domain.OrderUpdate) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	mark, known := g.seen[orderID]

	newStage := update.Stage != nil && update.Stage.TradeID != mark.tradeID
	changed := !known || newStage ||
		update.Status != mark.status ||
		update.LotsExecuted != mark.executed

	next := orderMark{
		tradeID:  mark.tradeID,
		status:   update.Status,
		executed: update.LotsExecuted,
	}
	if newStage {
		next.tradeID = update.Stage.TradeID
	} else {
		update.Stage = nil
	}

	if update.Done() {
		// Terminal orders are never polled again.
		delete(g.seen, orderID)
	} else {
		g.seen[orderID] = next
	}
	return changed
}

func convertState(state orderStateView) *domain.OrderUpdate {
	update := &domain.OrderUpdate{
		OrderID:       state.GetOrderId(),
		FIGI:          state.GetFigi(),
		Side:          sideOf(state.GetDirection()),
		Status:        statusOf(state.GetExecutionReportStatus()),
		LotsRequested: state.GetLotsRequested(),
		LotsExecuted:  state.GetLotsExecuted(),
		ExecutedPrice: quotation.MoneyToDecimal(state.GetExecutedOrderPrice()),
	}
	if stages := state.GetStages(); len(stages) > 0 {
		last := stages[len(stages)-1]
		update.Stage = &domain.ExecutionStage{
			TradeID:  last.GetTradeId(),
			Price:    quotation.MoneyToDecimal(last.GetPrice()),
			Quantity: last.GetQuantity(),
		}
	}
	return update
}

func directionOf(side domain.Side) pb.OrderDirection {
	switch side {
	case domain.SideBuy:
		return pb.OrderDirection_ORDER_DIRECTION_BUY
	case domain.SideSell:
		return pb.OrderDirection_ORDER_DIRECTION_SELL
	default:
		return pb.OrderDirection_ORDER_DIRECTION_UNSPECIFIED
	}
}

func sideOf(direction pb.OrderDirection) domain.Side {
	switch direction {
	case pb.OrderDirection_ORDER_DIRECTION_BUY:
		return domain.SideBuy
	case pb.OrderDirection_ORDER_DIRECTION_SELL:
		return domain.SideSell
	default:
		return domain.SideUnknown
	}
}

func statusOf(reportStatus pb.OrderExecutionReportStatus) domain.OrderStatus {
	switch reportStatus {
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_NEW:
		return domain.OrderStatusNew
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_PARTIALLYFILL:
		return domain.OrderStatusPartiallyFilled
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_FILL:
		return domain.OrderStatusFilled
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_CANCELLED:
		return domain.OrderStatusCancelled
	case pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_REJECTED:
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusUnspecified
	}
}
