package trading

import (
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side int8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderStatus mirrors the broker execution report status.
type OrderStatus int8

const (
	OrderStatusUnspecified OrderStatus = iota
	OrderStatusNew
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
)

// Terminal reports whether no further execution can happen for the order.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "new"
	case OrderStatusPartiallyFilled:
		return "partially_filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRejected:
		return "rejected"
	default:
		return "unspecified"
	}
}

// OrderIntent is a limit order decision produced by a strategy. The client
// order id is generated by the strategy so reconciliation can match updates
// back to the emitting side even when the broker omits the direction.
type OrderIntent struct {
	OrderID  string
	FIGI     string
	Side     Side
	Price    decimal.Decimal
	Quantity int64
}

// ExecutionStage is one partial-fill event of an order. Stages of the same
// order are strictly additive and identified by TradeID.
type ExecutionStage struct {
	TradeID  string
	Price    decimal.Decimal
	Quantity int64
}

// OrderUpdate is a snapshot of broker-side order state fed back into the
// owning strategy. Stage is nil when the poll brought nothing new.
type OrderUpdate struct {
	OrderID       string
	FIGI          string
	Side          Side
	Status        OrderStatus
	LotsRequested int64
	LotsExecuted  int64
	ExecutedPrice decimal.Decimal
	Stage         *ExecutionStage
}

// Executed reports whether the broker filled the full requested quantity.
func (u *OrderUpdate) Executed() bool {
	return u.LotsRequested > 0 && u.LotsExecuted == u.LotsRequested
}

// Done reports whether the watch loop may stop polling this order.
func (u *OrderUpdate) Done() bool {
	return u.Executed() || u.Status.Terminal()
}
