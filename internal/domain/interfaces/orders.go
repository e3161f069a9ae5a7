package interfaces

import (
	"context"

	trading "main/internal/domain/entity/trading"
)

// OrdersGateway wraps order placement, state polling and cancellation against
// the external broker.
//
// PollState returns (nil, nil) when the broker reported nothing new since the
// previous poll for that order id; the gateway owns that dedup bookkeeping.
// A missing order is reported as trading.ErrOrderNotFound, distinguishable
// from transport failures.
type OrdersGateway interface {
	Place(ctx context.Context, accountID string, intent trading.OrderIntent) (orderID string, err error)
	PollState(ctx context.Context, accountID, orderID string) (*trading.OrderUpdate, error)
	Cancel(ctx context.Context, accountID, orderID string) error
	ListOpenOrders(ctx context.Context, accountID string) ([]trading.OrderUpdate, error)
}
