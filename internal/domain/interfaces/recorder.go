package interfaces

import (
	"context"

	trading "main/internal/domain/entity/trading"
)

// DealRecorder receives placed orders, fills and cancellations for
// journaling or event publication. Recording failures never affect trading;
// implementations report them and the engine only logs.
type DealRecorder interface {
	RecordOrder(ctx context.Context, ticker string, intent trading.OrderIntent) error
	RecordFill(ctx context.Context, ticker string, side trading.Side, stage trading.ExecutionStage) error
	RecordCancel(ctx context.Context, ticker, orderID string) error
}
