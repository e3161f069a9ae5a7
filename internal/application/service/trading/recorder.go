package trading

import (
	"context"

	domain "main/internal/domain/entity/trading"
	"main/internal/domain/interfaces"
)

// NoopRecorder discards all deal events.
type NoopRecorder struct{}

var _ interfaces.DealRecorder = NoopRecorder{}

func (NoopRecorder) RecordOrder(context.Context, string, domain.OrderIntent) error { return nil }
func (NoopRecorder) RecordFill(context.Context, string, domain.Side, domain.ExecutionStage) error {
	return nil
}
func (NoopRecorder) RecordCancel(context.Context, string, string) error { return nil }

// MultiRecorder fans one deal event out to several recorders, returning the
// first failure after trying all of them.
type MultiRecorder []interfaces.DealRecorder

var _ interfaces.DealRecorder = MultiRecorder{}

func (m MultiRecorder) RecordOrder(ctx context.Context, ticker string, intent domain.OrderIntent) error {
	var first error
	for _, r := range m {
		if err := r.RecordOrder(ctx, ticker, intent); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiRecorder) RecordFill(ctx context.Context, ticker string, side domain.Side, stage domain.ExecutionStage) error {
	var first error
	for _, r := range m {
		if err := r.RecordFill(ctx, ticker, side, stage); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiRecorder) RecordCancel(ctx context.Context, ticker, orderID string) error {
	var first error
	for _, r := range m {
		if err := r.RecordCancel(ctx, ticker, orderID); err != nil && first == nil {
			first = err
		}
	}
	return first
}
