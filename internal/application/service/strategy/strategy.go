// Package strategy holds the per-instrument decision algorithms. A strategy
// owns the full mutable trading state of its instrument: inventory, balance
// and in-flight order bookkeeping.
package strategy

import (
	"fmt"

	trading "main/internal/domain/entity/trading"

	"github.com/sirupsen/logrus"
)

// Strategy is the capability set required from a decision algorithm.
// One instance serves exactly one instrument.
type Strategy interface {
	// OnCandle computes zero or more limit order intents for the candle.
	// Intents are consumed eagerly by the caller, in order.
	OnCandle(candle trading.Candle) []trading.OrderIntent

	// CancelPreviousOrder returns the id of an open order worth cancelling
	// because price moved against it beyond the configured drift. At most
	// one candidate per call.
	CancelPreviousOrder(candle trading.Candle) (orderID string, ok bool)

	// OnOrderUpdate reconciles a broker-side order state change back into
	// the strategy state. Duplicate stages are discarded, updates whose
	// side cannot be determined are dropped with a warning.
	OnOrderUpdate(update trading.OrderUpdate)
}

// New builds the configured strategy for an instrument. An unknown kind is a
// configuration error, not a transient one.
func New(instrument trading.Instrument, cfg trading.TradeConfig, logger *logrus.Logger) (Strategy, error) {
	switch cfg.Strategy {
	case trading.StrategyThreshold:
		return NewThreshold(instrument, cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", trading.ErrNoStrategy, cfg.Strategy)
	}
}
