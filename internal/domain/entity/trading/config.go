package trading

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyKind selects the decision algorithm for an instrument.
type StrategyKind string

const (
	// StrategyThreshold is the "buy lower than we sold, sell higher than we
	// bought" reference strategy.
	StrategyThreshold StrategyKind = "threshold"
)

// TradeConfig is the per-ticker static trading configuration. It is immutable
// for the lifetime of a run.
type TradeConfig struct {
	// CandleIntervalSeconds selects the subscription interval (60 = 1 min).
	CandleIntervalSeconds int64 `json:"candle_interval_seconds"`
	// MaxBalance is the most money the strategy may commit to this ticker.
	MaxBalance decimal.Decimal `json:"max_balance"`
	// MaxTradeAmount caps owned plus in-flight-buy lots.
	MaxTradeAmount int64 `json:"max_trade_amount"`
	// PriceStep is the minimum high/low spread that justifies an order.
	// Distinct from the exchange MinPriceIncrement used for rounding.
	PriceStep decimal.Decimal `json:"price_step"`
	// Commission per lot, embedded into decision prices.
	Commission decimal.Decimal `json:"commission"`
	// CancelBuyOrderIfPriceGoesBelow is a percentage drop from the last buy
	// trade price at which an open buy order is cancelled.
	CancelBuyOrderIfPriceGoesBelow decimal.Decimal `json:"cancel_buy_order_if_price_goes_below"`
	// CancelSellOrderIfPriceGoesAbove is the symmetric sell-side percentage.
	CancelSellOrderIfPriceGoesAbove decimal.Decimal `json:"cancel_sell_order_if_price_goes_above"`
	// Strategy names the decision algorithm.
	Strategy StrategyKind `json:"strategy"`
}

// Validate rejects configurations the engine cannot trade with.
func (c *TradeConfig) Validate() error {
	if c.MaxBalance.Sign() <= 0 {
		return fmt.Errorf("max_balance must be positive, got %s", c.MaxBalance)
	}
	if c.MaxTradeAmount <= 0 {
		return fmt.Errorf("max_trade_amount must be positive, got %d", c.MaxTradeAmount)
	}
	if c.PriceStep.Sign() < 0 {
		return fmt.Errorf("price_step cannot be negative, got %s", c.PriceStep)
	}
	if c.Commission.Sign() < 0 {
		return fmt.Errorf("commission cannot be negative, got %s", c.Commission)
	}
	if c.Strategy == "" {
		c.Strategy = StrategyThreshold
	}
	if c.CandleIntervalSeconds == 0 {
		c.CandleIntervalSeconds = 60
	}
	return nil
}
