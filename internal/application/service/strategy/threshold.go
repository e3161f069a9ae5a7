package strategy

import (
	"sync"

	trading "main/internal/domain/entity/trading"
	"main/internal/domain/quotation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// lastTrade remembers the last executed trade per side. Until the first
// trade happens the zero value acts as the "do not block initial orders"
// sentinel: an unset sell never blocks buying, an unset buy never blocks
// selling, and unset sides never trigger cancellations.
type lastTrade struct {
	price    decimal.Decimal
	quantity int64
	set      bool
}

// Threshold buys cheaper than the last sell and sells dearer than the last
// buy, one limit order per side at a time.
type Threshold struct {
	mu         sync.Mutex
	log        *logrus.Entry
	instrument trading.Instrument
	cfg        trading.TradeConfig

	lastBuy  lastTrade
	lastSell lastTrade

	// Lots committed to unfilled orders, per side.
	processingBuy  int64
	processingSell int64
	// Money reserved against in-flight buy orders.
	processingMoney decimal.Decimal
	// Lots currently owned.
	holding int64
	// Money not committed or already spent.
	availableBalance decimal.Decimal

	activeBuyOrderID  string
	activeSellOrderID string

	lastBuyTradeID  string
	lastSellTradeID string

	// Lots already reconciled per client order id. A terminal snapshot
	// reports the cumulative LotsExecuted, so stages booked on earlier polls
	// must be subtracted from it. Entries are kept so a late re-report of a
	// terminal snapshot stays a no-op.
	appliedLots map[string]int64
}

var _ Strategy = (*Threshold)(nil)

// NewThreshold creates the reference threshold strategy for one instrument.
func NewThreshold(instrument trading.Instrument, cfg trading.TradeConfig, logger *logrus.Logger) *Threshold {
	return &Threshold{
		log: logger.WithFields(logrus.Fields{
			"strategy": trading.StrategyThreshold,
			"ticker":   instrument.Ticker,
		}),
		instrument:       instrument,
		cfg:              cfg,
		availableBalance: cfg.MaxBalance,
		appliedLots:      make(map[string]int64),
	}
}

// OnCandle runs one decision cycle. Buy and sell are mutually exclusive per
// candle: after emitting a buy the sell check is skipped, so the strategy
// never trades against itself inside one candle.
func (s *Threshold) OnCandle(candle trading.Candle) []trading.OrderIntent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"holding":          s.holding,
		"balance":          s.availableBalance,
		"processing_buy":   s.processingBuy,
		"processing_sell":  s.processingSell,
		"processing_money": s.processingMoney,
	}).Debug("new candle")

	buyPrice := quotation.RoundToStep(candle.Low.Add(s.cfg.Commission), s.instrument.MinPriceIncrement)
	if !s.lastSell.set || buyPrice.Add(s.cfg.PriceStep).LessThan(s.lastSell.price) {
		if intent, ok := s.makeBuy(candle, buyPrice); ok {
			return []trading.OrderIntent{intent}
		}
	}

	sellPrice := quotation.RoundToStep(candle.High.Add(s.cfg.Commission), s.instrument.MinPriceIncrement)
	if !s.lastBuy.set || sellPrice.Sub(s.cfg.PriceStep).GreaterThan(s.lastBuy.price) {
		if intent, ok := s.makeSell(candle); ok {
			return []trading.OrderIntent{intent}
		}
	}

	return nil
}

// makeBuy reserves lots and money and emits a limit buy at the candle low.
// buyPrice includes the commission and is used for all budget math; the
// broker adds the real commission on top of the order price itself.
func (s *Threshold) makeBuy(candle trading.Candle, buyPrice decimal.Decimal) (trading.OrderIntent, bool) {
	lots := s.cfg.MaxTradeAmount - s.processingBuy - s.holding
	budget := s.availableBalance.Sub(s.processingMoney)
	for lots > 0 && buyPrice.Mul(decimal.NewFromInt(lots)).GreaterThan(budget) {
		lots--
	}
	if lots <= 0 {
		return trading.OrderIntent{}, false
	}

	s.processingBuy += lots
	s.processingMoney = s.processingMoney.Add(buyPrice.Mul(decimal.NewFromInt(lots)))
	intent := trading.OrderIntent{
		OrderID:  uuid.NewString(),
		FIGI:     s.instrument.FIGI,
		Side:     trading.SideBuy,
		Price:    candle.Low,
		Quantity: lots,
	}
	s.activeBuyOrderID = intent.OrderID
	s.log.WithFields(logrus.Fields{
		"order_id": intent.OrderID,
		"price":    intent.Price,
		"lots":     lots,
	}).Info("buy decision")
	return intent, true
}

// makeSell emits a limit sell of everything sellable at the candle high.
func (s *Threshold) makeSell(candle trading.Candle) (trading.OrderIntent, bool) {
	lots := s.holding - s.processingSell
	if lots <= 0 {
		return trading.OrderIntent{}, false
	}

	s.processingSell += lots
	intent := trading.OrderIntent{
		OrderID:  uuid.NewString(),
		FIGI:     s.instrument.FIGI,
		Side:     trading.SideSell,
		Price:    candle.High,
		Quantity: lots,
	}
	s.activeSellOrderID = intent.OrderID
	s.log.WithFields(logrus.Fields{
		"order_id": intent.OrderID,
		"price":    intent.Price,
		"lots":     lots,
	}).Info("sell decision")
	return intent, true
}

// CancelPreviousOrder picks the open order to cancel when the close price
// drifted against it by at least the configured percentage of the last trade
// price on that side.
func (s *Threshold) CancelPreviousOrder(candle trading.Candle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hundred := decimal.NewFromInt(100)
	if s.lastBuy.set && s.activeBuyOrderID != "" && s.lastBuy.price.GreaterThan(candle.Close) {
		maxDecrease := s.lastBuy.price.Div(hundred).Mul(s.cfg.CancelBuyOrderIfPriceGoesBelow)
		if s.lastBuy.price.Sub(candle.Close).GreaterThanOrEqual(maxDecrease) {
			return s.activeBuyOrderID, true
		}
	}
	if s.lastSell.set && s.activeSellOrderID != "" && candle.Close.GreaterThan(s.lastSell.price) {
		maxIncrease := s.lastSell.price.Div(hundred).Mul(s.cfg.CancelSellOrderIfPriceGoesAbove)
		if candle.Close.Sub(s.lastSell.price).GreaterThanOrEqual(maxIncrease) {
			return s.activeSellOrderID, true
		}
	}
	return "", false
}

// OnOrderUpdate applies one broker-side order state change. Each executed
// lot affects inventory and balance exactly once, whether it arrives as a
// stage, as the remainder of a cumulative terminal snapshot, or both.
func (s *Threshold) OnOrderUpdate(update trading.OrderUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	executed := update.Executed()
	if update.Stage == nil && !executed {
		return
	}

	side := s.resolveSide(update)
	if side == trading.SideUnknown {
		s.log.WithFields(logrus.Fields{
			"order_id": update.OrderID,
			"status":   update.Status,
		}).Warn("cannot resolve order side, dropping update")
		return
	}

	if executed {
		// The order is terminal, the side is free for a new order.
		if side == trading.SideSell {
			s.activeSellOrderID = ""
		} else {
			s.activeBuyOrderID = ""
		}
	}

	lastTradeID := s.lastBuyTradeID
	if side == trading.SideSell {
		lastTradeID = s.lastSellTradeID
	}
	if update.Stage != nil && update.Stage.TradeID == lastTradeID {
		// Already reconciled this stage on a previous poll.
		return
	}

	price := update.ExecutedPrice
	qty := update.LotsExecuted
	if update.Stage != nil {
		price = update.Stage.Price
		qty = update.Stage.Quantity
	} else {
		// The cumulative snapshot covers lots already booked through stages;
		// only the remainder is new.
		qty -= s.appliedLots[update.OrderID]
	}
	if qty <= 0 {
		return
	}
	s.appliedLots[update.OrderID] += qty

	amount := price.Mul(decimal.NewFromInt(qty))
	switch side {
	case trading.SideBuy:
		if update.Stage != nil {
			s.lastBuyTradeID = update.Stage.TradeID
		}
		s.holding += qty
		s.availableBalance = s.availableBalance.Sub(amount)
		s.processingBuy -= qty
		s.lastBuy = lastTrade{price: price, quantity: qty, set: true}
	case trading.SideSell:
		if update.Stage != nil {
			s.lastSellTradeID = update.Stage.TradeID
		}
		s.holding -= qty
		s.availableBalance = s.availableBalance.Add(amount)
		s.processingMoney = s.processingMoney.Sub(amount)
		s.processingSell -= qty
		s.lastSell = lastTrade{price: price, quantity: qty, set: true}
	}

	s.log.WithFields(logrus.Fields{
		"side":     side,
		"price":    price,
		"lots":     qty,
		"holding":  s.holding,
		"balance":  s.availableBalance,
		"executed": executed,
	}).Info("trade reconciled")
}

// resolveSide trusts the explicit direction first, then matches the order id
// against the open order per side. Anything else stays unknown and is never
// guessed.
func (s *Threshold) resolveSide(update trading.OrderUpdate) trading.Side {
	if update.Side == trading.SideBuy || update.Side == trading.SideSell {
		return update.Side
	}
	switch {
	case update.OrderID != "" && update.OrderID == s.activeBuyOrderID:
		return trading.SideBuy
	case update.OrderID != "" && update.OrderID == s.activeSellOrderID:
		return trading.SideSell
	default:
		return trading.SideUnknown
	}
}
