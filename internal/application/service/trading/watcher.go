package trading

import (
	"context"
	"errors"
	"time"

	"main/internal/application/service/strategy"
	domain "main/internal/domain/entity/trading"

	"github.com/sirupsen/logrus"
)

// watchOrder polls one placed order until it reaches a terminal state or the
// kill switch trips, feeding every state change back into the owning
// strategy. Transient poll failures are logged and retried on the next tick;
// a broker-side "not found" ends the watch.
func (e *Engine) watchOrder(ctx context.Context, ticker string, strat strategy.Strategy, intent domain.OrderIntent, placedID string) {
	log := e.log.WithFields(logrus.Fields{
		"ticker":   ticker,
		"order_id": placedID,
		"side":     intent.Side,
	})

	tick := time.NewTicker(e.cfg.OrderPollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		update, err := e.gateway.PollState(ctx, e.cfg.AccountID, placedID)
		if errors.Is(err, domain.ErrOrderNotFound) {
			log.Warn("order not found, watch stopped")
			return
		}
		if err != nil {
			log.WithError(err).Warn("order state poll failed")
			continue
		}
		if update == nil {
			continue
		}

		// The broker may omit the direction and reports its own order id;
		// restore what the strategy knows this order as.
		update.OrderID = intent.OrderID
		if update.Side == domain.SideUnknown {
			update.Side = intent.Side
		}

		strat.OnOrderUpdate(*update)
		if update.Stage != nil {
			if err := e.recorder.RecordFill(ctx, ticker, update.Side, *update.Stage); err != nil {
				log.WithError(err).Warn("record fill failed")
			}
		}

		if update.Done() {
			log.WithField("status", update.Status).Info("order terminal, watch stopped")
			return
		}
	}
}
