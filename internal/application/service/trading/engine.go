// Package trading runs the core engine: it dispatches candles to
// per-instrument strategies, places the orders they decide on, watches those
// orders to completion and reconciles execution results back into the
// strategies.
package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"main/internal/application/service/exchange"
	"main/internal/application/service/strategy"
	domain "main/internal/domain/entity/trading"
	"main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config tunes the engine pacing.
type Config struct {
	AccountID string
	// OrderPollInterval is the delay between order state polls.
	OrderPollInterval time.Duration
	// ExchangeWaitInterval is how long an instrument loop sleeps while its
	// exchange is closed.
	ExchangeWaitInterval time.Duration
	// ShutdownTimeout bounds the best-effort order cleanup on shutdown.
	ShutdownTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.OrderPollInterval <= 0 {
		out.OrderPollInterval = time.Second
	}
	if out.ExchangeWaitInterval <= 0 {
		out.ExchangeWaitInterval = time.Minute
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = 10 * time.Second
	}
	return out
}

// Engine wires the dispatcher, the strategies and the order gateway together
// and owns the kill-switch semantics: once the run context is cancelled it
// stops accepting candles, stops all watch loops and cancels every open
// order exactly once, tolerating partial failure.
type Engine struct {
	log      *logrus.Logger
	cfg      Config
	gateway  interfaces.OrdersGateway
	board    *exchange.Board
	recorder interfaces.DealRecorder

	dispatcher *Dispatcher
	watchers   sync.WaitGroup
	cleanup    sync.Once
}

func NewEngine(cfg Config, gateway interfaces.OrdersGateway, board *exchange.Board, recorder interfaces.DealRecorder, logger *logrus.Logger) *Engine {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &Engine{
		log:        logger,
		cfg:        cfg.withDefaults(),
		gateway:    gateway,
		board:      board,
		recorder:   recorder,
		dispatcher: NewDispatcher(logger),
	}
}

// Run trades the given instruments on the candle stream until ctx is
// cancelled or the stream ends. configs maps ticker to its trade config.
// Instruments whose configuration is broken are skipped (fatal for that
// instrument only); zero startable instruments terminates the run.
func (e *Engine) Run(ctx context.Context, instruments []domain.Instrument, configs map[string]domain.TradeConfig, candles <-chan domain.Candle) error {
	if len(instruments) == 0 {
		return domain.ErrNoTradableInstruments
	}

	group, gctx := errgroup.WithContext(ctx)
	started := 0
	for _, instrument := range instruments {
		instrument := instrument
		strat, err := e.buildStrategy(instrument, configs)
		if err != nil {
			e.log.WithError(err).WithField("ticker", instrument.Ticker).Error("instrument disabled")
			continue
		}
		sub := e.dispatcher.Subscribe(instrument.FIGI)
		group.Go(func() error {
			e.tradeInstrument(gctx, instrument, strat, sub)
			return nil
		})
		started++
		e.log.WithFields(logrus.Fields{
			"ticker":   instrument.Ticker,
			"strategy": configs[instrument.Ticker].Strategy,
		}).Info("trading started")
	}
	if started == 0 {
		e.dispatcher.Close()
		return domain.ErrNoTradableInstruments
	}

	group.Go(func() error {
		defer e.dispatcher.Close()
		for {
			select {
			case <-gctx.Done():
				return nil
			case candle, ok := <-candles:
				if !ok {
					return nil
				}
				e.dispatcher.Dispatch(candle)
			}
		}
	})

	err := group.Wait()
	e.watchers.Wait()
	e.shutdown()
	return err
}

// buildStrategy binds the instrument to its configured strategy. Both a
// missing config and an unknown strategy kind are configuration-class
// failures, never retried.
func (e *Engine) buildStrategy(instrument domain.Instrument, configs map[string]domain.TradeConfig) (strategy.Strategy, error) {
	cfg, ok := configs[instrument.Ticker]
	if !ok {
		return nil, &domain.ConfigError{Ticker: instrument.Ticker, Err: domain.ErrNoTradeConfig}
	}
	strat, err := strategy.New(instrument, cfg, e.log)
	if err != nil {
		return nil, &domain.ConfigError{Ticker: instrument.Ticker, Err: err}
	}
	return strat, nil
}

// shutdown cancels all open orders, best effort, exactly once.
func (e *Engine) shutdown() {
	e.cleanup.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()

		open, err := e.gateway.ListOpenOrders(ctx, e.cfg.AccountID)
		if err != nil {
			e.log.WithError(err).Error("cannot list open orders for cleanup")
			return
		}
		for _, order := range open {
			if err := e.gateway.Cancel(ctx, e.cfg.AccountID, order.OrderID); err != nil {
				e.log.WithError(err).WithField("order_id", order.OrderID).Error("cancel on shutdown failed")
				continue
			}
			e.log.WithField("order_id", order.OrderID).Info("order cancelled on shutdown")
		}
	})
}

// tradeInstrument runs the candle loop for one instrument. A failed run is
// restarted once; configuration errors are not retried at all.
func (e *Engine) tradeInstrument(ctx context.Context, instrument domain.Instrument, strat strategy.Strategy, candles <-chan domain.Candle) {
	log := e.log.WithField("ticker", instrument.Ticker)
	for attempt := 0; attempt < 2; attempt++ {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("instrument loop panic: %v", r)
				}
			}()
			return e.instrumentLoop(ctx, instrument, strat, candles, log)
		}()
		if err == nil || ctx.Err() != nil {
			return
		}
		if domain.IsConfigError(err) {
			log.WithError(err).Error("instrument stopped, configuration error")
			return
		}
		log.WithError(err).Warn("instrument loop failed, retrying once")
	}
	log.Error("instrument loop failed twice, giving up")
}

func (e *Engine) instrumentLoop(ctx context.Context, instrument domain.Instrument, strat strategy.Strategy, candles <-chan domain.Candle, log *logrus.Entry) error {
	if err := e.waitForExchange(ctx, instrument.Exchange, log); err != nil {
		return nil // shutdown while waiting
	}

	// Client order id -> broker order id, for cancellations. Only this
	// goroutine touches it.
	brokerIDs := make(map[string]string)

	for {
		select {
		case <-ctx.Done():
			return nil
		case candle, ok := <-candles:
			if !ok {
				return nil
			}
			e.processCandle(ctx, instrument, strat, candle, brokerIDs, log)
		}
	}
}

// waitForExchange idles until the instrument's exchange opens or the kill
// switch trips.
func (e *Engine) waitForExchange(ctx context.Context, exch string, log *logrus.Entry) error {
	if e.board == nil || e.board.IsOpen(exch) {
		return nil
	}
	log.WithField("exchange", exch).Info("exchange closed, waiting")
	ticker := time.NewTicker(e.cfg.ExchangeWaitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if e.board.IsOpen(exch) {
				log.WithField("exchange", exch).Info("exchange open, resuming")
				return nil
			}
		}
	}
}

// processCandle runs one full decision cycle: cancel a drifted order if the
// strategy says so, then place whatever the strategy decides. Failures are
// contained to this candle; state is retried on the next natural trigger.
func (e *Engine) processCandle(ctx context.Context, instrument domain.Instrument, strat strategy.Strategy, candle domain.Candle, brokerIDs map[string]string, log *logrus.Entry) {
	// One broken candle must not take down the instrument loop, let alone
	// other instruments.
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("candle processing failed")
		}
	}()

	if cancelID, ok := strat.CancelPreviousOrder(candle); ok {
		brokerID, known := brokerIDs[cancelID]
		if !known {
			brokerID = cancelID
		}
		if err := e.gateway.Cancel(ctx, e.cfg.AccountID, brokerID); err != nil {
			log.WithError(err).WithField("order_id", brokerID).Error("cancel drifted order failed")
		} else {
			log.WithField("order_id", brokerID).Info("drifted order cancelled")
			if err := e.recorder.RecordCancel(ctx, instrument.Ticker, brokerID); err != nil {
				log.WithError(err).Warn("record cancel failed")
			}
		}
	}

	for _, intent := range strat.OnCandle(candle) {
		placedID, err := e.gateway.Place(ctx, e.cfg.AccountID, intent)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"side":  intent.Side,
				"price": intent.Price,
				"lots":  intent.Quantity,
			}).Error("place order failed")
			continue
		}
		brokerIDs[intent.OrderID] = placedID
		log.WithFields(logrus.Fields{
			"order_id": placedID,
			"side":     intent.Side,
			"price":    intent.Price,
			"lots":     intent.Quantity,
		}).Info("order placed")
		if err := e.recorder.RecordOrder(ctx, instrument.Ticker, intent); err != nil {
			log.WithError(err).Warn("record order failed")
		}

		e.watchers.Add(1)
		go func(intent domain.OrderIntent, placedID string) {
			defer e.watchers.Done()
			e.watchOrder(ctx, instrument.Ticker, strat, intent, placedID)
		}(intent, placedID)
	}
}
