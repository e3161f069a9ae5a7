package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	appaccounts "main/internal/application/service/accounts"
	"main/internal/application/service/exchange"
	apptrading "main/internal/application/service/trading"
	"main/internal/config"
	domain "main/internal/domain/entity/trading"
	"main/internal/domain/interfaces"
	"main/internal/infrastructure/broker"
	"main/internal/infrastructure/invest"
	"main/internal/infrastructure/journal"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	shares, err := config.LoadShares(cfg.Trading.SharesFile)
	if err != nil {
		logger.Fatalf("failed to load shares config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	investCfg := investgo.Config{
		EndPoint:           cfg.Invest.Endpoint,
		Token:              cfg.Invest.Token,
		AppName:            cfg.Invest.AppName,
		InsecureSkipVerify: cfg.Invest.SkipTLSVerify,
	}
	client, err := investgo.NewClient(ctx, investCfg, logger)
	if err != nil {
		logger.Fatalf("create invest api client: %v", err)
	}
	defer func() {
		if stopErr := client.Stop(); stopErr != nil {
			logger.Errorf("stop invest api client: %v", stopErr)
		}
	}()

	accountService := appaccounts.NewService(invest.NewAccounts(client, cfg.Invest.Sandbox), logger)
	account, err := accountService.Choose(ctx, cfg.Invest.AccountID)
	if err != nil {
		logger.Fatalf("choose trading account: %v", err)
	}
	logger.Infof("trading on account %s", account.ID)

	tickers := make([]string, 0, len(shares))
	for ticker := range shares {
		tickers = append(tickers, ticker)
	}
	instruments, missing, err := invest.NewCatalog(client, logger).Resolve(ctx, tickers)
	if err != nil {
		logger.Fatalf("resolve instruments: %v", err)
	}
	for _, ticker := range missing {
		logger.Warnf("ticker %s is not available for trading, skipping", ticker)
	}
	if len(instruments) == 0 {
		logger.Fatal("no tradable instruments left")
	}

	board := exchange.NewBoard(invest.NewCalendar(client), cfg.Invest.Sandbox, logger)
	exchanges := make([]string, 0, len(instruments))
	seen := map[string]struct{}{}
	for _, instrument := range instruments {
		if _, ok := seen[instrument.Exchange]; ok {
			continue
		}
		seen[instrument.Exchange] = struct{}{}
		exchanges = append(exchanges, instrument.Exchange)
	}
	board.Refresh(ctx, exchanges)
	go board.Watch(ctx, exchanges, cfg.Trading.ExchangeRefreshInterval)

	recorder, closeRecorders, err := buildRecorder(cfg, logger)
	if err != nil {
		logger.Fatalf("init deal recorders: %v", err)
	}
	defer closeRecorders()

	gateway := invest.NewGateway(client, cfg.Invest.Sandbox, logger)
	engine := apptrading.NewEngine(apptrading.Config{
		AccountID:            account.ID,
		OrderPollInterval:    cfg.Trading.OrderPollInterval,
		ExchangeWaitInterval: cfg.Trading.ExchangeWaitInterval,
		ShutdownTimeout:      cfg.Trading.ShutdownTimeout,
	}, gateway, board, recorder, logger)

	candles, listen, stopStreams, err := openCandleStreams(ctx, client, instruments, shares, logger)
	if err != nil {
		logger.Fatalf("subscribe candles: %v", err)
	}
	defer stopStreams()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(listen)
	group.Go(func() error {
		return engine.Run(gctx, instruments, shares, candles)
	})
	group.Go(func() error {
		// Listen only honors the signal context; unblock it when the engine
		// or another stream fails.
		<-gctx.Done()
		stopStreams()
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("trader stopped with error: %v", err)
	}
	logger.Info("trader stopped")
}

// openCandleStreams opens one market data stream per distinct candle interval
// and fans the candles into a single channel for the engine.
func openCandleStreams(ctx context.Context, client *investgo.Client, instruments []domain.Instrument, shares map[string]domain.TradeConfig, logger *logrus.Logger) (<-chan domain.Candle, func() error, func(), error) {
	figisByInterval := make(map[int64][]string)
	for _, instrument := range instruments {
		interval := shares[instrument.Ticker].CandleIntervalSeconds
		figisByInterval[interval] = append(figisByInterval[interval], instrument.FIGI)
	}

	merged := make(chan domain.Candle, 64)
	streams := make([]*invest.Stream, 0, len(figisByInterval))
	var pumps sync.WaitGroup

	for interval, figis := range figisByInterval {
		stream := invest.NewStream(ctx, client, logger)
		candles, err := stream.Subscribe(figis, interval)
		if err != nil {
			for _, s := range streams {
				s.Stop()
			}
			return nil, nil, nil, err
		}
		streams = append(streams, stream)

		pumps.Add(1)
		go func(candles <-chan domain.Candle) {
			defer pumps.Done()
			for candle := range candles {
				select {
				case merged <- candle:
				case <-ctx.Done():
					return
				}
			}
		}(candles)
	}

	listen := func() error {
		group, _ := errgroup.WithContext(ctx)
		for _, stream := range streams {
			stream := stream
			group.Go(stream.Listen)
		}
		err := group.Wait()
		pumps.Wait()
		close(merged)
		return err
	}
	stop := func() {
		for _, stream := range streams {
			stream.Stop()
		}
	}
	return merged, listen, stop, nil
}

// buildRecorder assembles the optional deal sinks: a PostgreSQL journal and a
// RabbitMQ fanout publisher, both disabled unless configured.
func buildRecorder(cfg *config.Config, logger *logrus.Logger) (interfaces.DealRecorder, func(), error) {
	var recorders []interfaces.DealRecorder
	var closers []func()

	if cfg.Postgres.DSN != "" {
		deals, err := journal.New(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		recorders = append(recorders, deals)
		closers = append(closers, func() {
			if err := deals.Close(); err != nil {
				logger.Errorf("close deal journal: %v", err)
			}
		})
		logger.Info("deal journal enabled")
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		pub, err := broker.NewPublisher(conn, cfg.RabbitMQ.DealsExchange, logger)
		if err != nil {
			conn.Close()
			closeAll(closers)
			return nil, nil, err
		}
		recorders = append(recorders, pub)
		closers = append(closers, func() {
			pub.Close()
			conn.Close()
		})
		logger.Infof("deal events published to %s", cfg.RabbitMQ.DealsExchange)
	}

	switch len(recorders) {
	case 0:
		return apptrading.NoopRecorder{}, func() {}, nil
	case 1:
		return recorders[0], func() { closeAll(closers) }, nil
	default:
		return apptrading.MultiRecorder(recorders), func() { closeAll(closers) }, nil
	}
}

func closeAll(closers []func()) {
	for _, closeFn := range closers {
		closeFn()
	}
}
