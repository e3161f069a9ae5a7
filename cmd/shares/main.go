// Command shares bootstraps a shares.json strategy file: it checks which of
// the requested tickers are actually tradable through the API and writes a
// configuration skeleton with conservative defaults for each of them.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"main/internal/config"
	domain "main/internal/domain/entity/trading"
	"main/internal/infrastructure/invest"

	"github.com/joho/godotenv"
	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultOutputFile = "configs/shares.json"

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	tickers := tickersFromArgs(os.Args[1:])
	if len(tickers) == 0 {
		logger.Fatal("usage: shares TICKER [TICKER...]")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	instruments, missing, err := invest.NewCatalog(client, logger).Resolve(ctx, tickers)
	if err != nil {
		logger.Fatalf("resolve instruments: %v", err)
	}
	for _, ticker := range missing {
		logger.Warnf("ticker %s is not tradable, skipped", ticker)
	}
	if len(instruments) == 0 {
		logger.Fatal("none of the requested tickers are tradable")
	}

	shares := make(map[string]domain.TradeConfig, len(instruments))
	for _, instrument := range instruments {
		shares[instrument.Ticker] = skeletonConfig(instrument)
		logger.WithFields(logrus.Fields{
			"ticker":              instrument.Ticker,
			"figi":                instrument.FIGI,
			"exchange":            instrument.Exchange,
			"lot":                 instrument.Lot,
			"min_price_increment": instrument.MinPriceIncrement,
		}).Info("share added")
	}

	output := envOrDefault("SHARES_OUTPUT_FILE", defaultOutputFile)
	if err := writeShares(output, shares); err != nil {
		logger.Fatalf("write shares file: %v", err)
	}
	logger.WithField("file", output).Info("shares skeleton written, review the limits before trading")
}

// skeletonConfig derives starting values from the instrument itself: the
// price step and commission default to the exchange increment so a freshly
// generated file never trades on sub-increment spreads, and the cancel
// drift starts at one percent so an open order survives ordinary ticks.
func skeletonConfig(instrument domain.Instrument) domain.TradeConfig {
	onePercent := decimal.NewFromInt(1)
	return domain.TradeConfig{
		CandleIntervalSeconds:           60,
		MaxBalance:                      decimal.NewFromInt(1000),
		MaxTradeAmount:                  1,
		PriceStep:                       instrument.MinPriceIncrement,
		Commission:                      instrument.MinPriceIncrement,
		CancelBuyOrderIfPriceGoesBelow:  onePercent,
		CancelSellOrderIfPriceGoesAbove: onePercent,
		Strategy:                        domain.StrategyThreshold,
	}
}

func writeShares(path string, shares map[string]domain.TradeConfig) error {
	data, err := json.MarshalIndent(shares, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func tickersFromArgs(args []string) []string {
	seen := make(map[string]struct{}, len(args))
	tickers := make([]string, 0, len(args))
	for _, arg := range args {
		ticker := strings.ToUpper(strings.TrimSpace(arg))
		if ticker == "" {
			continue
		}
		if _, ok := seen[ticker]; ok {
			continue
		}
		seen[ticker] = struct{}{}
		tickers = append(tickers, ticker)
	}
	return tickers
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
