package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	domain "main/internal/domain/entity/trading"
)

const (
	defaultInvestEndpoint          = "https://invest-public-api.tinkoff.ru:443"
	defaultAppName                 = "trading-bot"
	defaultSharesFile              = "configs/shares.json"
	defaultOrderPollInterval       = time.Second
	defaultExchangeRefreshInterval = 5 * time.Minute
	defaultExchangeWaitInterval    = time.Minute
	defaultShutdownTimeout         = 10 * time.Second
	defaultDealsExchange           = "trading.deals"
)

// Config keeps the runtime configuration for the bot.
type Config struct {
	Invest   InvestConfig
	Trading  TradingConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
}

// InvestConfig holds broker API connection settings.
type InvestConfig struct {
	Token         string
	Endpoint      string
	AppName       string
	SkipTLSVerify bool
	Sandbox       bool
	AccountID     string
}

// TradingConfig holds engine timing settings and the per-share strategy file.
type TradingConfig struct {
	SharesFile              string
	OrderPollInterval       time.Duration
	ExchangeRefreshInterval time.Duration
	ExchangeWaitInterval    time.Duration
	ShutdownTimeout         time.Duration
}

// PostgresConfig stores database connection parameters. The deal journal is
// disabled when DSN is empty.
type PostgresConfig struct {
	DSN string
}

// RabbitMQConfig stores deal event publishing parameters. Publishing is
// disabled when URL is empty.
type RabbitMQConfig struct {
	URL           string
	DealsExchange string
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("INVEST_TOKEN")
	if token == "" {
		return nil, errors.New("INVEST_TOKEN is required")
	}

	pollInterval, err := getDuration("ORDER_POLL_INTERVAL", defaultOrderPollInterval)
	if err != nil {
		return nil, fmt.Errorf("parse ORDER_POLL_INTERVAL: %w", err)
	}
	refreshInterval, err := getDuration("EXCHANGE_REFRESH_INTERVAL", defaultExchangeRefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("parse EXCHANGE_REFRESH_INTERVAL: %w", err)
	}
	waitInterval, err := getDuration("EXCHANGE_WAIT_INTERVAL", defaultExchangeWaitInterval)
	if err != nil {
		return nil, fmt.Errorf("parse EXCHANGE_WAIT_INTERVAL: %w", err)
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
	}

	sandbox, err := getBool("INVEST_SANDBOX", false)
	if err != nil {
		return nil, fmt.Errorf("parse INVEST_SANDBOX: %w", err)
	}
	skipVerify, err := getBool("INVEST_INSECURE_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("parse INVEST_INSECURE_SKIP_VERIFY: %w", err)
	}

	return &Config{
		Invest: InvestConfig{
			Token:         token,
			Endpoint:      getString("INVEST_ENDPOINT", defaultInvestEndpoint),
			AppName:       getString("INVEST_APP_NAME", defaultAppName),
			SkipTLSVerify: skipVerify,
			Sandbox:       sandbox,
			AccountID:     os.Getenv("INVEST_ACCOUNT_ID"),
		},
		Trading: TradingConfig{
			SharesFile:              getString("SHARES_FILE", defaultSharesFile),
			OrderPollInterval:       pollInterval,
			ExchangeRefreshInterval: refreshInterval,
			ExchangeWaitInterval:    waitInterval,
			ShutdownTimeout:         shutdownTimeout,
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:           os.Getenv("RABBITMQ_URL"),
			DealsExchange: getString("RABBITMQ_DEALS_EXCHANGE", defaultDealsExchange),
		},
	}, nil
}

// LoadShares reads the ticker to strategy settings mapping from a JSON file
// and validates each entry.
func LoadShares(path string) (map[string]domain.TradeConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read shares file: %w", err)
	}

	shares := make(map[string]domain.TradeConfig)
	if err := json.Unmarshal(data, &shares); err != nil {
		return nil, fmt.Errorf("parse shares file: %w", err)
	}
	if len(shares) == 0 {
		return nil, errors.New("shares file is empty")
	}

	for ticker, cfg := range shares {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("share %s: %w", ticker, err)
		}
		shares[ticker] = cfg
	}
	return shares, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("convert %s value %q to bool: %w", key, value, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to duration: %w", key, value, err)
	}
	return parsed, nil
}
