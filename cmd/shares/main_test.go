package main

import (
	"testing"

	domain "main/internal/domain/entity/trading"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkeletonConfigDefaults(t *testing.T) {
	instrument := domain.Instrument{
		Ticker:            "SBER",
		MinPriceIncrement: decimal.RequireFromString("0.05"),
	}

	cfg := skeletonConfig(instrument)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.PriceStep.Equal(instrument.MinPriceIncrement))
	assert.True(t, cfg.Commission.Equal(instrument.MinPriceIncrement))
	assert.True(t, cfg.CancelBuyOrderIfPriceGoesBelow.IsPositive(),
		"a zero drift would cancel the open buy on any adverse tick")
	assert.True(t, cfg.CancelSellOrderIfPriceGoesAbove.IsPositive(),
		"a zero drift would cancel the open sell on any adverse tick")
}

func TestTickersFromArgs(t *testing.T) {
	tickers := tickersFromArgs([]string{" sber", "GAZP", "sber", "", "gazp "})
	assert.Equal(t, []string{"SBER", "GAZP"}, tickers)
}
