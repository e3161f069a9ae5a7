package trading

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is an OHLCV record for one subscription interval of one instrument.
type Candle struct {
	FIGI       string
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	VolumeLots int64
	Time       time.Time
}
