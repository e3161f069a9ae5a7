package trading

import (
	"github.com/shopspring/decimal"
)

// Instrument is immutable reference data for a tradable share.
// It is owned by the external instrument catalog and never mutated here.
type Instrument struct {
	FIGI              string
	UID               string
	Ticker            string
	ClassCode         string
	Exchange          string
	Lot               int32
	MinPriceIncrement decimal.Decimal
}
