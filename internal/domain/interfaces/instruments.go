package interfaces

import (
	"context"

	trading "main/internal/domain/entity/trading"
)

// InstrumentCatalog resolves configured tickers into tradable instruments.
// Tickers the broker does not know come back in missing, not as an error.
type InstrumentCatalog interface {
	Resolve(ctx context.Context, tickers []string) (available []trading.Instrument, missing []string, err error)
}

// ExchangeCalendar answers whether an exchange is currently open for trading.
type ExchangeCalendar interface {
	IsOpen(ctx context.Context, exchange string) (bool, error)
}
