package interfaces

import (
	trading "main/internal/domain/entity/trading"
)

// CandleSource produces the inbound candle stream. The engine only reads the
// channel; the underlying connection is owned by the caller that built the
// source.
type CandleSource interface {
	// Subscribe registers the figi set and returns the candle channel.
	// Called once before Listen.
	Subscribe(figis []string, intervalSeconds int64) (<-chan trading.Candle, error)
	// Listen blocks pumping the stream until it ends or Stop is called.
	Listen() error
	Stop()
}
