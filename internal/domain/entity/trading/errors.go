package trading

import "errors"

var (
	// ErrOrderNotFound distinguishes a broker-side "no such order" answer
	// from a transport failure.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoTradeConfig means an instrument has no trade configuration bound.
	ErrNoTradeConfig = errors.New("no trade config for instrument")

	// ErrNoStrategy means the configured strategy kind is unknown.
	ErrNoStrategy = errors.New("no such strategy")

	// ErrNoTradableInstruments is the only startup condition that terminates
	// the whole process.
	ErrNoTradableInstruments = errors.New("no tradable instruments")
)

// ConfigError marks per-instrument configuration failures that must not be
// retried. Transient startup failures stay retriable.
type ConfigError struct {
	Ticker string
	Err    error
}

func (e *ConfigError) Error() string {
	return "config error for " + e.Ticker + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a non-retriable configuration
// failure for an instrument.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
