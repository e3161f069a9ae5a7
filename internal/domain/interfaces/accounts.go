package interfaces

import "context"

// Account is a broker account eligible for trading.
type Account struct {
	ID   string
	Name string
}

// AccountProvider lists accounts with full trade access.
type AccountProvider interface {
	TradingAccounts(ctx context.Context) ([]Account, error)
}
