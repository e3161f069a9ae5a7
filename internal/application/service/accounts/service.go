// Package accounts picks the broker account the engine trades on.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

var ErrNoTradingAccount = errors.New("no account with trade access")

type Service struct {
	log      *logrus.Logger
	provider interfaces.AccountProvider
}

func NewService(provider interfaces.AccountProvider, logger *logrus.Logger) *Service {
	return &Service{log: logger, provider: provider}
}

// Choose returns the account to trade on: the preferred id when configured,
// otherwise the first account with full trade access.
func (s *Service) Choose(ctx context.Context, preferred string) (interfaces.Account, error) {
	accounts, err := s.provider.TradingAccounts(ctx)
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("list trading accounts: %w", err)
	}
	if len(accounts) == 0 {
		return interfaces.Account{}, ErrNoTradingAccount
	}

	if preferred != "" {
		for _, account := range accounts {
			if account.ID == preferred {
				return account, nil
			}
		}
		return interfaces.Account{}, fmt.Errorf("account %s not found or has no trade access", preferred)
	}

	chosen := accounts[0]
	if len(accounts) > 1 {
		s.log.WithFields(logrus.Fields{
			"account_id": chosen.ID,
			"candidates": len(accounts),
		}).Warn("several trading accounts available, using the first one")
	}
	return chosen, nil
}
