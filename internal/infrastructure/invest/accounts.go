package invest

import (
	"context"
	"fmt"

	"main/internal/domain/interfaces"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
)

// Accounts lists broker accounts eligible for trading. In sandbox mode the
// sandbox accounts are used as-is; live accounts are filtered down to open
// ones with full trade access, excluding invest-box products.
type Accounts struct {
	users      *investgo.UsersServiceClient
	sandbox    *investgo.SandboxServiceClient
	useSandbox bool
}

func NewAccounts(client *investgo.Client, sandbox bool) *Accounts {
	return &Accounts{
		users:      client.NewUsersServiceClient(),
		sandbox:    client.NewSandboxServiceClient(),
		useSandbox: sandbox,
	}
}

func (a *Accounts) TradingAccounts(ctx context.Context) ([]interfaces.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.useSandbox {
		resp, err := a.sandbox.GetSandboxAccounts()
		if err != nil {
			return nil, fmt.Errorf("get sandbox accounts: %w", err)
		}
		out := make([]interfaces.Account, 0, len(resp.GetAccounts()))
		for _, account := range resp.GetAccounts() {
			out = append(out, interfaces.Account{ID: account.GetId(), Name: account.GetName()})
		}
		return out, nil
	}

	resp, err := a.users.GetAccounts(pb.AccountStatus_ACCOUNT_STATUS_OPEN.Enum())
	if err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	out := make([]interfaces.Account, 0, len(resp.GetAccounts()))
	for _, account := range resp.GetAccounts() {
		if account.GetAccessLevel() != pb.AccessLevel_ACCOUNT_ACCESS_LEVEL_FULL_ACCESS {
			continue
		}
		if account.GetType() == pb.AccountType_ACCOUNT_TYPE_INVEST_BOX {
			continue
		}
		out = append(out, interfaces.Account{ID: account.GetId(), Name: account.GetName()})
	}
	return out, nil
}
