package invest

import (
	"context"
	"fmt"
	"sort"

	domain "main/internal/domain/entity/trading"
	"main/internal/domain/quotation"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
)

// Catalog resolves configured tickers against the broker share catalog.
type Catalog struct {
	log    *logrus.Logger
	client *investgo.InstrumentsServiceClient
}

func NewCatalog(client *investgo.Client, logger *logrus.Logger) *Catalog {
	return &Catalog{log: logger, client: client.NewInstrumentsServiceClient()}
}

// Resolve returns the tradable instruments for the requested tickers.
// Tickers the broker does not list come back in missing. Shares that exist
// but are closed for api trading, buying or selling are warned about and
// returned in neither list.
func (c *Catalog) Resolve(ctx context.Context, tickers []string) ([]domain.Instrument, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	resp, err := c.client.Shares(pb.InstrumentStatus_INSTRUMENT_STATUS_BASE)
	if err != nil {
		return nil, nil, fmt.Errorf("list shares: %w", err)
	}

	wanted := make(map[string]struct{}, len(tickers))
	for _, ticker := range tickers {
		wanted[ticker] = struct{}{}
	}

	available := make([]domain.Instrument, 0, len(tickers))
	for _, share := range resp.GetInstruments() {
		ticker := share.GetTicker()
		if _, ok := wanted[ticker]; !ok {
			continue
		}
		delete(wanted, ticker)

		switch {
		case !share.GetApiTradeAvailableFlag():
			c.log.WithField("ticker", ticker).Warn("share closed for api trading, skipped")
		case !share.GetBuyAvailableFlag():
			c.log.WithField("ticker", ticker).Warn("share closed for buying, skipped")
		case !share.GetSellAvailableFlag():
			c.log.WithField("ticker", ticker).Warn("share closed for selling, skipped")
		default:
			available = append(available, domain.Instrument{
				FIGI:              share.GetFigi(),
				UID:               share.GetUid(),
				Ticker:            ticker,
				ClassCode:         share.GetClassCode(),
				Exchange:          share.GetExchange(),
				Lot:               share.GetLot(),
				MinPriceIncrement: quotation.ToDecimal(share.GetMinPriceIncrement()),
			})
		}
	}

	missing := make([]string, 0, len(wanted))
	for ticker := range wanted {
		missing = append(missing, ticker)
	}
	sort.Strings(missing)
	return available, missing, nil
}
