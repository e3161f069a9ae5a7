package invest

import (
	"context"
	"fmt"
	"time"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
)

// Calendar answers exchange open/closed questions from the broker's trading
// schedules.
type Calendar struct {
	client *investgo.InstrumentsServiceClient
	now    func() time.Time
}

func NewCalendar(client *investgo.Client) *Calendar {
	return &Calendar{client: client.NewInstrumentsServiceClient(), now: time.Now}
}

// IsOpen reports whether the exchange trades right now.
func (c *Calendar) IsOpen(ctx context.Context, exchange string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := c.now()
	resp, err := c.client.TradingSchedules(exchange, now, now)
	if err != nil {
		return false, fmt.Errorf("trading schedules for %s: %w", exchange, err)
	}

	exchanges := resp.GetExchanges()
	if len(exchanges) == 0 || len(exchanges[0].GetDays()) == 0 {
		return false, nil
	}
	day := exchanges[0].GetDays()[0]
	if !day.GetIsTradingDay() {
		return false, nil
	}
	return now.After(day.GetStartTime().AsTime()) && now.Before(day.GetEndTime().AsTime()), nil
}
