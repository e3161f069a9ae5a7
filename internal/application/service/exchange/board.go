// Package exchange tracks which exchanges are currently open for trading.
package exchange

import (
	"context"
	"sync"
	"time"

	"main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Board is a read-mostly map from exchange code to open/closed, refreshed by
// a single periodic task and read concurrently by the instrument loops.
// In sandbox mode every exchange reads as open.
type Board struct {
	log      *logrus.Logger
	calendar interfaces.ExchangeCalendar
	sandbox  bool

	mu       sync.RWMutex
	statuses map[string]bool
}

func NewBoard(calendar interfaces.ExchangeCalendar, sandbox bool, logger *logrus.Logger) *Board {
	return &Board{
		log:      logger,
		calendar: calendar,
		sandbox:  sandbox,
		statuses: make(map[string]bool),
	}
}

// IsOpen reports the last observed status of an exchange. An exchange that
// was never refreshed reads as closed.
func (b *Board) IsOpen(exchange string) bool {
	if b.sandbox {
		return true
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.statuses[exchange]
}

// Refresh queries the calendar once for every exchange. A failed lookup
// keeps the previous status.
func (b *Board) Refresh(ctx context.Context, exchanges []string) {
	if b.sandbox {
		return
	}
	for _, exchange := range exchanges {
		open, err := b.calendar.IsOpen(ctx, exchange)
		if err != nil {
			b.log.WithError(err).WithField("exchange", exchange).Warn("exchange status check failed")
			continue
		}
		b.mu.Lock()
		b.statuses[exchange] = open
		b.mu.Unlock()
		b.log.WithFields(logrus.Fields{"exchange": exchange, "open": open}).Info("exchange status updated")
	}
}

// Watch refreshes the board on the given interval until ctx is done.
func (b *Board) Watch(ctx context.Context, exchanges []string, interval time.Duration) {
	b.Refresh(ctx, exchanges)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Refresh(ctx, exchanges)
		}
	}
}
