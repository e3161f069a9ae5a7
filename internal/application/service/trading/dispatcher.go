package trading

import (
	"sync"
	"sync/atomic"

	domain "main/internal/domain/entity/trading"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 16

// Dispatcher routes each inbound candle to the single subscriber registered
// for its figi. Different instruments consume their channels concurrently;
// one instrument's channel preserves arrival order. A candle for an unknown
// figi is dropped and counted, never fatal. A full subscriber buffer also
// drops the candle so one slow instrument cannot delay the others.
type Dispatcher struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers map[string]chan domain.Candle
	closed      bool

	dropped atomic.Uint64
}

func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		log:         logger,
		subscribers: make(map[string]chan domain.Candle),
	}
}

// Subscribe registers the candle channel for a figi. Called once per
// instrument before the stream starts.
func (d *Dispatcher) Subscribe(figi string) <-chan domain.Candle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[figi]; ok {
		return ch
	}
	ch := make(chan domain.Candle, subscriberBuffer)
	d.subscribers[figi] = ch
	return ch
}

// Unsubscribe removes and closes the figi's channel. Removing a figi that
// was never registered, or twice, is a no-op.
func (d *Dispatcher) Unsubscribe(figi string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.subscribers[figi]
	if !ok {
		return
	}
	delete(d.subscribers, figi)
	close(ch)
}

// Dispatch delivers one candle to its subscriber without ever blocking the
// inbound stream.
func (d *Dispatcher) Dispatch(candle domain.Candle) {
	// The send stays under the read lock so a concurrent Unsubscribe/Close
	// cannot close the channel mid-send; it never blocks, so the lock is
	// held only briefly.
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	ch, ok := d.subscribers[candle.FIGI]
	if !ok {
		d.dropped.Add(1)
		d.log.WithField("figi", candle.FIGI).Warn("candle for unsubscribed instrument dropped")
		return
	}

	select {
	case ch <- candle:
	default:
		d.dropped.Add(1)
		d.log.WithField("figi", candle.FIGI).Warn("subscriber buffer full, candle dropped")
	}
}

// Dropped returns how many candles were discarded.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close closes every subscriber channel and turns Dispatch into a no-op.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for figi, ch := range d.subscribers {
		delete(d.subscribers, figi)
		close(ch)
	}
}
