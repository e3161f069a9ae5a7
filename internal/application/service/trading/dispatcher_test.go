package trading

import (
	"io"
	"testing"
	"time"

	domain "main/internal/domain/entity/trading"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func candleN(figi string, n int64) domain.Candle {
	return domain.Candle{FIGI: figi, VolumeLots: n}
}

func TestDispatcherPreservesPerInstrumentOrder(t *testing.T) {
	d := NewDispatcher(testLogger())
	sub := d.Subscribe("A")

	for i := int64(0); i < subscriberBuffer; i++ {
		d.Dispatch(candleN("A", i))
	}
	for i := int64(0); i < subscriberBuffer; i++ {
		candle := <-sub
		require.Equal(t, i, candle.VolumeLots, "candles must arrive in dispatch order")
	}
	assert.EqualValues(t, 0, d.Dropped())
}

func TestDispatcherSlowInstrumentDoesNotDelayOthers(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Subscribe("SLOW") // never consumed
	fast := d.Subscribe("FAST")

	// Saturate the slow instrument's buffer and then some.
	for i := int64(0); i < subscriberBuffer+5; i++ {
		d.Dispatch(candleN("SLOW", i))
	}
	d.Dispatch(candleN("FAST", 1))

	select {
	case candle := <-fast:
		assert.Equal(t, "FAST", candle.FIGI)
	case <-time.After(time.Second):
		t.Fatal("fast instrument candle was delayed by the slow one")
	}
	assert.EqualValues(t, 5, d.Dropped(), "overflowing candles are shed, not queued behind")
}

func TestDispatcherDropsUnknownInstrument(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Subscribe("A")

	d.Dispatch(candleN("B", 1))
	d.Dispatch(candleN("B", 2))
	assert.EqualValues(t, 2, d.Dropped())
}

func TestDispatcherUnsubscribeIdempotent(t *testing.T) {
	d := NewDispatcher(testLogger())
	sub := d.Subscribe("A")

	d.Unsubscribe("A")
	d.Unsubscribe("A") // duplicate removal must not panic
	d.Unsubscribe("never-registered")

	_, open := <-sub
	assert.False(t, open, "unsubscribe closes the channel")

	d.Dispatch(candleN("A", 1))
	assert.EqualValues(t, 1, d.Dropped())
}

func TestDispatcherClose(t *testing.T) {
	d := NewDispatcher(testLogger())
	sub := d.Subscribe("A")

	d.Close()
	d.Close()

	_, open := <-sub
	assert.False(t, open)

	// Dispatch after close is a silent no-op.
	d.Dispatch(candleN("A", 1))
	assert.EqualValues(t, 0, d.Dropped())
}
