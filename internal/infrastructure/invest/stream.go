package invest

import (
	"context"
	"fmt"

	domain "main/internal/domain/entity/trading"
	"main/internal/domain/quotation"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const streamBuffer = 64

// Stream adapts the broker market data stream to the engine's candle feed.
type Stream struct {
	ctx    context.Context
	log    *logrus.Logger
	client *investgo.MarketDataStreamClient
	stream *investgo.MarketDataStream
	in     <-chan *pb.Candle
	out    chan domain.Candle
}

func NewStream(ctx context.Context, client *investgo.Client, logger *logrus.Logger) *Stream {
	return &Stream{
		ctx:    ctx,
		log:    logger,
		client: client.NewMarketDataStreamClient(),
		out:    make(chan domain.Candle, streamBuffer),
	}
}

// Subscribe opens the stream and registers the candle subscription for the
// given instruments. Called once before Listen.
func (s *Stream) Subscribe(figis []string, intervalSeconds int64) (<-chan domain.Candle, error) {
	stream, err := s.client.MarketDataStream()
	if err != nil {
		return nil, fmt.Errorf("create market data stream: %w", err)
	}
	s.stream = stream

	in, err := stream.SubscribeCandle(figis, intervalOf(intervalSeconds), true, nil)
	if err != nil {
		stream.Stop()
		return nil, fmt.Errorf("subscribe candles: %w", err)
	}
	s.in = in
	return s.out, nil
}

// Listen pumps broker candles into the engine feed until the stream ends,
// Stop is called or the context is done.
func (s *Stream) Listen() error {
	group, ctx := errgroup.WithContext(s.ctx)
	group.Go(func() error {
		return s.stream.Listen()
	})
	group.Go(func() error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case candle, ok := <-s.in:
				if !ok {
					return nil
				}
				if candle == nil {
					continue
				}
				select {
				case s.out <- convertCandle(candle):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})
	return group.Wait()
}

func (s *Stream) Stop() {
	if s.stream != nil {
		s.stream.Stop()
	}
}

func convertCandle(msg *pb.Candle) domain.Candle {
	return domain.Candle{
		FIGI:       msg.GetFigi(),
		Open:       quotation.ToDecimal(msg.GetOpen()),
		High:       quotation.ToDecimal(msg.GetHigh()),
		Low:        quotation.ToDecimal(msg.GetLow()),
		Close:      quotation.ToDecimal(msg.GetClose()),
		VolumeLots: msg.GetVolume(),
		Time:       msg.GetTime().AsTime(),
	}
}

func intervalOf(seconds int64) pb.SubscriptionInterval {
	switch seconds {
	case 300:
		return pb.SubscriptionInterval_SUBSCRIPTION_INTERVAL_FIVE_MINUTES
	default:
		return pb.SubscriptionInterval_SUBSCRIPTION_INTERVAL_ONE_MINUTE
	}
}
