package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "main/internal/domain/entity/trading"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DealEvent is the JSON payload published for every order lifecycle event.
type DealEvent struct {
	Event    string    `json:"event"`
	Ticker   string    `json:"ticker"`
	OrderID  string    `json:"orderId,omitempty"`
	TradeID  string    `json:"tradeId,omitempty"`
	Side     string    `json:"side,omitempty"`
	Price    string    `json:"price,omitempty"`
	Quantity int64     `json:"quantity,omitempty"`
	Time     time.Time `json:"time"`
}

const (
	eventOrderPlaced = "order_placed"
	eventFill        = "fill"
	eventCancel      = "cancel"
)

// Publisher fans out deal events to a durable RabbitMQ exchange so that
// downstream consumers (journals, dashboards) can follow the bot's activity.
// It implements interfaces.DealRecorder.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
	logger   *logrus.Logger
	mu       sync.Mutex
}

func NewPublisher(conn *amqp.Connection, exchange string, logger *logrus.Logger) (*Publisher, error) {
	if exchange == "" {
		return nil, errors.New("exchange name cannot be empty")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Errorf("close rabbitmq channel: %v", err)
	}
}

func (p *Publisher) RecordOrder(ctx context.Context, ticker string, intent domain.OrderIntent) error {
	return p.publish(ctx, DealEvent{
		Event:    eventOrderPlaced,
		Ticker:   ticker,
		OrderID:  intent.OrderID,
		Side:     intent.Side.String(),
		Price:    intent.Price.String(),
		Quantity: intent.Quantity,
	})
}

func (p *Publisher) RecordFill(ctx context.Context, ticker string, side domain.Side, stage domain.ExecutionStage) error {
	return p.publish(ctx, DealEvent{
		Event:    eventFill,
		Ticker:   ticker,
		TradeID:  stage.TradeID,
		Side:     side.String(),
		Price:    stage.Price.String(),
		Quantity: stage.Quantity,
	})
}

func (p *Publisher) RecordCancel(ctx context.Context, ticker string, orderID string) error {
	return p.publish(ctx, DealEvent{
		Event:   eventCancel,
		Ticker:  ticker,
		OrderID: orderID,
	})
}

func (p *Publisher) publish(ctx context.Context, event DealEvent) error {
	event.Time = time.Now().UTC()
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Time,
		Body:         body,
	})
}
