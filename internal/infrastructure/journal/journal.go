package journal

import (
	"context"
	"fmt"
	"time"

	domain "main/internal/domain/entity/trading"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type EventType string

const (
	EventOrderPlaced EventType = "order_placed"
	EventFill        EventType = "fill"
	EventCancel      EventType = "cancel"
)

// DealModel is a single row in the deal journal. Fills reference the trade id
// reported by the exchange so redeliveries are visible when auditing.
type DealModel struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	Event     EventType       `gorm:"column:event;type:varchar(16);index"`
	Ticker    string          `gorm:"column:ticker;type:varchar(16);index"`
	OrderID   string          `gorm:"column:order_id;type:varchar(64);index"`
	TradeID   string          `gorm:"column:trade_id;type:varchar(64)"`
	Side      string          `gorm:"column:side;type:varchar(8)"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(18,9)"`
	Quantity  int64           `gorm:"column:quantity"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

func (d DealModel) TableName() string {
	return "deals"
}

// Journal persists order lifecycle events to PostgreSQL. It implements
// interfaces.DealRecorder.
type Journal struct {
	db *gorm.DB
}

func New(dsn string) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&DealModel{}); err != nil {
		return nil, fmt.Errorf("migrate deals: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) RecordOrder(ctx context.Context, ticker string, intent domain.OrderIntent) error {
	row := DealModel{
		Event:    EventOrderPlaced,
		Ticker:   ticker,
		OrderID:  intent.OrderID,
		Side:     intent.Side.String(),
		Price:    intent.Price,
		Quantity: intent.Quantity,
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

func (j *Journal) RecordFill(ctx context.Context, ticker string, side domain.Side, stage domain.ExecutionStage) error {
	row := DealModel{
		Event:    EventFill,
		Ticker:   ticker,
		TradeID:  stage.TradeID,
		Side:     side.String(),
		Price:    stage.Price,
		Quantity: stage.Quantity,
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

func (j *Journal) RecordCancel(ctx context.Context, ticker string, orderID string) error {
	row := DealModel{
		Event:   EventCancel,
		Ticker:  ticker,
		OrderID: orderID,
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
