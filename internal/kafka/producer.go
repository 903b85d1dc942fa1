package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/models"
)

// Producer publishes trade events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTradeExecuted publishes an event for a committed trade
func (p *Producer) PublishTradeExecuted(ctx context.Context, portfolioID int, result *engine.TradeResult) error {
	event := models.TradeExecutedEvent{
		EventID:     uuid.NewString(),
		EventType:   models.EventTypeTradeExecuted,
		PortfolioID: portfolioID,
		Ticker:      result.Ticker,
		Side:        result.Side,
		Quantity:    result.Quantity.String(),
		Price:       result.ExecutionPrice.String(),
		ExecutedAt:  result.Transaction.TransactionDate,
		Timestamp:   time.Now(),
	}
	if result.RealizedPnl != nil {
		event.RealizedPnl = result.RealizedPnl.String()
	}
	return p.publish(ctx, result.Ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.TradeExecutedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
