package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/models"
)

// TradeExecutor applies a validated fill to a portfolio.
type TradeExecutor interface {
	ExecuteFill(ctx context.Context, portfolioID int, ticker, side string, quantity, price decimal.Decimal, executedAt time.Time, orderID string) (*engine.TradeResult, error)
}

// FillLookup answers whether a fill was already recorded.
type FillLookup interface {
	TransactionExistsByOrderID(orderID string) (bool, error)
}

// FillsConsumer consumes externally-executed fills from a broker feed
// and applies them to the ledger through the trade engine. Fills are
// deduplicated by order ID so redelivered messages are harmless.
type FillsConsumer struct {
	reader   *kafka.Reader
	executor TradeExecutor
	lookup   FillLookup
	log      zerolog.Logger
}

// NewFillsConsumer creates a Kafka consumer for fill events
func NewFillsConsumer(brokers []string, topic, groupID string, executor TradeExecutor, lookup FillLookup, log zerolog.Logger) *FillsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &FillsConsumer{
		reader:   reader,
		executor: executor,
		lookup:   lookup,
		log:      log,
	}
}

// Start begins consuming messages until ctx is cancelled
func (c *FillsConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting fills consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("fills consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // context cancelled, normal shutdown
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing fill")
				// keep consuming; a bad fill must not wedge the feed
			}
		}
	}
}

func (c *FillsConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.FillEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal fill event: %w", err)
	}

	if event.EventType != models.EventTypeFillReported {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}
	if event.OrderID == "" {
		return fmt.Errorf("fill event missing order_id")
	}

	exists, err := c.lookup.TransactionExistsByOrderID(event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate fill: %w", err)
	}
	if exists {
		c.log.Debug().Str("order_id", event.OrderID).Msg("fill already recorded, skipping")
		return nil
	}

	quantity, err := decimal.NewFromString(event.Quantity)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", event.Quantity, err)
	}
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", event.Price, err)
	}

	executedAt := parseExecutedAt(event.ExecutedAt)
	side := strings.ToLower(event.Side)

	result, err := c.executor.ExecuteFill(ctx, event.PortfolioID, event.Ticker, side, quantity, price, executedAt, event.OrderID)
	if err != nil {
		// Funds or holding constraints mean the fill cannot be booked
		// against this portfolio; log it and move on rather than retry.
		if errors.Is(err, engine.ErrInsufficientFunds) || errors.Is(err, engine.ErrExceedsHolding) || errors.Is(err, engine.ErrNoSuchHolding) {
			c.log.Warn().Err(err).Str("order_id", event.OrderID).Msg("fill rejected by ledger rules")
			return nil
		}
		return fmt.Errorf("failed to apply fill %s: %w", event.OrderID, err)
	}

	c.log.Info().
		Str("order_id", event.OrderID).
		Str("ticker", result.Ticker).
		Str("side", result.Side).
		Str("quantity", result.Quantity.String()).
		Str("price", result.ExecutionPrice.String()).
		Msg("fill applied")
	return nil
}

func parseExecutedAt(raw *string) time.Time {
	if raw == nil || *raw == "" {
		return time.Now()
	}
	if t, err := time.Parse(time.RFC3339, *raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", *raw); err == nil {
		return t
	}
	return time.Now()
}

// Close closes the Kafka consumer
func (c *FillsConsumer) Close() error {
	return c.reader.Close()
}
