package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/models"
)

// mockExecutor records fills passed through the consumer.
type mockExecutor struct {
	fills []appliedFill
	err   error
}

type appliedFill struct {
	portfolioID int
	ticker      string
	side        string
	quantity    decimal.Decimal
	price       decimal.Decimal
	executedAt  time.Time
	orderID     string
}

func (m *mockExecutor) ExecuteFill(ctx context.Context, portfolioID int, ticker, side string, quantity, price decimal.Decimal, executedAt time.Time, orderID string) (*engine.TradeResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.fills = append(m.fills, appliedFill{portfolioID, ticker, side, quantity, price, executedAt, orderID})
	return &engine.TradeResult{
		Ticker:         ticker,
		Side:           side,
		Quantity:       quantity,
		ExecutionPrice: price,
		Transaction:    &models.Transaction{TransactionDate: executedAt},
	}, nil
}

type mockLookup struct {
	existing map[string]bool
}

func (m *mockLookup) TransactionExistsByOrderID(orderID string) (bool, error) {
	return m.existing[orderID], nil
}

func newTestConsumer(executor *mockExecutor, lookup *mockLookup) *FillsConsumer {
	return &FillsConsumer{
		executor: executor,
		lookup:   lookup,
		log:      zerolog.Nop(),
	}
}

func fillMessage(t *testing.T, event models.FillEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Ticker), Value: data}
}

func TestFillsConsumerProcessMessage(t *testing.T) {
	ctx := context.Background()

	validEvent := func() models.FillEvent {
		executedAt := "2025-03-10T14:30:00Z"
		return models.FillEvent{
			EventType:   models.EventTypeFillReported,
			OrderID:     "order-1",
			Source:      "broker",
			PortfolioID: 1,
			Ticker:      "AAPL",
			Side:        "BUY",
			Quantity:    "10",
			Price:       "151.25",
			ExecutedAt:  &executedAt,
		}
	}

	t.Run("applies a valid fill", func(t *testing.T) {
		executor := &mockExecutor{}
		c := newTestConsumer(executor, &mockLookup{existing: map[string]bool{}})

		err := c.processMessage(ctx, fillMessage(t, validEvent()))
		require.NoError(t, err)

		require.Len(t, executor.fills, 1)
		fill := executor.fills[0]
		assert.Equal(t, 1, fill.portfolioID)
		assert.Equal(t, "AAPL", fill.ticker)
		assert.Equal(t, "buy", fill.side)
		assert.True(t, decimal.NewFromInt(10).Equal(fill.quantity))
		assert.Equal(t, "order-1", fill.orderID)
		assert.Equal(t, 2025, fill.executedAt.Year())
	})

	t.Run("skips duplicate order ids", func(t *testing.T) {
		executor := &mockExecutor{}
		c := newTestConsumer(executor, &mockLookup{existing: map[string]bool{"order-1": true}})

		err := c.processMessage(ctx, fillMessage(t, validEvent()))
		require.NoError(t, err)
		assert.Empty(t, executor.fills)
	})

	t.Run("ignores other event types", func(t *testing.T) {
		executor := &mockExecutor{}
		c := newTestConsumer(executor, &mockLookup{existing: map[string]bool{}})

		event := validEvent()
		event.EventType = "SOMETHING_ELSE"
		err := c.processMessage(ctx, fillMessage(t, event))
		require.NoError(t, err)
		assert.Empty(t, executor.fills)
	})

	t.Run("rejects missing order id", func(t *testing.T) {
		c := newTestConsumer(&mockExecutor{}, &mockLookup{existing: map[string]bool{}})

		event := validEvent()
		event.OrderID = ""
		err := c.processMessage(ctx, fillMessage(t, event))
		require.Error(t, err)
	})

	t.Run("rejects malformed quantity", func(t *testing.T) {
		c := newTestConsumer(&mockExecutor{}, &mockLookup{existing: map[string]bool{}})

		event := validEvent()
		event.Quantity = "ten"
		err := c.processMessage(ctx, fillMessage(t, event))
		require.Error(t, err)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		c := newTestConsumer(&mockExecutor{}, &mockLookup{existing: map[string]bool{}})

		err := c.processMessage(ctx, kafka.Message{Value: []byte("{not json")})
		require.Error(t, err)
	})

	t.Run("ledger rejection is logged, not retried", func(t *testing.T) {
		executor := &mockExecutor{err: engine.ErrInsufficientFunds}
		c := newTestConsumer(executor, &mockLookup{existing: map[string]bool{}})

		err := c.processMessage(ctx, fillMessage(t, validEvent()))
		assert.NoError(t, err)
	})

	t.Run("defaults executed_at when absent", func(t *testing.T) {
		executor := &mockExecutor{}
		c := newTestConsumer(executor, &mockLookup{existing: map[string]bool{}})

		event := validEvent()
		event.ExecutedAt = nil
		err := c.processMessage(ctx, fillMessage(t, event))
		require.NoError(t, err)

		require.Len(t, executor.fills, 1)
		assert.WithinDuration(t, time.Now(), executor.fills[0].executedAt, time.Minute)
	})
}
