package models

import "time"

// Event type constants
const (
	EventTypeTradeExecuted = "TRADE_EXECUTED"
	EventTypeFillReported  = "FILL_REPORTED"
)

// TradeExecutedEvent is published after a trade commits.
type TradeExecutedEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	PortfolioID int       `json:"portfolio_id"`
	Ticker      string    `json:"ticker"`
	Side        string    `json:"side"`
	Quantity    string    `json:"quantity"`
	Price       string    `json:"price"`
	RealizedPnl string    `json:"realized_pnl,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// FillEvent is an externally-executed fill reported by a broker feed.
// Decimal fields arrive as strings and are parsed by the consumer.
type FillEvent struct {
	EventType   string  `json:"event_type"`
	OrderID     string  `json:"order_id"`
	Source      string  `json:"source"`
	PortfolioID int     `json:"portfolio_id"`
	Ticker      string  `json:"ticker"`
	Side        string  `json:"side"`
	Quantity    string  `json:"quantity"`
	Price       string  `json:"price"`
	ExecutedAt  *string `json:"executed_at,omitempty"`
}
