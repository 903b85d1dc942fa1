package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type constants
const (
	TransactionTypeBuy  = "buy"
	TransactionTypeSell = "sell"
)

// Transaction is one executed buy or sell. Transactions are append-only:
// the log is the source of truth for historical replay and is never
// updated or deleted except when the owning portfolio is deleted.
type Transaction struct {
	ID              int              `json:"id"`
	PortfolioID     int              `json:"portfolio_id"`
	Ticker          string           `json:"ticker"`
	TransactionType string           `json:"transaction_type"`
	Price           decimal.Decimal  `json:"price"`
	Quantity        decimal.Decimal  `json:"quantity"`
	RealizedPnl     *decimal.Decimal `json:"realized_pnl,omitempty"`
	ExternalOrderID string           `json:"external_order_id,omitempty"`
	TransactionDate time.Time        `json:"transaction_date"`
	CreatedAt       time.Time        `json:"created_at"`
}
