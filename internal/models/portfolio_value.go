package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioValue is a precomputed daily valuation snapshot. It is a
// materialized cache over replay, not authoritative: rows from a trade's
// date forward are invalidated whenever a new transaction lands.
type PortfolioValue struct {
	ID            int             `json:"id"`
	PortfolioID   int             `json:"portfolio_id"`
	Date          time.Time       `json:"date"`
	Value         decimal.Decimal `json:"portfolio_value"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`
	CombinedPnl   decimal.Decimal `json:"combined_pnl"`
	CreatedAt     time.Time       `json:"created_at"`
}
