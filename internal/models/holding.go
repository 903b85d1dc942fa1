package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents the position held in one ticker within a portfolio.
// There is at most one Holding per (portfolio_id, ticker); quantity is
// strictly positive — a holding that reaches zero is deleted, never kept.
type Holding struct {
	ID          int             `json:"id"`
	PortfolioID int             `json:"portfolio_id"`
	Ticker      string          `json:"ticker"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CostValue returns quantity × cost_basis, the book value of the position.
func (h *Holding) CostValue() decimal.Decimal {
	return h.Quantity.Mul(h.CostBasis)
}
