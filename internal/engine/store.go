package engine

import (
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
)

// Store is the ledger storage contract the engine runs against. The
// database package provides the Postgres implementation; tests use an
// in-memory fake.
type Store interface {
	// GetPortfolio returns the portfolio or ErrNotFound.
	GetPortfolio(id int) (*models.Portfolio, error)
	// GetHolding returns the holding for (portfolioID, ticker) or
	// ErrNoSuchHolding.
	GetHolding(portfolioID int, ticker string) (*models.Holding, error)
	// ListHoldings returns all holdings of a portfolio.
	ListHoldings(portfolioID int) ([]*models.Holding, error)
	// ListTransactions returns the portfolio's transaction log in
	// ascending transaction_date order.
	ListTransactions(portfolioID int) ([]*models.Transaction, error)
	// ApplyTrade commits a trade's mutations as one atomic unit: cash
	// update, holding upsert or delete, transaction append, snapshot
	// invalidation. On any failure nothing is persisted.
	ApplyTrade(m *TradeMutation) error
}

// HoldingChange describes the post-trade state of one holding.
type HoldingChange struct {
	Ticker    string
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
	// Delete removes the holding instead of upserting it (position
	// fully exited).
	Delete bool
}

// TradeMutation is the atomic unit of a trade: every field is applied
// in a single storage transaction or not at all.
type TradeMutation struct {
	PortfolioID    int
	NewCashBalance decimal.Decimal
	Holding        HoldingChange
	Transaction    *models.Transaction
}
