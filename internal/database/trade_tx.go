package database

import (
	"fmt"
	"time"

	"portfoliotracker/internal/engine"
)

// ApplyTrade commits a trade's mutations as a single SQL transaction:
// cash update, holding upsert or delete, transaction append, and value
// snapshot invalidation. The portfolio row is locked first so two
// trades against the same portfolio serialize at the commit boundary.
// On any failure the deferred rollback restores pre-trade state.
func (db *DB) ApplyTrade(m *engine.TradeMutation) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var locked int
	err = tx.QueryRow(`SELECT id FROM portfolios WHERE id = $1 FOR UPDATE`, m.PortfolioID).Scan(&locked)
	if err != nil {
		return fmt.Errorf("failed to lock portfolio: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE portfolios SET cash_balance = $2, updated_at = $3 WHERE id = $1`,
		m.PortfolioID, m.NewCashBalance, now,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash balance: %w", err)
	}

	if m.Holding.Delete {
		_, err = tx.Exec(
			`DELETE FROM holdings WHERE portfolio_id = $1 AND ticker = $2`,
			m.PortfolioID, m.Holding.Ticker,
		)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
	} else {
		_, err = tx.Exec(`
			INSERT INTO holdings (portfolio_id, ticker, quantity, cost_basis, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (portfolio_id, ticker) DO UPDATE SET
				quantity = EXCLUDED.quantity,
				cost_basis = EXCLUDED.cost_basis,
				updated_at = EXCLUDED.updated_at
		`, m.PortfolioID, m.Holding.Ticker, m.Holding.Quantity, m.Holding.CostBasis, now)
		if err != nil {
			return fmt.Errorf("failed to upsert holding: %w", err)
		}
	}

	t := m.Transaction
	var orderID any
	if t.ExternalOrderID != "" {
		orderID = t.ExternalOrderID
	}
	err = tx.QueryRow(`
		INSERT INTO transactions (
			portfolio_id, ticker, transaction_type, price, quantity,
			realized_pnl, external_order_id, transaction_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, t.PortfolioID, t.Ticker, t.TransactionType, t.Price, t.Quantity,
		t.RealizedPnl, orderID, t.TransactionDate, now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	t.CreatedAt = now

	// Snapshots from the trade date forward are stale now
	_, err = tx.Exec(
		`DELETE FROM portfolio_values WHERE portfolio_id = $1 AND date >= $2::date`,
		m.PortfolioID, t.TransactionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate value snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade: %w", err)
	}
	return nil
}
