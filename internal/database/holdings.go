package database

import (
	"database/sql"
	"fmt"

	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/models"
)

// GetHolding retrieves the holding for (portfolioID, ticker)
func (db *DB) GetHolding(portfolioID int, ticker string) (*models.Holding, error) {
	query := `
		SELECT id, portfolio_id, ticker, quantity, cost_basis, created_at, updated_at
		FROM holdings
		WHERE portfolio_id = $1 AND ticker = $2
	`
	var h models.Holding
	err := db.conn.QueryRow(query, portfolioID, ticker).Scan(
		&h.ID, &h.PortfolioID, &h.Ticker, &h.Quantity, &h.CostBasis, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoSuchHolding
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// ListHoldings retrieves all holdings of a portfolio ordered by ticker
func (db *DB) ListHoldings(portfolioID int) ([]*models.Holding, error) {
	query := `
		SELECT id, portfolio_id, ticker, quantity, cost_basis, created_at, updated_at
		FROM holdings
		WHERE portfolio_id = $1
		ORDER BY ticker
	`
	rows, err := db.conn.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Ticker, &h.Quantity, &h.CostBasis, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}
