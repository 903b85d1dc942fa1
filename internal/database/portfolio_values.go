package database

import (
	"fmt"
	"time"

	"portfoliotracker/internal/models"
)

// UpsertPortfolioValues stores a batch of daily value snapshots
// efficiently in one transaction
func (db *DB) UpsertPortfolioValues(values []*models.PortfolioValue) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO portfolio_values (
			portfolio_id, date, value, cash_balance, holdings_value,
			unrealized_pnl, realized_pnl, combined_pnl, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			value = EXCLUDED.value,
			cash_balance = EXCLUDED.cash_balance,
			holdings_value = EXCLUDED.holdings_value,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			realized_pnl = EXCLUDED.realized_pnl,
			combined_pnl = EXCLUDED.combined_pnl
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, v := range values {
		_, err := stmt.Exec(
			v.PortfolioID, v.Date, v.Value, v.CashBalance, v.HoldingsValue,
			v.UnrealizedPnl, v.RealizedPnl, v.CombinedPnl, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot for %s: %w", v.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPortfolioValues retrieves stored snapshots for [start, end] in
// ascending date order
func (db *DB) GetPortfolioValues(portfolioID int, start, end time.Time) ([]*models.PortfolioValue, error) {
	query := `
		SELECT id, portfolio_id, date, value, cash_balance, holdings_value,
		       unrealized_pnl, realized_pnl, combined_pnl, created_at
		FROM portfolio_values
		WHERE portfolio_id = $1 AND date >= $2::date AND date <= $3::date
		ORDER BY date
	`
	rows, err := db.conn.Query(query, portfolioID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio values: %w", err)
	}
	defer rows.Close()

	var values []*models.PortfolioValue
	for rows.Next() {
		var v models.PortfolioValue
		err := rows.Scan(
			&v.ID, &v.PortfolioID, &v.Date, &v.Value, &v.CashBalance, &v.HoldingsValue,
			&v.UnrealizedPnl, &v.RealizedPnl, &v.CombinedPnl, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio value: %w", err)
		}
		values = append(values, &v)
	}
	return values, rows.Err()
}
