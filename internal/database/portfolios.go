package database

import (
	"database/sql"
	"fmt"
	"time"

	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/models"
)

// CreatePortfolio inserts a new portfolio
func (db *DB) CreatePortfolio(p *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (name, cash_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`
	now := time.Now()
	if err := db.conn.QueryRow(query, p.Name, p.CashBalance, now).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPortfolio retrieves a portfolio by ID
func (db *DB) GetPortfolio(id int) (*models.Portfolio, error) {
	query := `
		SELECT id, name, cash_balance, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`
	var p models.Portfolio
	err := db.conn.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.CashBalance, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}

// ListPortfolios retrieves all portfolios ordered by creation time
func (db *DB) ListPortfolios() ([]*models.Portfolio, error) {
	query := `
		SELECT id, name, cash_balance, created_at, updated_at
		FROM portfolios
		ORDER BY created_at
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.CashBalance, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}
	return portfolios, rows.Err()
}

// DeletePortfolio removes a portfolio; holdings, transactions and value
// snapshots go with it via ON DELETE CASCADE
func (db *DB) DeletePortfolio(id int) error {
	result, err := db.conn.Exec(`DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return engine.ErrNotFound
	}
	return nil
}
