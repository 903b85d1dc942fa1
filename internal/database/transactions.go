package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
)

// ListTransactions retrieves a portfolio's transaction log in ascending
// date order, the order replay consumes it in
func (db *DB) ListTransactions(portfolioID int) ([]*models.Transaction, error) {
	query := `
		SELECT id, portfolio_id, ticker, transaction_type, price, quantity,
		       realized_pnl, external_order_id, transaction_date, created_at
		FROM transactions
		WHERE portfolio_id = $1
		ORDER BY transaction_date, id
	`
	return db.scanTransactions(db.conn.Query(query, portfolioID))
}

// ListTransactionsByDateRange retrieves transactions within [start, end]
func (db *DB) ListTransactionsByDateRange(portfolioID int, start, end time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT id, portfolio_id, ticker, transaction_type, price, quantity,
		       realized_pnl, external_order_id, transaction_date, created_at
		FROM transactions
		WHERE portfolio_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		ORDER BY transaction_date, id
	`
	return db.scanTransactions(db.conn.Query(query, portfolioID, start, end))
}

// TransactionExistsByOrderID reports whether a fill with this external
// order ID was already recorded. Used for consumer idempotency.
func (db *DB) TransactionExistsByOrderID(orderID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE external_order_id = $1)`
	var exists bool
	if err := db.conn.QueryRow(query, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for duplicate fill: %w", err)
	}
	return exists, nil
}

func (db *DB) scanTransactions(rows *sql.Rows, err error) ([]*models.Transaction, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var realizedPnl sql.NullString
		var orderID sql.NullString

		err := rows.Scan(
			&t.ID, &t.PortfolioID, &t.Ticker, &t.TransactionType, &t.Price, &t.Quantity,
			&realizedPnl, &orderID, &t.TransactionDate, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if realizedPnl.Valid {
			pnl, err := decimal.NewFromString(realizedPnl.String)
			if err != nil {
				return nil, fmt.Errorf("invalid realized_pnl %q: %w", realizedPnl.String, err)
			}
			t.RealizedPnl = &pnl
		}
		if orderID.Valid {
			t.ExternalOrderID = orderID.String
		}

		transactions = append(transactions, &t)
	}
	return transactions, rows.Err()
}
