package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"portfolios",
			"holdings",
			"transactions",
			"portfolio_values",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("holdings table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":           "integer",
			"portfolio_id": "integer",
			"ticker":       "character varying",
			"quantity":     "numeric",
			"cost_basis":   "numeric",
			"created_at":   "timestamp with time zone",
			"updated_at":   "timestamp with time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'holdings' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in holdings table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("transactions table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "portfolio_id", "ticker", "transaction_type", "price",
			"quantity", "realized_pnl", "external_order_id",
			"transaction_date", "created_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'transactions' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in transactions table", colName)
		}
	})

	t.Run("portfolio_values table has correct columns", func(t *testing.T) {
		expectedColumns := []string{
			"id", "portfolio_id", "date", "value", "cash_balance",
			"holdings_value", "unrealized_pnl", "realized_pnl",
			"combined_pnl", "created_at",
		}

		for _, colName := range expectedColumns {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.columns
					WHERE table_name = 'portfolio_values' AND column_name = $1
				)
			`, colName).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "column %s should exist in portfolio_values table", colName)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		expectedIndexes := []struct {
			table string
			index string
		}{
			{"holdings", "idx_holdings_portfolio_id"},
			{"transactions", "idx_transactions_portfolio_date"},
		}

		for _, idx := range expectedIndexes {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = $1 AND indexname = $2
				)
			`, idx.table, idx.index).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on table %s", idx.index, idx.table)
		}
	})

	t.Run("unique constraints exist", func(t *testing.T) {
		// One lot per (portfolio, ticker)
		var holdingUnique bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'holdings'
				AND c.contype = 'u'
			)
		`).Scan(&holdingUnique)
		require.NoError(t, err)
		assert.True(t, holdingUnique, "holdings should have unique constraint on (portfolio_id, ticker)")

		// One snapshot per (portfolio, date)
		var valueUnique bool
		err = testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'portfolio_values'
				AND c.contype = 'u'
			)
		`).Scan(&valueUnique)
		require.NoError(t, err)
		assert.True(t, valueUnique, "portfolio_values should have unique constraint on (portfolio_id, date)")

		// Fill idempotency key
		var orderUnique bool
		err = testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'transactions'
				AND c.contype = 'u'
				AND c.conname LIKE '%external_order_id%'
			)
		`).Scan(&orderUnique)
		require.NoError(t, err)
		assert.True(t, orderUnique, "transactions.external_order_id should have unique constraint")
	})

	t.Run("foreign keys cascade from portfolios", func(t *testing.T) {
		for _, table := range []string{"holdings", "transactions", "portfolio_values"} {
			var hasFK bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_constraint c
					JOIN pg_class t ON c.conrelid = t.oid
					WHERE t.relname = $1
					AND c.contype = 'f'
					AND c.confdeltype = 'c'
				)
			`, table).Scan(&hasFK)
			require.NoError(t, err)
			assert.True(t, hasFK, "%s should cascade-delete with its portfolio", table)
		}
	})

	t.Run("transaction type is constrained", func(t *testing.T) {
		var hasCheck bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'transactions'
				AND c.contype = 'c'
			)
		`).Scan(&hasCheck)
		require.NoError(t, err)
		assert.True(t, hasCheck, "transactions.transaction_type should be constrained to buy/sell")
	})
}
