package database

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/engine"
)

func TestHoldings(t *testing.T) {
	db := SetupTestDB(t)
	defer db.Cleanup(t)

	t.Run("get returns the held lot", func(t *testing.T) {
		db.TruncateAll(t)
		p := db.SeedPortfolio(t, "Default", decimal.NewFromInt(100000))
		applyBuy(t, db, p.ID, "AAPL", "10.5", "150.25", "98422.375")

		holding, err := db.GetHolding(p.ID, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, p.ID, holding.PortfolioID)
		assert.True(t, decimal.RequireFromString("10.5").Equal(holding.Quantity))
		assert.True(t, decimal.RequireFromString("150.25").Equal(holding.CostBasis))
	})

	t.Run("get missing ticker", func(t *testing.T) {
		db.TruncateAll(t)
		p := db.SeedPortfolio(t, "Default", decimal.NewFromInt(100000))

		_, err := db.GetHolding(p.ID, "TSLA")
		assert.ErrorIs(t, err, engine.ErrNoSuchHolding)
	})

	t.Run("list orders by ticker", func(t *testing.T) {
		db.TruncateAll(t)
		p := db.SeedPortfolio(t, "Default", decimal.NewFromInt(100000))
		applyBuy(t, db, p.ID, "MSFT", "5", "300", "98500")
		applyBuy(t, db, p.ID, "AAPL", "10", "150", "97000")

		holdings, err := db.ListHoldings(p.ID)
		require.NoError(t, err)
		require.Len(t, holdings, 2)
		assert.Equal(t, "AAPL", holdings[0].Ticker)
		assert.Equal(t, "MSFT", holdings[1].Ticker)
	})

	t.Run("list is scoped to the portfolio", func(t *testing.T) {
		db.TruncateAll(t)
		mine := db.SeedPortfolio(t, "Mine", decimal.NewFromInt(100000))
		other := db.SeedPortfolio(t, "Other", decimal.NewFromInt(100000))
		applyBuy(t, db, other.ID, "AAPL", "10", "150", "98500")

		holdings, err := db.ListHoldings(mine.ID)
		require.NoError(t, err)
		assert.Empty(t, holdings)
	})
}
