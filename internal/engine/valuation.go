package engine

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
	"portfoliotracker/internal/quotes"
)

// HoldingValuation is one holding marked to market.
type HoldingValuation struct {
	ID            int             `json:"id"`
	Ticker        string          `json:"ticker"`
	Quantity      decimal.Decimal `json:"quantity"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
}

// PortfolioSnapshot is a portfolio valued at current market prices.
type PortfolioSnapshot struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	CashBalance decimal.Decimal    `json:"cash_balance"`
	Holdings    []HoldingValuation `json:"holdings"`
	TotalValue  decimal.Decimal    `json:"total_value"`
}

// PnLSnapshot aggregates realized and unrealized profit and loss.
type PnLSnapshot struct {
	TotalUnrealizedPnl decimal.Decimal `json:"total_unrealized_pnl"`
	TotalRealizedPnl   decimal.Decimal `json:"total_realized_pnl"`
	TotalPnl           decimal.Decimal `json:"total_pnl"`
	TotalCostBasis     decimal.Decimal `json:"total_cost_basis"`
	TotalMarketValue   decimal.Decimal `json:"total_market_value"`
	ReturnPercentage   decimal.Decimal `json:"return_percentage"`
}

// ValuationEngine computes market values and P&L from holdings plus
// fresh quotes. A quote failure for one ticker never aborts the rest:
// the failing holding degrades to a zero price.
type ValuationEngine struct {
	quotes quotes.Provider
	log    zerolog.Logger
}

// NewValuationEngine creates a valuation engine.
func NewValuationEngine(provider quotes.Provider, log zerolog.Logger) *ValuationEngine {
	return &ValuationEngine{quotes: provider, log: log}
}

func (v *ValuationEngine) priceOrZero(ctx context.Context, ticker string) decimal.Decimal {
	quote, err := v.quotes.Current(ctx, ticker)
	if err != nil {
		v.log.Warn().Err(err).Str("ticker", ticker).Msg("quote failed, valuing at zero")
		return decimal.Zero
	}
	return quote.Price
}

// Value marks every holding to market and totals the portfolio.
func (v *ValuationEngine) Value(ctx context.Context, portfolio *models.Portfolio, holdings []*models.Holding) *PortfolioSnapshot {
	snapshot := &PortfolioSnapshot{
		ID:          portfolio.ID,
		Name:        portfolio.Name,
		CashBalance: portfolio.CashBalance,
		Holdings:    make([]HoldingValuation, 0, len(holdings)),
		TotalValue:  portfolio.CashBalance,
	}

	for _, h := range holdings {
		price := v.priceOrZero(ctx, h.Ticker)
		marketValue := h.Quantity.Mul(price)
		snapshot.Holdings = append(snapshot.Holdings, HoldingValuation{
			ID:            h.ID,
			Ticker:        h.Ticker,
			Quantity:      h.Quantity,
			CostBasis:     h.CostBasis,
			CurrentPrice:  price,
			MarketValue:   marketValue,
			UnrealizedPnl: marketValue.Sub(h.CostValue()),
		})
		snapshot.TotalValue = snapshot.TotalValue.Add(marketValue)
	}
	return snapshot
}

// ProfitAndLoss aggregates unrealized P&L over the holdings and realized
// P&L over the sell transactions of the log. With no sells the realized
// total is zero, never an error; with zero cost basis the return
// percentage is zero, never a division failure.
func (v *ValuationEngine) ProfitAndLoss(ctx context.Context, portfolio *models.Portfolio, holdings []*models.Holding, transactions []*models.Transaction) *PnLSnapshot {
	snapshot := &PnLSnapshot{}

	for _, h := range holdings {
		price := v.priceOrZero(ctx, h.Ticker)
		marketValue := h.Quantity.Mul(price)
		costValue := h.CostValue()

		snapshot.TotalMarketValue = snapshot.TotalMarketValue.Add(marketValue)
		snapshot.TotalCostBasis = snapshot.TotalCostBasis.Add(costValue)
		snapshot.TotalUnrealizedPnl = snapshot.TotalUnrealizedPnl.Add(marketValue.Sub(costValue))
	}

	for _, t := range transactions {
		if t.TransactionType == models.TransactionTypeSell && t.RealizedPnl != nil {
			snapshot.TotalRealizedPnl = snapshot.TotalRealizedPnl.Add(*t.RealizedPnl)
		}
	}

	snapshot.TotalPnl = snapshot.TotalUnrealizedPnl.Add(snapshot.TotalRealizedPnl)
	if snapshot.TotalCostBasis.IsPositive() {
		snapshot.ReturnPercentage = snapshot.TotalUnrealizedPnl.
			Div(snapshot.TotalCostBasis).
			Mul(decimal.NewFromInt(100))
	}
	return snapshot
}
