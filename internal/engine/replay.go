package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
	"portfoliotracker/internal/quotes"
)

// lookbackDays bounds the search for a prior close when a day has no
// exact historical price (weekends, holidays).
const lookbackDays = 5

// ReplayHolding is a synthetic holding reconstructed from the log.
type ReplayHolding struct {
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
}

// CostValue returns quantity × cost_basis for the synthetic holding.
func (h *ReplayHolding) CostValue() decimal.Decimal {
	return h.Quantity.Mul(h.CostBasis)
}

// ReplayState is portfolio state reconstructed at a point in time.
type ReplayState struct {
	Cash        decimal.Decimal
	Holdings    map[string]*ReplayHolding
	RealizedPnl decimal.Decimal
}

// DailySnapshot is the portfolio valued at the end of one day.
type DailySnapshot struct {
	Date          time.Time       `json:"date"`
	Value         decimal.Decimal `json:"portfolio_value"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`
	CombinedPnl   decimal.Decimal `json:"combined_pnl"`
}

// Replayer reconstructs historical portfolio state by folding the
// transaction log from a fixed starting cash amount. Replay is pure:
// the same log and the same price table always produce the same output.
type Replayer struct {
	quotes quotes.Provider
	log    zerolog.Logger
}

// NewReplayer creates a history replayer.
func NewReplayer(provider quotes.Provider, log zerolog.Logger) *Replayer {
	return &Replayer{quotes: provider, log: log}
}

// Replay folds every transaction dated at or before asOf, in ascending
// date order, applying the same buy/sell rules the trade engine uses.
func Replay(transactions []*models.Transaction, asOf time.Time) *ReplayState {
	state := &ReplayState{
		Cash:     InitialCash,
		Holdings: make(map[string]*ReplayHolding),
	}

	ordered := make([]*models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
	})

	for _, t := range ordered {
		if t.TransactionDate.After(asOf) {
			break
		}
		state.apply(t)
	}
	return state
}

func (s *ReplayState) apply(t *models.Transaction) {
	total := t.Quantity.Mul(t.Price)
	holding := s.Holdings[t.Ticker]

	if t.TransactionType == models.TransactionTypeBuy {
		s.Cash = s.Cash.Sub(total)
		if holding == nil {
			s.Holdings[t.Ticker] = &ReplayHolding{Quantity: t.Quantity, CostBasis: t.Price}
			return
		}
		holding.CostBasis = averagedCostBasis(holding.Quantity, holding.CostBasis, t.Quantity, t.Price)
		holding.Quantity = holding.Quantity.Add(t.Quantity)
		return
	}

	// sell
	s.Cash = s.Cash.Add(total)
	if holding == nil {
		return
	}
	s.RealizedPnl = s.RealizedPnl.Add(realizedPnl(t.Quantity, t.Price, holding.CostBasis))

	remaining := holding.Quantity.Sub(t.Quantity)
	if remaining.LessThanOrEqual(decimal.Zero) {
		delete(s.Holdings, t.Ticker)
		return
	}
	holding.CostBasis = remainingCostBasis(holding.Quantity, holding.CostBasis, t.Quantity, t.Price)
	holding.Quantity = remaining
}

// priceTable holds prefetched daily closes per ticker.
type priceTable map[string]map[string]decimal.Decimal

// priceOn resolves a ticker's price for a day: exact close, else the
// nearest prior close within the lookback window, else the holding's
// own cost basis. It never fails the computation.
func (p priceTable) priceOn(ticker string, day time.Time, fallback decimal.Decimal) decimal.Decimal {
	closes, ok := p[ticker]
	if !ok {
		return fallback
	}
	for back := 0; back <= lookbackDays; back++ {
		key := day.AddDate(0, 0, -back).Format(quotes.DateFormat)
		if price, ok := closes[key]; ok {
			return price
		}
	}
	return fallback
}

// DailySeries values the portfolio at the end of each day in the
// inclusive [start, end] window. All ticker histories are fetched once
// up front; the day loop never touches the network.
func (r *Replayer) DailySeries(ctx context.Context, transactions []*models.Transaction, start, end time.Time) []*DailySnapshot {
	start = truncateDay(start)
	end = truncateDay(end)

	table := r.fetchPrices(ctx, transactions, start, end)

	ordered := make([]*models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
	})

	state := &ReplayState{
		Cash:     InitialCash,
		Holdings: make(map[string]*ReplayHolding),
	}
	next := 0

	var series []*DailySnapshot
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		endOfDay := day.AddDate(0, 0, 1)
		for next < len(ordered) && ordered[next].TransactionDate.Before(endOfDay) {
			state.apply(ordered[next])
			next++
		}

		holdingsValue := decimal.Zero
		costBasis := decimal.Zero
		for ticker, h := range state.Holdings {
			price := table.priceOn(ticker, day, h.CostBasis)
			holdingsValue = holdingsValue.Add(h.Quantity.Mul(price))
			costBasis = costBasis.Add(h.CostValue())
		}

		unrealized := holdingsValue.Sub(costBasis)
		series = append(series, &DailySnapshot{
			Date:          day,
			Value:         state.Cash.Add(holdingsValue),
			CashBalance:   state.Cash,
			HoldingsValue: holdingsValue,
			UnrealizedPnl: unrealized,
			RealizedPnl:   state.RealizedPnl,
			CombinedPnl:   unrealized.Add(state.RealizedPnl),
		})
	}
	return series
}

// fetchPrices batches one history call per ticker, extended backwards by
// the lookback window. A failed ticker is logged and left out of the
// table; its holdings fall back to cost basis.
func (r *Replayer) fetchPrices(ctx context.Context, transactions []*models.Transaction, start, end time.Time) priceTable {
	tickers := make(map[string]struct{})
	for _, t := range transactions {
		tickers[t.Ticker] = struct{}{}
	}

	table := make(priceTable, len(tickers))
	for ticker := range tickers {
		closes, err := r.quotes.DailyCloses(ctx, ticker, start.AddDate(0, 0, -lookbackDays), end)
		if err != nil {
			r.log.Warn().Err(err).Str("ticker", ticker).Msg("historical closes unavailable, using cost basis")
			continue
		}
		table[ticker] = closes
	}
	return table
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
