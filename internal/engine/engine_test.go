package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
)

// memStore implements Store in memory for engine tests.
type memStore struct {
	portfolios   map[int]*models.Portfolio
	holdings     map[string]*models.Holding // key: portfolioID:ticker
	transactions []*models.Transaction
	nextID       int

	failApply bool
	applied   int
}

func newMemStore() *memStore {
	return &memStore{
		portfolios: make(map[int]*models.Portfolio),
		holdings:   make(map[string]*models.Holding),
		nextID:     1,
	}
}

func (m *memStore) addPortfolio(cash decimal.Decimal) *models.Portfolio {
	p := &models.Portfolio{ID: m.nextID, Name: "Test Portfolio", CashBalance: cash}
	m.nextID++
	m.portfolios[p.ID] = p
	return p
}

func holdingKey(portfolioID int, ticker string) string {
	return fmt.Sprintf("%d:%s", portfolioID, ticker)
}

func (m *memStore) GetPortfolio(id int) (*models.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memStore) GetHolding(portfolioID int, ticker string) (*models.Holding, error) {
	h, ok := m.holdings[holdingKey(portfolioID, ticker)]
	if !ok {
		return nil, ErrNoSuchHolding
	}
	copied := *h
	return &copied, nil
}

func (m *memStore) ListHoldings(portfolioID int) ([]*models.Holding, error) {
	var out []*models.Holding
	for _, h := range m.holdings {
		if h.PortfolioID == portfolioID {
			copied := *h
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) ListTransactions(portfolioID int) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.PortfolioID == portfolioID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ApplyTrade(mut *TradeMutation) error {
	if m.failApply {
		return fmt.Errorf("storage failure")
	}
	p := m.portfolios[mut.PortfolioID]
	p.CashBalance = mut.NewCashBalance

	key := holdingKey(mut.PortfolioID, mut.Holding.Ticker)
	if mut.Holding.Delete {
		delete(m.holdings, key)
	} else {
		m.holdings[key] = &models.Holding{
			PortfolioID: mut.PortfolioID,
			Ticker:      mut.Holding.Ticker,
			Quantity:    mut.Holding.Quantity,
			CostBasis:   mut.Holding.CostBasis,
		}
	}

	mut.Transaction.ID = len(m.transactions) + 1
	m.transactions = append(m.transactions, mut.Transaction)
	m.applied++
	return nil
}

// fakeQuotes implements quotes.Provider with canned data.
type fakeQuotes struct {
	prices  map[string]decimal.Decimal
	closes  map[string]map[string]decimal.Decimal
	failing map[string]bool
	calls   map[string]int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		prices:  make(map[string]decimal.Decimal),
		closes:  make(map[string]map[string]decimal.Decimal),
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (f *fakeQuotes) Current(ctx context.Context, ticker string) (*models.Quote, error) {
	if f.failing[ticker] {
		return nil, fmt.Errorf("provider down")
	}
	price, ok := f.prices[ticker]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", ticker)
	}
	return &models.Quote{Ticker: ticker, Price: price, AsOf: time.Now()}, nil
}

func (f *fakeQuotes) DailyCloses(ctx context.Context, ticker string, start, end time.Time) (map[string]decimal.Decimal, error) {
	f.calls[ticker]++
	if f.failing[ticker] {
		return nil, fmt.Errorf("provider down")
	}
	closes, ok := f.closes[ticker]
	if !ok {
		return nil, fmt.Errorf("no history for %s", ticker)
	}
	return closes, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
