package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
)

// ErrNotFound indicates the provider has no data for the ticker.
var ErrNotFound = errors.New("quotes: ticker not found")

// DateFormat is the key format used in daily close maps.
const DateFormat = "2006-01-02"

// Provider supplies market data for a ticker. Implementations may fail
// per-ticker; callers decide whether a failure blocks (trade execution)
// or degrades (valuation reads).
type Provider interface {
	// Current returns the latest quote for ticker.
	Current(ctx context.Context, ticker string) (*models.Quote, error)
	// DailyCloses returns closing prices keyed by DateFormat dates for
	// the inclusive [start, end] range. Days without a close (weekends,
	// holidays) are simply absent.
	DailyCloses(ctx context.Context, ticker string, start, end time.Time) (map[string]decimal.Decimal, error)
}
