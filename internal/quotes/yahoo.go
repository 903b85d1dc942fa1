package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/models"
)

const defaultYahooBaseURL = "https://query2.finance.yahoo.com"

// YahooProvider fetches quotes from the Yahoo Finance v8 chart API.
type YahooProvider struct {
	baseURL string
	cli     *http.Client
}

// NewYahooProvider creates a provider against the public Yahoo endpoint.
// baseURL may be overridden for tests; empty means the default.
func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &YahooProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     &http.Client{Timeout: timeout},
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				LongName             string  `json:"longName"`
				ShortName            string  `json:"shortName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				RegularMarketTime    int64   `json:"regularMarketTime"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  int64   `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) fetchChart(ctx context.Context, ticker, query string) (*yahooChartResponse, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, ticker, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "portfoliotracker/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo http %d for %s", resp.StatusCode, ticker)
	}

	var raw yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode yahoo response: %w", err)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, ErrNotFound
	}
	return &raw, nil
}

// Current returns the latest quote for ticker.
func (p *YahooProvider) Current(ctx context.Context, ticker string) (*models.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrNotFound
	}

	raw, err := p.fetchChart(ctx, ticker, "interval=1m&range=1d")
	if err != nil {
		return nil, err
	}

	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	asOf := time.Unix(r.Meta.RegularMarketTime, 0)

	// Fall back to the last non-zero close when meta is missing
	if (price <= 0 || r.Meta.RegularMarketTime == 0) && len(r.Timestamp) > 0 &&
		len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		for i := len(r.Timestamp) - 1; i >= 0; i-- {
			if c := r.Indicators.Quote[0].Close[i]; c > 0 {
				price = c
				asOf = time.Unix(r.Timestamp[i], 0)
				break
			}
		}
	}

	if price <= 0 {
		return nil, ErrNotFound
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	name := r.Meta.LongName
	if name == "" {
		name = r.Meta.ShortName
	}

	q := &models.Quote{
		Ticker:        ticker,
		Name:          name,
		Price:         decimal.NewFromFloat(price),
		PreviousClose: decimal.NewFromFloat(r.Meta.ChartPreviousClose),
		DayHigh:       decimal.NewFromFloat(r.Meta.RegularMarketDayHigh),
		DayLow:        decimal.NewFromFloat(r.Meta.RegularMarketDayLow),
		Volume:        r.Meta.RegularMarketVolume,
		AsOf:          asOf,
	}
	if r.Meta.ChartPreviousClose > 0 {
		q.Change = q.Price.Sub(q.PreviousClose)
		q.ChangePercent = q.Change.Div(q.PreviousClose).Mul(decimal.NewFromInt(100))
	}
	return q, nil
}

// DailyCloses returns daily closing prices for the inclusive [start, end] range.
func (p *YahooProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) (map[string]decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrNotFound
	}

	// Yahoo treats period2 as exclusive
	query := fmt.Sprintf("interval=1d&period1=%d&period2=%d",
		start.Unix(), end.Add(24*time.Hour).Unix())
	raw, err := p.fetchChart(ctx, ticker, query)
	if err != nil {
		return nil, err
	}

	r := raw.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 || len(r.Indicators.Quote[0].Close) != len(r.Timestamp) {
		return nil, fmt.Errorf("malformed daily series for %s", ticker)
	}

	closes := make(map[string]decimal.Decimal, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := r.Indicators.Quote[0].Close[i]
		if c <= 0 {
			continue
		}
		day := time.Unix(ts, 0).UTC().Format(DateFormat)
		closes[day] = decimal.NewFromFloat(c)
	}
	return closes, nil
}
