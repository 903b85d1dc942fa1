package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/engine"
	"portfoliotracker/internal/models"
	"portfoliotracker/internal/quotes"
)

// Store is the storage surface the handlers need beyond the engine's
// own contract.
type Store interface {
	engine.Store
	CreatePortfolio(p *models.Portfolio) error
	DeletePortfolio(id int) error
	ListPortfolios() ([]*models.Portfolio, error)
	GetPortfolioValues(portfolioID int, start, end time.Time) ([]*models.PortfolioValue, error)
	UpsertPortfolioValues(values []*models.PortfolioValue) error
}

// TradePublisher publishes committed trades to the event stream.
type TradePublisher interface {
	PublishTradeExecuted(ctx context.Context, portfolioID int, result *engine.TradeResult) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store     Store
	trades    *engine.TradeEngine
	valuation *engine.ValuationEngine
	replayer  *engine.Replayer
	quotes    quotes.Provider
	producer  TradePublisher
	log       zerolog.Logger
}

// NewHandler creates a new Handler. producer may be nil when event
// publishing is disabled.
func NewHandler(store Store, trades *engine.TradeEngine, valuation *engine.ValuationEngine, replayer *engine.Replayer, provider quotes.Provider, producer TradePublisher, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		trades:    trades,
		valuation: valuation,
		replayer:  replayer,
		quotes:    provider,
		producer:  producer,
		log:       log,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func portfolioID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

// ExecuteTrade handles POST /portfolios/{id}/trades
func (h *Handler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	var req struct {
		Ticker          string `json:"ticker"`
		Quantity        string `json:"quantity"`
		TransactionType string `json:"transaction_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, "quantity must be a positive number")
		return
	}

	result, err := h.trades.ExecuteTrade(r.Context(), id, req.Ticker, req.TransactionType, quantity)
	if err != nil {
		h.respondTradeError(w, err)
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishTradeExecuted(r.Context(), id, result); err != nil {
			h.log.Error().Err(err).Int("portfolio_id", id).Msg("failed to publish trade event")
		}
	}

	resp := map[string]any{
		"message":          result.Side + " transaction successful",
		"ticker":           result.Ticker,
		"transaction_type": result.Side,
		"quantity":         result.Quantity,
		"execution_price":  price(result.ExecutionPrice),
		"new_cash_balance": money(result.NewCashBalance),
	}
	if result.Side == models.TransactionTypeBuy {
		resp["total_cost"] = money(result.Total)
	} else {
		resp["total_proceeds"] = money(result.Total)
		resp["realized_pnl"] = money(*result.RealizedPnl)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondTradeError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		respondError(w, http.StatusNotFound, "portfolio not found")
	case errors.Is(err, engine.ErrNoSuchHolding):
		respondError(w, http.StatusBadRequest, "no shares of this ticker are held")
	case errors.Is(err, engine.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient cash balance to complete the purchase")
	case errors.Is(err, engine.ErrExceedsHolding):
		respondError(w, http.StatusBadRequest, "sell quantity exceeds holdings")
	case errors.Is(err, engine.ErrQuoteUnavailable):
		respondError(w, http.StatusBadGateway, "failed to fetch current price")
	default:
		h.log.Error().Err(err).Msg("trade failed")
		respondError(w, http.StatusInternalServerError, "an error occurred during the transaction")
	}
}

// GetPortfolio handles GET /portfolios/{id}
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	portfolio, err := h.store.GetPortfolio(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	holdings, err := h.store.ListHoldings(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	snapshot := h.valuation.Value(r.Context(), portfolio, holdings)

	type holdingDTO struct {
		ID            int             `json:"id"`
		Ticker        string          `json:"ticker"`
		Quantity      decimal.Decimal `json:"quantity"`
		CostBasis     decimal.Decimal `json:"cost_basis"`
		CurrentPrice  decimal.Decimal `json:"current_price"`
		MarketValue   decimal.Decimal `json:"market_value"`
		UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	}
	resp := struct {
		ID          int             `json:"id"`
		Name        string          `json:"name"`
		CashBalance decimal.Decimal `json:"cash_balance"`
		Holdings    []holdingDTO    `json:"holdings"`
		TotalValue  decimal.Decimal `json:"total_value"`
	}{
		ID:          snapshot.ID,
		Name:        snapshot.Name,
		CashBalance: money(snapshot.CashBalance),
		Holdings:    make([]holdingDTO, 0, len(snapshot.Holdings)),
		TotalValue:  money(snapshot.TotalValue),
	}
	for _, hv := range snapshot.Holdings {
		resp.Holdings = append(resp.Holdings, holdingDTO{
			ID:            hv.ID,
			Ticker:        hv.Ticker,
			Quantity:      hv.Quantity,
			CostBasis:     price(hv.CostBasis),
			CurrentPrice:  price(hv.CurrentPrice),
			MarketValue:   money(hv.MarketValue),
			UnrealizedPnl: money(hv.UnrealizedPnl),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetProfitAndLoss handles GET /portfolios/{id}/pnl
func (h *Handler) GetProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	portfolio, err := h.store.GetPortfolio(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	holdings, err := h.store.ListHoldings(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	transactions, err := h.store.ListTransactions(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	pnl := h.valuation.ProfitAndLoss(r.Context(), portfolio, holdings, transactions)
	respondJSON(w, http.StatusOK, map[string]decimal.Decimal{
		"total_unrealized_pnl": money(pnl.TotalUnrealizedPnl),
		"total_realized_pnl":   money(pnl.TotalRealizedPnl),
		"total_pnl":            money(pnl.TotalPnl),
		"total_cost_basis":     money(pnl.TotalCostBasis),
		"total_market_value":   money(pnl.TotalMarketValue),
		"return_percentage":    money(pnl.ReturnPercentage),
	})
}

// GetTransactions handles GET /portfolios/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	if _, err := h.store.GetPortfolio(id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	transactions, err := h.store.ListTransactions(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	type transactionDTO struct {
		ID              int             `json:"id"`
		Ticker          string          `json:"ticker"`
		TransactionType string          `json:"transaction_type"`
		Price           decimal.Decimal `json:"price"`
		Quantity        decimal.Decimal `json:"quantity"`
		RealizedPnl     decimal.Decimal `json:"realized_pnl"`
		TransactionDate string          `json:"transaction_date"`
	}
	resp := make([]transactionDTO, 0, len(transactions))
	for _, t := range transactions {
		dto := transactionDTO{
			ID:              t.ID,
			Ticker:          t.Ticker,
			TransactionType: t.TransactionType,
			Price:           price(t.Price),
			Quantity:        t.Quantity,
			TransactionDate: t.TransactionDate.Format(time.RFC3339),
		}
		if t.RealizedPnl != nil {
			dto.RealizedPnl = money(*t.RealizedPnl)
		}
		resp = append(resp, dto)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetHistory handles GET /portfolios/{id}/history?start=&end=
// Snapshots are served from the portfolio_values cache when it fully
// covers the window; otherwise the window is replayed and the cache
// refreshed.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := portfolioID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	if _, err := h.store.GetPortfolio(id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	transactions, err := h.store.ListTransactions(id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if len(transactions) == 0 {
		respondError(w, http.StatusNotFound, "no transactions found")
		return
	}

	start, end, err := historyWindow(r, transactions)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	days := int(end.Sub(start).Hours()/24) + 1
	cached, err := h.store.GetPortfolioValues(id, start, end)
	if err == nil && len(cached) == days {
		respondJSON(w, http.StatusOK, map[string]any{
			"history":            cached,
			"total_transactions": len(transactions),
		})
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Int("portfolio_id", id).Msg("snapshot cache unavailable")
	}

	series := h.replayer.DailySeries(r.Context(), transactions, start, end)

	values := make([]*models.PortfolioValue, 0, len(series))
	for _, s := range series {
		values = append(values, &models.PortfolioValue{
			PortfolioID:   id,
			Date:          s.Date,
			Value:         money(s.Value),
			CashBalance:   money(s.CashBalance),
			HoldingsValue: money(s.HoldingsValue),
			UnrealizedPnl: money(s.UnrealizedPnl),
			RealizedPnl:   money(s.RealizedPnl),
			CombinedPnl:   money(s.CombinedPnl),
		})
	}
	if err := h.store.UpsertPortfolioValues(values); err != nil {
		h.log.Warn().Err(err).Int("portfolio_id", id).Msg("failed to refresh snapshot cache")
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"history":            values,
		"total_transactions": len(transactions),
	})
}

func historyWindow(r *http.Request, transactions []*models.Transaction) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := transactions[0].TransactionDate.UTC().Truncate(24 * time.Hour)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(quotes.DateFormat, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be YYYY-MM-DD")
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(quotes.DateFormat, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be YYYY-MM-DD")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end must not precede start")
	}
	return start, end, nil
}

// GetQuote handles GET /quote/{ticker}
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	quote, err := h.quotes.Current(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, quotes.ErrNotFound) {
			respondError(w, http.StatusNotFound, "invalid ticker symbol: "+ticker)
			return
		}
		h.log.Error().Err(err).Str("ticker", ticker).Msg("quote lookup failed")
		respondError(w, http.StatusBadGateway, "failed to fetch quote for "+ticker)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ticker":         quote.Ticker,
		"name":           quote.Name,
		"price":          money(quote.Price),
		"change":         money(quote.Change),
		"percent_change": money(quote.ChangePercent),
		"day_high":       money(quote.DayHigh),
		"day_low":        money(quote.DayLow),
		"volume":         quote.Volume,
		"as_of":          quote.AsOf,
	})
}

// Setup handles POST /setup: wipes existing portfolios and creates the
// default one with the starting cash balance. Development convenience.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	existing, err := h.store.ListPortfolios()
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	for _, p := range existing {
		if err := h.store.DeletePortfolio(p.ID); err != nil {
			h.respondStoreError(w, err)
			return
		}
	}

	portfolio := &models.Portfolio{
		Name:        "Default Portfolio",
		CashBalance: engine.InitialCash,
	}
	if err := h.store.CreatePortfolio(portfolio); err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":      "database reset and default portfolio created",
		"portfolio_id": portfolio.ID,
	})
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrNotFound) {
		respondError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	h.log.Error().Err(err).Msg("storage error")
	respondError(w, http.StatusInternalServerError, err.Error())
}
