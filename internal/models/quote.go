package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a current market quote for one ticker.
type Quote struct {
	Ticker        string          `json:"ticker"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"percent_change"`
	DayHigh       decimal.Decimal `json:"day_high"`
	DayLow        decimal.Decimal `json:"day_low"`
	Volume        int64           `json:"volume"`
	AsOf          time.Time       `json:"as_of"`
}
