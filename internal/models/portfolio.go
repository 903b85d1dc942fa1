package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio represents a single cash-and-holdings portfolio
type Portfolio struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
