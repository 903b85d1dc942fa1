package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Display rounding policy: monetary amounts carry 2 decimal places,
// prices carry 4. The engine keeps full precision; rounding happens
// here only.
func money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
func price(d decimal.Decimal) decimal.Decimal { return d.Round(4) }
