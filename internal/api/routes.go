package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/setup", handler.Setup).Methods("POST")
	api.HandleFunc("/quote/{ticker}", handler.GetQuote).Methods("GET")
	api.HandleFunc("/portfolios/{id}", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolios/{id}/trades", handler.ExecuteTrade).Methods("POST")
	api.HandleFunc("/portfolios/{id}/pnl", handler.GetProfitAndLoss).Methods("GET")
	api.HandleFunc("/portfolios/{id}/transactions", handler.GetTransactions).Methods("GET")
	api.HandleFunc("/portfolios/{id}/history", handler.GetHistory).Methods("GET")

	// The API backs a browser frontend
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})

	return c.Handler(r)
}
