/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request, echoed in every log line
  2. RequestLogger: zerolog request logging (see middleware.go)
  3. Recovery:      Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/accounting-periods/*  Period lifecycle
  /api/funds/*               Funds and fund balances
  /api/accounts/*            Accounts and account balances
  /api/transactions/*        Add, post, update, delete transactions
  /api/change-in-values      Record a change in value
  /api/fund-conversions      Record a fund conversion
  /api/scenarios/*           Demo data loaders (development only)
  /health                    Liveness probe

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/serve.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(Recovery(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/accounting-periods", func(r chi.Router) {
			r.Get("/", h.ListAccountingPeriods)
			r.Post("/", h.CreateAccountingPeriod)
			r.Get("/{id}", h.GetAccountingPeriod)
			r.Delete("/{id}", h.DeleteAccountingPeriod)
			r.Post("/{id}/close", h.CloseAccountingPeriod)
			r.Get("/{id}/transactions", h.ListTransactions)
		})

		r.Route("/funds", func(r chi.Router) {
			r.Get("/", h.ListFunds)
			r.Post("/", h.CreateFund)
			r.Get("/{id}", h.GetFund)
			r.Put("/{id}", h.RenameFund)
			r.Delete("/{id}", h.DeleteFund)
			r.Get("/{id}/balances/by-date", h.FundBalancesByDate)
			r.Get("/{id}/balances/by-event", h.FundBalancesByEvent)
			r.Get("/{id}/balances/by-period/{periodID}", h.FundBalanceByPeriod)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.RenameAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/balance", h.AccountBalanceAsOf)
			r.Get("/{id}/balances/by-date", h.AccountBalancesByDate)
			r.Get("/{id}/balances/by-event", h.AccountBalancesByEvent)
			r.Get("/{id}/balances/by-period/{periodID}", h.AccountBalanceByPeriod)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.AddTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/post", h.PostTransaction)
		})

		r.Post("/change-in-values", h.AddChangeInValue)
		r.Post("/fund-conversions", h.AddFundConversion)

		if h.resetter != nil {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	return r
}
