/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/companies/*   Counterpart company management
  /api/contracts/*   Contract and amendment management
  /api/billings/*    Generation and invoice lifecycle
  /api/reports/*     Warnings, missing billings, summaries
  /api/holidays/*    Holiday calendar
  /api/health        Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Company routes
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.SaveCompany)
			r.Get("/{id}", h.GetCompany)
		})

		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.SaveContract)
			r.Get("/{id}", h.GetContract)
			r.Get("/{id}/history", h.ListHistory)
			r.Post("/{id}/history", h.AddHistory)
		})

		// Billing routes
		r.Route("/billings", func(r chi.Router) {
			r.Get("/", h.ListBillings)
			r.Post("/generate", h.GenerateBillings)
			r.Get("/check-duplicate", h.CheckDuplicate)
			r.Get("/{id}", h.GetBilling)
			r.Post("/{id}/confirm", h.ConfirmBilling)
			r.Post("/{id}/lock", h.LockBilling)
			r.Post("/{id}/cancel", h.CancelBilling)
			r.Put("/{id}/override", h.OverrideBilling)
			r.Post("/{id}/validate", h.RevalidateBilling)
			r.Get("/{id}/entries", h.ListEntries)
			r.Post("/{id}/entries", h.AddEntry)
			r.Delete("/{id}/entries/{entryID}", h.DeleteEntry)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/warnings", h.MonthWarnings)
			r.Get("/missing", h.MissingBillings)
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/yearly", h.YearlyReport)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	return r
}
