/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/agents/*     Agent management and balances
  /api/conges/*     Leave lifecycle and decision documents
  /api/holidays/*   Custom holiday calendar
  /api/dashboard/*  Who-is-out view
  /api/admin/*      Fiscal year operations
  /api/export/*     CSV exports
  /api/import/*     CSV imports

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Get("/{id}", h.GetAgent)
			r.Put("/{id}", h.UpdateAgent)
			r.Delete("/{id}", h.DeleteAgent)
			r.Get("/{id}/balances", h.GetBalances)
			r.Post("/{id}/balances/credit", h.CreditBalance)
			r.Get("/{id}/conges", h.ListAgentLeaves)
		})

		r.Route("/conges", func(r chi.Router) {
			r.Post("/", h.CreateLeave)
			r.Get("/sans-certificat", h.MissingCertificates)
			r.Put("/{id}", h.UpdateLeave)
			r.Post("/{id}/cancel", h.CancelLeave)
			r.Delete("/{id}", h.DeleteLeave)
			r.Get("/{id}/decision", h.Decision)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Get("/dashboard/on-leave", h.OnLeave)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/expire", h.CloseExercise)
			r.Post("/merge", h.MergeExpired)
		})

		r.Get("/export/agents.csv", h.ExportAgentsCSV)
		r.Get("/export/conges.csv", h.ExportLeavesCSV)
		r.Post("/import/agents", h.ImportAgentsCSV)
	})

	return r
}
