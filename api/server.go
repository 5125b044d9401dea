/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for the dashboards and POS app

ROUTE GROUPS:
  /api/students/*       Account lifecycle and per-student reads
  /api/topup|purchase|withdraw  Balance transfers
  /api/transactions     Ledger history
  /api/stats/*          Reporting aggregates
  /api/requests/*       Reservation workflow
  /ws                   WebSocket event stream

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

// NewRouter creates a new router with all routes configured. events may be
// nil when no realtime endpoint is wanted (tests, batch tools).
func NewRouter(h *Handler, events http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Post("/{id}/rename", h.RenameStudent)
			r.Put("/{id}/passkey", h.UpdatePasskey)
			r.Post("/{id}/unlock", h.UnlockStudent)
			r.Get("/{id}/notifications", h.ListNotifications)
		})

		r.Post("/verify", h.VerifyPasskey)
		r.Post("/topup", h.TopUp)
		r.Post("/purchase", h.Purchase)
		r.Post("/withdraw", h.Withdraw)
		r.Get("/transactions", h.GetTransactions)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/daily", h.GetDailyStats)
			r.Get("/weekly", h.GetWeeklySeries)
			r.Get("/system", h.GetSystemStats)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListReservations)
			r.Post("/", h.CreateReservation)
			r.Post("/{id}/accept", h.AcceptReservation)
			r.Post("/{id}/resolve", h.ResolveReservation)
		})

		r.Post("/notifications/{id}/read", h.MarkNotificationRead)
	})

	if events != nil {
		r.Handle("/ws", events)
	}

	return r
}
