/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    Request-scoped slog logger + one line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web front end

ROUTE GROUPS:
  /health                 Liveness + storage ping
  /api/allowance/*        Calculator previews (public)
  /api/ledger/*           Balance and statement (public), reset (admin)
  /api/plans/*            Submission and listing (public),
                          review, deletion and number allocation (reviewer)

AUTHENTICATION:
  Bearer JWT (HS256) carrying actor and role claims. The actor recorded on
  ledger transactions always comes from the token, never from the body.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging and auth middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/ptrab-engine/auth"
)

// RouterOptions carries the settings the router needs from config.
type RouterOptions struct {
	JWTSecret   string
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	reviewer := requireRole(opts.JWTSecret, auth.RoleReviewer)
	admin := requireRole(opts.JWTSecret, auth.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// Calculator routes
		r.Route("/allowance", func(r chi.Router) {
			r.Post("/compute", h.ComputeAllowance)
			r.Post("/rations", h.ComputeRations)
			r.Post("/period", h.ParsePeriod)
		})

		// Ledger routes
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.GetTransactions)
			r.With(admin).Post("/reset", h.ResetLedger)
		})

		// Plan routes
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.ListPlans)
			r.Post("/", h.SubmitPlan)
			r.With(reviewer).Post("/next-number", h.NextNumber)
			r.Get("/{id}", h.GetPlan)
			r.With(reviewer).Post("/{id}/approve", h.ApprovePlan)
			r.With(reviewer).Post("/{id}/reject", h.RejectPlan)
			r.With(reviewer).Delete("/{id}", h.DeletePlan)
		})
	})

	return r
}
