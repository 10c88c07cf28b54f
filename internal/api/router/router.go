// Package router wires the HTTP surface of the surgical workflow platform.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicore/surgical-ops/internal/audit"
	"github.com/clinicore/surgical-ops/internal/board"
	"github.com/clinicore/surgical-ops/internal/checklist"
	httpmiddleware "github.com/clinicore/surgical-ops/internal/http/middleware"
	"github.com/clinicore/surgical-ops/internal/theaterops"
	"github.com/clinicore/surgical-ops/internal/timeline"
	"github.com/clinicore/surgical-ops/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	TheaterOpsHandler  *theaterops.Handler
	ChecklistHandler   *checklist.Handler
	TimelineHandler    *timeline.Handler
	BoardHandler       *board.Handler
	AuditHandler       *audit.Handler
	MetricsHandler     http.Handler
	StaffJWTSecret     string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Clinical API. Staff JWT auth is enforced when a secret is configured;
	// without one (development), handlers fall back to actor headers.
	r.Route("/api", func(api chi.Router) {
		if cfg.StaffJWTSecret != "" {
			api.Use(httpmiddleware.StaffJWT(cfg.StaffJWTSecret))
		}

		api.Route("/cases/{caseID}", func(c chi.Router) {
			if cfg.TheaterOpsHandler != nil {
				c.Post("/transition", cfg.TheaterOpsHandler.Transition)
			}
			if cfg.ChecklistHandler != nil {
				c.Post("/checklist/{phase}", cfg.ChecklistHandler.CompletePhase)
				c.Get("/checklist", cfg.ChecklistHandler.GetStatus)
			}
			if cfg.TimelineHandler != nil {
				c.Patch("/timeline", cfg.TimelineHandler.Update)
				c.Get("/timeline", cfg.TimelineHandler.Get)
			}
		})

		if cfg.BoardHandler != nil {
			api.Get("/board", cfg.BoardHandler.GetBoard)
		}
		if cfg.AuditHandler != nil {
			api.Get("/audit/events", cfg.AuditHandler.QueryEvents)
		}
	})

	return r
}
