// Package router assembles the HTTP surface of the decoy chat platform.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/decoynet/decoy-chat-platform/internal/analytics"
	httpmiddleware "github.com/decoynet/decoy-chat-platform/internal/http/middleware"
	"github.com/decoynet/decoy-chat-platform/internal/ingest"
	"github.com/decoynet/decoy-chat-platform/internal/persona"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	IngestHandler    *ingest.Handler
	AnalyticsHandler *analytics.Handler
	PersonaHandler   *persona.Handler
	MetricsHandler   http.Handler

	CORSAllowedOrigins []string

	// Per-IP throttle for the ingest surface; zero disables it.
	ThrottleRate  float64
	ThrottleBurst int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	r.Get("/health", cfg.IngestHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(in chi.Router) {
		if cfg.ThrottleRate > 0 && cfg.ThrottleBurst > 0 {
			in.Use(httpmiddleware.Throttle(cfg.ThrottleRate, cfg.ThrottleBurst))
		}
		in.Post("/messages", cfg.IngestHandler.Submit)
	})
	r.Get("/status", cfg.IngestHandler.Status)

	if cfg.AnalyticsHandler != nil {
		r.Route("/conversations/{id}", func(c chi.Router) {
			c.Post("/classify", cfg.AnalyticsHandler.Classify)
			c.Get("/classifications", cfg.AnalyticsHandler.History)
			c.Get("/summary", cfg.AnalyticsHandler.Summary)
			c.Get("/transcript", cfg.AnalyticsHandler.Transcript)
		})
		r.Route("/profiles/{id}", func(p chi.Router) {
			p.Get("/high-risk", cfg.AnalyticsHandler.HighRisk)
			p.Get("/effectiveness", cfg.AnalyticsHandler.Effectiveness)
		})
		r.Post("/reports/analytics", cfg.AnalyticsHandler.Report)
	}

	if cfg.PersonaHandler != nil {
		r.Post("/personas/reply", cfg.PersonaHandler.Reply)
	}

	return r
}
