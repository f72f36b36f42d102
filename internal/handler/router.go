package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/assistant-widget/internal/middleware"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

// RouterConfig carries what NewRouter wires together.
type RouterConfig struct {
	Sessions       Sessions
	SessionIssuer  *middleware.SessionIssuer
	Events         ConnectionChecker
	AllowedOrigins []string
	Logger         *logger.Logger
}

// NewRouter builds the HTTP routes of the widget host.
func NewRouter(cfg RouterConfig) http.Handler {
	health := NewHealthHandler(cfg.Events)
	page := NewPageHandler(cfg.Sessions, cfg.Logger)
	api := NewWidgetHandler(cfg.Sessions, cfg.Logger)
	stream := NewStreamHandler(cfg.Sessions, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.SessionIssuer))

		r.Get("/", page.Index)
		r.Post("/widget/toggle", page.Toggle)
		r.Post("/widget/messages", page.Send)
	})

	r.Route("/api/widget", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
		r.Use(middleware.Session(cfg.SessionIssuer))

		r.Get("/", api.State)
		r.Post("/toggle", api.Toggle)
		r.Post("/messages", api.Send)
		r.Get("/stream", stream.Stream)
	})

	return r
}
