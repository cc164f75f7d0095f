package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/http/handlers"
)

// Routes defines HTTP endpoints.
type Routes struct {
	Fleet  *handlers.FleetHandlers
	Health http.Handler
	Push   http.HandlerFunc
}

// NewRouter wires the API, health, metrics and push endpoints.
func NewRouter(routes Routes, corsOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(logger))

	if routes.Health != nil {
		r.Method(http.MethodGet, "/health", routes.Health)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if routes.Push != nil {
		r.Get("/ws", routes.Push)
	}

	if f := routes.Fleet; f != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/batteries", f.Batteries)
			r.Get("/batteries/{id}/history", f.History)
			r.Get("/batteries/{id}/chart", f.Chart)
			r.Get("/batteries/{id}/hourly", f.Hourly)
			r.Get("/summary", f.Summary)

			r.Get("/selection", f.GetSelection)
			r.Put("/selection", f.PutSelection)
			r.Get("/time-range", f.GetTimeRange)
			r.Put("/time-range", f.PutTimeRange)
			r.Get("/thresholds", f.GetThresholds)
			r.Put("/thresholds", f.PutThresholds)
			r.Get("/preferences", f.GetPreferences)
			r.Put("/preferences", f.PutPreferences)

			r.Get("/alerts", f.Alerts)
			r.Post("/alerts/{id}/ack", f.AckAlert)

			r.Get("/readings", f.Readings)
			r.Get("/readings/export.csv", f.ExportCSV)
		})
	}

	if len(corsOrigins) == 0 {
		return r
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(corsOrigins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return cors(r)
}
