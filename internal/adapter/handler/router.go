package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	ServiceName string
	JWTSecret   string
	Parking     *ParkingHandler
	Admin       *AdminHandler
	Log         *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log.Named("http")))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"meta":    extractMeta(r.Context()),
		})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/lots", cfg.Parking.BrowseLots)
		r.Get("/lots/{id}", cfg.Parking.BrowseLot)

		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(cfg.JWTSecret))

			r.Route("/user", func(r chi.Router) {
				r.Get("/lots", cfg.Parking.ListLots)
				r.Get("/status", cfg.Parking.Status)
				r.Post("/park", cfg.Parking.Park)
				r.Post("/release", cfg.Parking.Release)
				r.Get("/history", cfg.Parking.History)
				r.Get("/analytics", cfg.Parking.Analytics)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Post("/lots", cfg.Admin.CreateLot)
				r.Get("/lots", cfg.Admin.ListLots)
				r.Get("/lots/{id}", cfg.Admin.GetLot)
				r.Put("/lots/{id}", cfg.Admin.UpdateLot)
				r.Delete("/lots/{id}", cfg.Admin.DeleteLot)
				r.Get("/lots/{id}/spots", cfg.Admin.ListSpots)
				r.Get("/users", cfg.Admin.ListUsers)
				r.Get("/reservations", cfg.Admin.ListReservations)
				r.Get("/analytics", cfg.Admin.Analytics)
				r.Get("/consistency", cfg.Admin.Consistency)
				r.Post("/export-csv", cfg.Admin.ExportCSV)
			})
		})
	})

	return r
}
