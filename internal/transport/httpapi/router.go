package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the scheduling endpoints, health probes, and shared
// middleware into a single handler.
func NewRouter(server *Server, health *HealthHandler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", server.createAppointment)
		r.Get("/", server.listAppointments)
		r.Post("/recurring", server.createRecurring)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.getAppointment)
			r.Put("/", server.modifyAppointment)
			r.Post("/check-in", server.checkIn)
			r.Post("/start", server.startAppointment)
			r.Post("/complete", server.completeAppointment)
			r.Post("/cancel", server.cancelAppointment)
			r.Post("/no-show", server.markNoShow)
		})
	})

	r.Route("/availability", func(r chi.Router) {
		r.Get("/check", server.checkAvailability)
		r.Get("/slots", server.listSlots)
	})

	return r
}
