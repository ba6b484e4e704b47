package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// defaultWSPath is used when the WebSocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = defaultWSPath
	}
	r.Get(wsPath, s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system/metrics", s.handleSystemMetrics)
		r.Post("/auth/login", s.handleLogin)
		r.With(s.authMiddleware).Get("/audit", s.handleListAudit)

		// Device reads and control stay open to every dashboard.
		r.Get("/summary", s.handleSummary)
		r.Get("/rooms", s.handleListRooms)
		r.Get("/logs", s.handleListLogs)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.With(s.authMiddleware).Patch("/", s.handlePatchDevice)
				r.Post("/control", s.handleControlDevice)
				r.Get("/logs", s.handleDeviceLogs)
			})
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.With(s.authMiddleware).Post("/", s.handleCreateSchedule)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSchedule)
				r.With(s.authMiddleware).Put("/", s.handleUpdateSchedule)
				r.With(s.authMiddleware).Delete("/", s.handleDeleteSchedule)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleListSettings)
			r.Get("/{key}", s.handleGetSetting)
			r.With(s.authMiddleware).Put("/{key}", s.handlePutSetting)
		})
	})

	return r
}
