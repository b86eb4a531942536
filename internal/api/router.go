package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check on /health.
const healthCheckTimeout = 2 * time.Second

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics)
		}

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/lists", func(r chi.Router) {
				r.Get("/", s.handleListEntities)

				r.Route("/{entity}", func(r chi.Router) {
					r.Get("/", s.handleGetEntity)
					r.Post("/refresh", s.handleRefresh)
					r.Delete("/order", s.handleResetOrder)

					r.Route("/items", func(r chi.Router) {
						r.Get("/", s.handleListItems)
						r.Post("/", s.handleCreateItem)
						r.Delete("/", s.handleDeleteItems)

						r.Route("/{uid}", func(r chi.Router) {
							r.Patch("/", s.handleUpdateItem)
							r.Delete("/", s.handleDeleteItem)
							r.Post("/move", s.handleMoveItem)
						})
					})
				})
			})

			r.Get("/ordering", s.handleOrdering)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth reports "ok" when every registered dependency is healthy
// and "degraded" otherwise. The status code is always 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	components := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"entities":   len(s.platform.EntityIDs()),
		"components": components,
	})
}
