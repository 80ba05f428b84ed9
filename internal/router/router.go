package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"vidbase-backend/internal/handlers"
	"vidbase-backend/internal/middleware"
	"vidbase-backend/internal/websocket"
)

func New(
	serviceAuth *middleware.ServiceAuth,
	videoHandler *handlers.VideoHandler,
	costHandler *handlers.CostHandler,
	wsHub *websocket.Hub,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)

	// Keeps a single misbehaving caller from flooding the queue.
	ingestLimiter := middleware.NewRateLimiter(120, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(serviceAuth.Middleware)
			r.Use(ingestLimiter.Middleware)

			r.Post("/", videoHandler.Register)
			r.Post("/reprocess", videoHandler.Reprocess)
			r.Get("/{id}", videoHandler.Get)
			r.Post("/{id}/process", videoHandler.Process)
			r.Get("/{id}/chunks", videoHandler.Chunks)
			r.Get("/{id}/costs", costHandler.VideoCosts)
		})

		// ──── Cost Routes ────
		r.Route("/costs", func(r chi.Router) {
			r.Use(serviceAuth.Middleware)

			r.Get("/summary", costHandler.Summary)
			r.Get("/efficiency", costHandler.Efficiency)
		})

		// ──── WebSocket ────
		r.Get("/events", wsHub.HandleWebSocket)
	})

	return r
}
