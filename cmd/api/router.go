package main

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/FACorreiaa/family-budget/internal/api/middleware"
)

// NewRouter mounts every handler and wraps the mux in the middleware chain.
func NewRouter(d *Dependencies, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	d.ImportHandler.Register(mux)
	d.TransactionsHandler.Register(mux)
	d.CategoriesHandler.Register(mux)
	d.CategorizationHandler.Register(mux)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: d.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})

	// Metrics sits directly above the mux so it sees the matched pattern.
	return middleware.Chain(mux,
		middleware.Recovery(d.Logger),
		middleware.RequestID,
		middleware.Logger(d.Logger),
		c.Handler,
		limiter.Handler,
		middleware.Metrics(d.Metrics),
	)
}
