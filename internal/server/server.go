// Package server wires the shop API routes, the response cache and the
// operational endpoints into one HTTP handler.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/shop-api/internal/shop"
	"github.com/Sternrassler/shop-api/pkg/cache"
	"github.com/Sternrassler/shop-api/pkg/logging"
	"github.com/Sternrassler/shop-api/pkg/metrics"
)

// Options configures the router.
type Options struct {
	// Repo backs the shop resources and the health check (required)
	Repo *shop.Repository

	// Cache wraps the shop resources (required)
	Cache *cache.Middleware

	// Logger for access logs and handler errors
	Logger zerolog.Logger
}

// NewRouter builds the application handler.
//
// /healthz and /metrics are served outside the response cache so probes and
// scrapes never touch cache state.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Repo == nil {
		return nil, fmt.Errorf("shop repository is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("cache middleware is required")
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Instrument)

	r.Get("/healthz", healthHandler(opts.Repo))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	shops := shop.NewHandler(opts.Repo)
	r.Group(func(r chi.Router) {
		r.Use(opts.Cache.Handler)
		shops.Routes(r)
	})

	return r, nil
}

func healthHandler(repo *shop.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := repo.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// New returns an http.Server for handler with the timeouts used in production.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
