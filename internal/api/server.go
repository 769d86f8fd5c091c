// Package api provides the HTTP server the dashboard views talk to.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koreanvocab/vocab-dashboard/internal/api/common"
	"github.com/koreanvocab/vocab-dashboard/internal/api/dashboard"
	"github.com/koreanvocab/vocab-dashboard/internal/versions"
)

// ServerOption configures the dashboard API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	feed           http.Handler
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithRequestTimeout bounds the REST handlers. The WebSocket feed is exempt.
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(cfg *serverConfig) {
		cfg.requestTimeout = timeout
	}
}

// WithFeed mounts the live state feed at /api/ws
func WithFeed(feed http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.feed = feed
	}
}

// WithMetricsHandler serves Prometheus metrics at /metrics. A nil handler is ignored.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer creates and configures the HTTP router over the shared state services
func NewServer(
	status dashboard.StatusService,
	cov dashboard.CoverageService,
	words dashboard.WordSource,
	opts ...ServerOption,
) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler)
	r.Get("/version", versionHandler)
	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.feed != nil {
			api.Method(http.MethodGet, "/ws", cfg.feed)
		}
		api.Group(func(rest chi.Router) {
			if cfg.requestTimeout > 0 {
				rest.Use(middleware.Timeout(cfg.requestTimeout))
			}
			rest.Mount("/", dashboard.Router(status, cov, words))
		})
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.Get(), http.StatusOK)
}
