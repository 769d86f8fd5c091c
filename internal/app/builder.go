package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/koreanvocab/vocab-dashboard/internal/api"
	"github.com/koreanvocab/vocab-dashboard/internal/api/feed"
	"github.com/koreanvocab/vocab-dashboard/internal/config"
	"github.com/koreanvocab/vocab-dashboard/internal/coverage"
	"github.com/koreanvocab/vocab-dashboard/internal/health"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
	"github.com/koreanvocab/vocab-dashboard/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// remoteTracerName names the spans of outgoing service calls
	remoteTracerName = "github.com/koreanvocab/vocab-dashboard/remote"
)

// DashboardAppOptions is a function that configures the dashboard app builder
type DashboardAppOptions func(*dashboardAppConfig) error

// dashboardAppConfig collects the builder inputs. It supports dependency injection
// for testing while providing sensible defaults for production
type dashboardAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	client remote.Client

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...DashboardAppOptions) (*dashboardAppConfig, error) {
	cfg := &dashboardAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewDashboardApp wires the remote client, the poller, the synchronizer and the
// HTTP server from the given configuration
func NewDashboardApp(
	ctx context.Context,
	opts ...DashboardAppOptions,
) (*DashboardApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.client == nil {
		cfg.client, err = buildRemoteClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build remote client: %w", err)
		}
	}

	components, err := buildSyncComponents(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &DashboardApp{
		config:       cfg.config,
		components:   components,
		httpServer:   httpServer,
		pollInterval: cfg.config.GetPollInterval(),
		ctx:          appCtx,
		cancelFunc:   cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRemoteClient allows injecting a custom remote client (for testing)
func WithRemoteClient(c remote.Client) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		cfg.client = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for domain and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for server and client spans
func WithTracerProvider(tp trace.TracerProvider) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves the given Prometheus handler at /metrics
func WithMetricsHandler(h http.Handler) DashboardAppOptions {
	return func(cfg *dashboardAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

func buildRemoteClient(b *dashboardAppConfig) (remote.Client, error) {
	opts := []remote.Option{remote.WithTimeout(b.config.GetTimeout())}
	if b.tracerProvider != nil {
		opts = append(opts, remote.WithTracer(b.tracerProvider.Tracer(remoteTracerName)))
	}

	client, err := remote.New(b.config.Services.Flashcard.URL, b.config.Services.Status.URL, opts...)
	if err != nil {
		return nil, err
	}

	slog.Info("Remote client configured",
		"flashcard_url", b.config.Services.Flashcard.URL,
		"status_url", b.config.Services.Status.URL,
		"timeout", b.config.GetTimeout())
	return client, nil
}

// buildSyncComponents builds the poller, the synchronizer and the feed over them
func buildSyncComponents(b *dashboardAppConfig) (*AppComponents, error) {
	slog.Info("Initializing sync components")

	var (
		pollerOpts []health.Option
		syncOpts   = []coverage.Option{coverage.WithSummaryLimit(b.config.GetSummaryLimit())}
	)

	if b.meterProvider != nil {
		healthMetrics, err := telemetry.NewHealthMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create health metrics: %w", err)
		}
		if healthMetrics != nil {
			pollerOpts = append(pollerOpts, health.WithMetrics(healthMetrics))
			slog.Info("Health metrics enabled")
		}

		coverageMetrics, err := telemetry.NewCoverageMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create coverage metrics: %w", err)
		}
		if coverageMetrics != nil {
			syncOpts = append(syncOpts, coverage.WithMetrics(coverageMetrics))
			slog.Info("Coverage metrics enabled")
		}
	}

	poller := health.New(b.client, pollerOpts...)
	synchronizer := coverage.New(b.client, syncOpts...)

	var feedOpts []feed.Option
	if origins := b.config.Server.AllowedOrigins; len(origins) > 0 {
		feedOpts = append(feedOpts, feed.WithAllowedOrigins(origins))
	}

	slog.Info("Sync components initialized successfully")
	return &AppComponents{
		Client:       b.client,
		Poller:       poller,
		Synchronizer: synchronizer,
		Feed:         feed.NewHandler(poller, synchronizer, feedOpts...),
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *dashboardAppConfig,
	components *AppComponents,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			api.LoggingMiddleware,
		}
	}

	// Server spans wrap everything below, including the metrics middleware
	var outer []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		outer = append(outer, telemetry.TracingMiddleware(b.tracerProvider))
		slog.Info("HTTP tracing middleware enabled")
	}

	// Add metrics middleware if meter provider is configured
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			outer = append(outer, metricsMiddleware)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	b.middlewares = append(outer, b.middlewares...)

	router := api.NewServer(
		components.Poller,
		components.Synchronizer,
		components.Client,
		api.WithMiddlewares(b.middlewares...),
		api.WithRequestTimeout(b.requestTimeout),
		api.WithFeed(components.Feed),
		api.WithMetricsHandler(b.metricsHandler),
	)

	server := &http.Server{
		Addr:              b.address,
		Handler:           router,
		ReadTimeout:       b.readTimeout,
		ReadHeaderTimeout: b.readTimeout,
		WriteTimeout:      b.writeTimeout,
		IdleTimeout:       b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
