// Package app provides application lifecycle management for the dashboard server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/koreanvocab/vocab-dashboard/internal/config"
	"github.com/koreanvocab/vocab-dashboard/internal/health"
)

// DashboardApp encapsulates all components needed to run the dashboard server
// It provides lifecycle management and graceful shutdown capabilities
type DashboardApp struct {
	config       *config.Config
	components   *AppComponents
	httpServer   *http.Server
	pollInterval time.Duration

	mu   sync.Mutex
	poll *health.Handle

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the health poller, loads the target lists and serves HTTP.
// This method blocks until the HTTP server stops or encounters an error
func (app *DashboardApp) Start() error {
	app.mu.Lock()
	app.poll = app.components.Poller.Start(app.ctx, app.pollInterval)
	app.mu.Unlock()

	// views read Loading from the shared state until this settles
	go func() {
		if err := app.components.Synchronizer.Initialize(app.ctx); err != nil {
			slog.Error("Coverage initialization failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout
// It stops the poller, disconnects feed clients and then shuts down the HTTP server
func (app *DashboardApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	app.mu.Lock()
	poll := app.poll
	app.poll = nil
	app.mu.Unlock()
	if poll != nil {
		poll.Stop()
	}

	// hijacked connections are not closed by Shutdown
	if app.components.Feed != nil {
		app.components.Feed.Close()
	}

	// Cancel the application context
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	// Graceful HTTP server shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *DashboardApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *DashboardApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the running components
func (app *DashboardApp) Components() *AppComponents {
	return app.components
}
