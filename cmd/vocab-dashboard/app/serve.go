package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	dashboard "github.com/koreanvocab/vocab-dashboard/internal/app"
	"github.com/koreanvocab/vocab-dashboard/internal/config"
	"github.com/koreanvocab/vocab-dashboard/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	telemetryFlushTimeout  = 5 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Long: `Start the dashboard API server.

The server polls the health of the flashcard and status services, loads the
target lists with the coverage of the default list, and serves both over REST
under /api and as a live feed on /api/ws. The configuration file is optional;
see examples/ for a sample.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("address", "", "Address to listen on (default "+config.DefaultAddress+")")
	cmd.Flags().Duration("poll-interval", 0, "Interval between health checks (default "+config.DefaultPollInterval+")")
	bindFlags(v, cmd.Flags(), "address", "poll-interval")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	srv, err := dashboard.NewDashboardApp(ctx,
		dashboard.WithConfig(cfg),
		dashboard.WithAddress(cfg.Server.Address),
		dashboard.WithMeterProvider(tel.MeterProvider()),
		dashboard.WithTracerProvider(tel.TracerProvider()),
		dashboard.WithMetricsHandler(tel.MetricsHandler()),
	)
	if err != nil {
		return fmt.Errorf("failed to build dashboard server: %w", err)
	}

	slog.Info("Starting dashboard server",
		"address", cfg.Server.Address,
		"flashcard_url", cfg.Services.Flashcard.URL,
		"status_url", cfg.Services.Status.URL,
		"poll_interval", cfg.GetPollInterval())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	if err := srv.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-errCh
}
