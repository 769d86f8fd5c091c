// Package telemetry provides OpenTelemetry instrumentation for the dashboard backend.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// HealthMetricsMeterName is the name used for the health poller meter
	HealthMetricsMeterName = "github.com/koreanvocab/vocab-dashboard/health"

	// CoverageMetricsMeterName is the name used for the coverage synchronizer meter
	CoverageMetricsMeterName = "github.com/koreanvocab/vocab-dashboard/coverage"
)

// HealthMetrics holds the OpenTelemetry instruments for service probes
type HealthMetrics struct {
	probeDuration metric.Float64Histogram
	cycles        metric.Int64Counter
}

// NewHealthMetrics creates a new HealthMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewHealthMetrics(provider metric.MeterProvider) (*HealthMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HealthMetricsMeterName)

	probeDuration, err := meter.Float64Histogram(
		"vocab_dashboard_probe_duration_seconds",
		metric.WithDescription("Duration of service health probes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	cycles, err := meter.Int64Counter(
		"vocab_dashboard_poll_cycles_total",
		metric.WithDescription("Number of completed health poll cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	return &HealthMetrics{
		probeDuration: probeDuration,
		cycles:        cycles,
	}, nil
}

// RecordProbe records the duration and outcome of one probe
func (m *HealthMetrics) RecordProbe(ctx context.Context, service string, duration time.Duration, connected bool) {
	if m == nil || m.probeDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.Bool("connected", connected),
	}

	m.probeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCycle counts a published poll cycle
func (m *HealthMetrics) RecordCycle(ctx context.Context) {
	if m == nil || m.cycles == nil {
		return
	}
	m.cycles.Add(ctx, 1)
}

// CoverageMetrics holds the OpenTelemetry instruments for coverage fetches
type CoverageMetrics struct {
	fetchDuration metric.Float64Histogram
	staleResults  metric.Int64Counter
}

// NewCoverageMetrics creates a new CoverageMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewCoverageMetrics(provider metric.MeterProvider) (*CoverageMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(CoverageMetricsMeterName)

	fetchDuration, err := meter.Float64Histogram(
		"vocab_dashboard_coverage_fetch_duration_seconds",
		metric.WithDescription("Duration of coverage fetches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	staleResults, err := meter.Int64Counter(
		"vocab_dashboard_coverage_stale_results_total",
		metric.WithDescription("Coverage results discarded because a newer request superseded them"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, err
	}

	return &CoverageMetrics{
		fetchDuration: fetchDuration,
		staleResults:  staleResults,
	}, nil
}

// RecordFetch records the duration of a coverage fetch for a target list
func (m *CoverageMetrics) RecordFetch(ctx context.Context, list string, duration time.Duration, success bool) {
	if m == nil || m.fetchDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("list", list),
		attribute.Bool("success", success),
	}

	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordStaleResult counts a result dropped by the generation check
func (m *CoverageMetrics) RecordStaleResult(ctx context.Context, list string) {
	if m == nil || m.staleResults == nil {
		return
	}

	m.staleResults.Add(ctx, 1, metric.WithAttributes(attribute.String("list", list)))
}
