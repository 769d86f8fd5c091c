// Package otel provides OpenTelemetry instrumentation utilities for the dashboard backend.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys of the remote client spans.
const (
	AttrTargetList     = attribute.Key("vocab.list")
	AttrMissingLimit   = attribute.Key("vocab.limit")
	AttrResultCount    = attribute.Key("result.count")
	AttrServiceName    = attribute.Key("service.name")
	AttrServiceHealthy = attribute.Key("service.connected")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description stays generic; the error text is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
