package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// Spans of the remote client are checked in internal/remote; this covers the
// untraced paths.

func TestStartSpan_WithoutTracerKeepsParent(t *testing.T) {
	t.Parallel()

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), parent)

	got, span := StartSpan(ctx, nil, "remote.FetchAvailableLists")
	require.NotNil(t, span)
	assert.Equal(t, ctx, got)
	assert.Equal(t, parent, span.SpanContext())
	assert.NotPanics(t, func() { span.End() })
}

func TestRecordError_IgnoresNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("connection refused"))
		RecordError(nil, nil)
		RecordError(trace.SpanFromContext(context.Background()), nil)
	})
}
