package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	strataerrors "github.com/ajitpratap0/strata/pkg/errors"
)

func TestStartSpanRecordsAttributes(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "query.select")
	span.SetAttribute("town", "BEDOK")
	span.SetAttribute("rows", 3)
	span.SetAttribute("pruned_ratio", 0.5)
	span.End(nil)

	_, failed := StartSpan(context.Background(), tracer, "query.zone_pruned")
	failed.End(errors.New("zone map missing"))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "query.select", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "BEDOK", attrs["town"])
	assert.Equal(t, "3", attrs["rows"])

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "zone map missing", spans[1].Status().Description)
}

func TestInitTracingWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Writer = &buf

	shutdown, err := InitTracing(cfg)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), nil, "query.full_scan")
	span.End(nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "query.full_scan")
}

func TestInitTracingRequiresServiceName(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.ServiceName = ""

	shutdown, err := InitTracing(cfg)
	require.Error(t, err)
	assert.Nil(t, shutdown)
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeConfig))
}

func TestNoopTracerByDefault(t *testing.T) {
	_, span := StartSpan(context.Background(), nil, "anything")
	span.SetAttribute("k", struct{ A int }{1})
	assert.NotPanics(t, func() { span.End(nil) })
	assert.GreaterOrEqual(t, span.Elapsed().Nanoseconds(), int64(0))
}
