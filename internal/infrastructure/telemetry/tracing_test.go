package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "plot", "add",
		WithAttribute(SpanAttrPlotID, "152/1-1-1"),
		WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrPlotCount, 3, 42, "skipped", SpanAttrAmount, 12.5)
	AddEvent(span, "saved", SpanAttrSurvey, "152/1")
	SetOK(span)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "plot.add", got.Name())
	assert.Equal(t, trace.SpanKindServer, got.SpanKind())
	assert.Equal(t, codes.Ok, got.Status().Code)

	attrs := attrMap(got.Attributes())
	assert.Equal(t, "152/1-1-1", attrs[SpanAttrPlotID].AsString())
	assert.Equal(t, int64(3), attrs[SpanAttrPlotCount].AsInt64())
	assert.Equal(t, 12.5, attrs[SpanAttrAmount].AsFloat64())
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "saved", got.Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "sheets.save")
	RecordError(span, nil)
	RecordError(span, errors.New("remote failed"))
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "remote failed", got.Status().Description)
	assert.Len(t, got.Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestToAttribute(t *testing.T) {
	assert.Equal(t, attribute.StringSliceValue([]string{"a"}), toAttribute("k", []string{"a"}).Value)
	assert.Equal(t, attribute.BoolValue(true), toAttribute("k", true).Value)
	assert.Equal(t, attribute.StringValue("[1 2]"), toAttribute("k", []int{1, 2}).Value)
}
