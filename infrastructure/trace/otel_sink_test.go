package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/go-triage/internal/testutils"
)

func TestOtelSink_RecordWithNoopTracer(t *testing.T) {
	sink := NewOtelSink(noop.NewTracerProvider().Tracer("test"), nil, nil)

	// A noop tracer yields an invalid (all-zero) trace ID; the sink must
	// still return without failing.
	traceID := sink.Record(context.Background(), "router.run", "in", "out")
	assert.NotEmpty(t, traceID)

	sink.Score(context.Background(), traceID, "rag_quality_score", 8, "good")
	sink.Flush(context.Background())
}

func TestOtelSink_FlushInvokesFlushFunc(t *testing.T) {
	called := 0
	sink := NewOtelSink(noop.NewTracerProvider().Tracer("test"), nil, func(context.Context) error {
		called++
		return nil
	})

	sink.Flush(context.Background())
	sink.Flush(context.Background())
	assert.Equal(t, 2, called)
}

func TestOtelSink_FlushAbsorbsErrors(t *testing.T) {
	sink := NewOtelSink(noop.NewTracerProvider().Tracer("test"), nil, func(context.Context) error {
		return errors.New("exporter unreachable")
	})

	// Must not panic or propagate.
	sink.Flush(context.Background())
}

func TestSafe_RecoversPanics(t *testing.T) {
	sink := Safe(testutils.PanickySink{}, nil)

	require.NotPanics(t, func() {
		traceID := sink.Record(context.Background(), "router.run", "in", "out")
		assert.Empty(t, traceID, "a failed record yields no trace ID")
		sink.Score(context.Background(), "t", "s", 1, "c")
		sink.Flush(context.Background())
	})
}

func TestSafe_PassesThrough(t *testing.T) {
	inner := testutils.NewMockTraceSink()
	sink := Safe(inner, nil)

	traceID := sink.Record(context.Background(), "router.run", "query", "answer")
	sink.Score(context.Background(), traceID, "rag_quality_score", 7, "fine")
	sink.Flush(context.Background())

	require.Len(t, inner.Traces, 1)
	assert.Equal(t, "router.run", inner.Traces[0].Name)
	require.Len(t, inner.Scores, 1)
	assert.Equal(t, traceID, inner.Scores[0].TraceID)
	assert.Equal(t, 1, inner.Flushes)
}
