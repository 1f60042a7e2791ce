// Package trace implements the execution-trace sink over OpenTelemetry.
// One span is recorded per routed query; quality scores attach to traces as
// follow-up score spans correlated by trace ID. Every entry point is safe to
// call when the backend is unavailable: failures degrade to no-ops.
package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahrav/go-triage/internal/ports"
)

// OtelSink records execution traces as OpenTelemetry spans.
type OtelSink struct {
	tracer oteltrace.Tracer
	logger *zap.Logger
	// flush pushes buffered spans to the exporter; wired to the SDK
	// tracer provider's ForceFlush by the process entry point.
	flush func(context.Context) error
}

var _ ports.TraceSink = (*OtelSink)(nil)

// NewOtelSink creates a sink over the given tracer. The optional flush
// function is invoked by Flush; pass nil when the exporter flushes itself.
func NewOtelSink(tracer oteltrace.Tracer, logger *zap.Logger, flush func(context.Context) error) *OtelSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OtelSink{tracer: tracer, logger: logger, flush: flush}
}

// Record registers a completed unit of work as a span and returns the
// span's trace ID for later score attachment.
func (s *OtelSink) Record(ctx context.Context, name, input, output string) string {
	_, span := s.tracer.Start(ctx, name,
		oteltrace.WithAttributes(
			attribute.String("triage.input", input),
			attribute.String("triage.output", output),
		),
	)
	traceID := span.SpanContext().TraceID().String()
	span.End()
	return traceID
}

// Score records a score span correlated to a prior trace by ID.
func (s *OtelSink) Score(ctx context.Context, traceID, name string, value float64, comment string) {
	_, span := s.tracer.Start(ctx, "triage.score",
		oteltrace.WithAttributes(
			attribute.String("triage.trace_id", traceID),
			attribute.String("triage.score.name", name),
			attribute.Float64("triage.score.value", value),
			attribute.String("triage.score.comment", comment),
		),
	)
	span.End()
}

// Flush pushes buffered spans to the backend.
func (s *OtelSink) Flush(ctx context.Context) {
	if s.flush == nil {
		return
	}
	if err := s.flush(ctx); err != nil {
		s.logger.Warn("trace flush failed", zap.Error(err))
	}
}

// NopSink discards all traces. Useful when no telemetry backend is
// configured; the pipeline behaves identically either way.
type NopSink struct{}

var _ ports.TraceSink = (*NopSink)(nil)

// Record discards the trace and returns an empty trace ID.
func (NopSink) Record(context.Context, string, string, string) string { return "" }

// Score discards the score.
func (NopSink) Score(context.Context, string, string, float64, string) {}

// Flush does nothing.
func (NopSink) Flush(context.Context) {}

// safeSink shields the pipeline from a panicking sink implementation.
type safeSink struct {
	next   ports.TraceSink
	logger *zap.Logger
}

// Safe wraps a sink so panics inside it are recovered and logged instead of
// aborting query processing. Sink unavailability must never break answers.
func Safe(next ports.TraceSink, logger *zap.Logger) ports.TraceSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &safeSink{next: next, logger: logger}
}

func (s *safeSink) Record(ctx context.Context, name, input, output string) (traceID string) {
	defer s.recover("record")
	return s.next.Record(ctx, name, input, output)
}

func (s *safeSink) Score(ctx context.Context, traceID, name string, value float64, comment string) {
	defer s.recover("score")
	s.next.Score(ctx, traceID, name, value, comment)
}

func (s *safeSink) Flush(ctx context.Context) {
	defer s.recover("flush")
	s.next.Flush(ctx)
}

func (s *safeSink) recover(op string) {
	if r := recover(); r != nil {
		s.logger.Warn("trace sink panicked", zap.String("op", op), zap.Any("panic", r))
	}
}
