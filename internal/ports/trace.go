package ports

import "context"

// TraceSink records one execution trace per routed query and attaches
// quality scores to completed traces. Sink unavailability must never abort
// the pipeline: implementations absorb their own failures and degrade to
// no-ops, so callers never check errors here.
type TraceSink interface {
	// Record registers a completed unit of work and returns its trace ID.
	// An empty trace ID means the sink could not record the trace.
	Record(ctx context.Context, name, input, output string) string

	// Score attaches a named numeric score with a comment to a previously
	// recorded trace. Unknown trace IDs are ignored.
	Score(ctx context.Context, traceID, name string, value float64, comment string)

	// Flush pushes any buffered traces to the backend. Called once at
	// process shutdown.
	Flush(ctx context.Context)
}

// MetricsCollector records operational metrics for the pipeline.
// Implementations integrate with Prometheus or equivalent backends.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation in seconds.
	RecordLatency(operation string, seconds float64, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
