package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-triage/internal/ports"
)

// RecordedTrace is one Record call captured by the sink.
type RecordedTrace struct {
	ID     string
	Name   string
	Input  string
	Output string
}

// RecordedScore is one Score call captured by the sink.
type RecordedScore struct {
	TraceID string
	Name    string
	Value   float64
	Comment string
}

// MockTraceSink captures traces and scores in memory.
type MockTraceSink struct {
	mu sync.Mutex

	Traces  []RecordedTrace
	Scores  []RecordedScore
	Flushes int
}

var _ ports.TraceSink = (*MockTraceSink)(nil)

// NewMockTraceSink creates an empty sink.
func NewMockTraceSink() *MockTraceSink {
	return &MockTraceSink{}
}

// Record implements ports.TraceSink, assigning sequential trace IDs.
func (m *MockTraceSink) Record(_ context.Context, name, input, output string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("trace-%d", len(m.Traces)+1)
	m.Traces = append(m.Traces, RecordedTrace{ID: id, Name: name, Input: input, Output: output})
	return id
}

// Score implements ports.TraceSink.
func (m *MockTraceSink) Score(_ context.Context, traceID, name string, value float64, comment string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scores = append(m.Scores, RecordedScore{TraceID: traceID, Name: name, Value: value, Comment: comment})
}

// Flush implements ports.TraceSink.
func (m *MockTraceSink) Flush(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
}

// PanickySink panics on every call. Use it to verify callers survive a
// misbehaving telemetry backend.
type PanickySink struct{}

var _ ports.TraceSink = (*PanickySink)(nil)

// Record implements ports.TraceSink by panicking.
func (PanickySink) Record(context.Context, string, string, string) string {
	panic("trace sink backend down")
}

// Score implements ports.TraceSink by panicking.
func (PanickySink) Score(context.Context, string, string, float64, string) {
	panic("trace sink backend down")
}

// Flush implements ports.TraceSink by panicking.
func (PanickySink) Flush(context.Context) {
	panic("trace sink backend down")
}
