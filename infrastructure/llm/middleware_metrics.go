package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-triage/internal/ports"
)

// meteredLLM reports request latency, outcomes, and token usage.
type meteredLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that records request metrics through
// the provided collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &meteredLLM{next: next, collector: collector}
	}
}

// DoRequest times the request and reports its outcome.
func (m *meteredLLM) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, req)

	labels := map[string]string{"model": m.next.GetModel()}
	m.collector.RecordLatency("llm_request", time.Since(start).Seconds(), labels)

	if err != nil {
		m.collector.RecordCounter("llm_request_errors_total", 1, labels)
		return resp, err
	}

	m.collector.RecordCounter("llm_requests_total", 1, labels)
	m.collector.RecordCounter("llm_tokens_total", float64(resp.TokensIn+resp.TokensOut), labels)
	return resp, nil
}

// GetModel returns the model name from the wrapped implementation.
func (m *meteredLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *meteredLLM) SetModel(model string) { m.next.SetModel(model) }
