package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-triage/internal/ports"
)

// deadlineProbe reports whether its request context carried a deadline.
type deadlineProbe struct {
	BaseProvider
	hadDeadline bool
}

func (p *deadlineProbe) DoRequest(ctx context.Context, _ ports.ChatRequest) (ports.ChatResponse, error) {
	_, p.hadDeadline = ctx.Deadline()
	return ports.ChatResponse{Text: "ok"}, nil
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	probe := &deadlineProbe{}
	wrapped := TimeoutMiddleware(time.Second)(probe)

	_, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
	require.NoError(t, err)
	assert.True(t, probe.hadDeadline, "request context must carry the timeout deadline")
}

func TestRateLimitMiddleware_AllowsBurst(t *testing.T) {
	core := newScriptedCore(scriptedResult{resp: ports.ChatResponse{Text: "ok"}})
	wrapped := RateLimitMiddleware(1, 2)(core)

	// Two requests fit the burst without blocking.
	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimitMiddleware_RespectsCancellation(t *testing.T) {
	core := newScriptedCore(scriptedResult{resp: ports.ChatResponse{Text: "ok"}})
	wrapped := RateLimitMiddleware(0.001, 1)(core)

	// Drain the single burst token.
	_, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = wrapped.DoRequest(ctx, ports.ChatRequest{})
	assert.Error(t, err, "waiting past the context deadline must fail")
}
