package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-triage/internal/ports"
)

// scriptedCore replays canned results per call, in order. The last entry
// repeats once the script runs out.
type scriptedCore struct {
	BaseProvider
	mu      sync.Mutex
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	resp ports.ChatResponse
	err  error
}

func newScriptedCore(results ...scriptedResult) *scriptedCore {
	c := &scriptedCore{results: results}
	c.SetModel("scripted")
	return c
}

func (c *scriptedCore) DoRequest(ctx context.Context, _ ports.ChatRequest) (ports.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ports.ChatResponse{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	r := c.results[i]
	return r.resp, r.err
}

func (c *scriptedCore) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRetryMiddleware_SucceedsAfterTransientFailure(t *testing.T) {
	transient := NewProviderError("test", ErrorTypeServerError, 503, "overloaded", nil)
	core := newScriptedCore(
		scriptedResult{err: transient},
		scriptedResult{err: transient},
		scriptedResult{resp: ports.ChatResponse{Text: "ok"}},
	)

	wrapped := RetryMiddleware(3, time.Millisecond, 5*time.Millisecond)(core)
	resp, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, core.callCount())
}

func TestRetryMiddleware_StopsOnNonRetryableError(t *testing.T) {
	fatal := NewProviderError("test", ErrorTypeAuthentication, 401, "bad key", nil)
	core := newScriptedCore(scriptedResult{err: fatal})

	wrapped := RetryMiddleware(3, time.Millisecond, 5*time.Millisecond)(core)
	_, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, core.callCount(), "authentication failures must not be retried")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ErrorTypeAuthentication, provErr.Type)
}

func TestRetryMiddleware_StopsOnUnclassifiedError(t *testing.T) {
	core := newScriptedCore(scriptedResult{err: errors.New("mystery")})

	wrapped := RetryMiddleware(3, time.Millisecond, 5*time.Millisecond)(core)
	_, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, core.callCount())
}

func TestRetryMiddleware_ExhaustsRetries(t *testing.T) {
	transient := NewProviderError("test", ErrorTypeRateLimit, 429, "slow down", nil)
	core := newScriptedCore(scriptedResult{err: transient})

	wrapped := RetryMiddleware(2, time.Millisecond, 5*time.Millisecond)(core)
	_, err := wrapped.DoRequest(context.Background(), ports.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, core.callCount(), "initial attempt plus two retries")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryMiddleware_RespectsContextCancellation(t *testing.T) {
	transient := NewProviderError("test", ErrorTypeServerError, 500, "boom", nil)
	core := newScriptedCore(scriptedResult{err: transient})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wrapped := RetryMiddleware(5, time.Second, time.Minute)(core)
	_, err := wrapped.DoRequest(ctx, ports.ChatRequest{})
	require.Error(t, err)
	assert.LessOrEqual(t, core.callCount(), 1, "no retries once the context is done")
}
