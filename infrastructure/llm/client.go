// Package llm provides a unified client for the answer-generation service
// with pluggable providers and middleware for cross-cutting concerns.
//
// Providers (OpenAI, Anthropic, Google) are abstracted behind the CoreLLM
// interface, which works in terms of provider-agnostic chat requests so the
// same middleware chain serves plain completion, the grounded answerer, and
// the tool-invoking router.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o",
//	})
//	text, err := client.Complete(ctx, "Hello!", nil)
//
// With middleware:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: key,
//	    Model:  "gpt-4o",
//	    Middleware: []llm.Middleware{
//	        llm.RetryMiddleware(3, 200*time.Millisecond, 5*time.Second),
//	        llm.RateLimitMiddleware(10, 20),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-triage/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware wraps
// any conforming implementation.
type CoreLLM interface {
	// DoRequest submits one chat completion request. Providers that cannot
	// express tool invocation return ErrToolsUnsupported when req.Tools is
	// non-empty.
	DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior such as retries,
// rate limiting, tracing, or metrics.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds the settings for constructing an LLM client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the provider model. Empty uses the provider default.
	Model string

	// BaseURL overrides the provider's default endpoint. Optional.
	BaseURL string

	// Timeout bounds individual requests. Zero means no client-side timeout.
	Timeout time.Duration

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client implements ports.ChatClient on top of a middleware-wrapped provider.
type Client struct {
	core CoreLLM
}

// Compile-time interface checks.
var (
	_ ports.LLMClient  = (*Client)(nil)
	_ ports.ChatClient = (*Client)(nil)
)

// NewClient assembles a client for the named provider with the configured
// middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first entry is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete sends a single-prompt completion and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	resp, err := c.core.DoRequest(ctx, ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Content: prompt}},
		Options:  options,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Chat submits a full conversation, including any advertised tools.
func (c *Client) Chat(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	return c.core.DoRequest(ctx, req)
}

// GetModel returns the configured model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SetModel switches the underlying provider's model.
func (c *Client) SetModel(model string) { c.core.SetModel(model) }

// ProviderFactory creates a CoreLLM from configuration. The signature lets
// the factory registry construct providers without knowing their types.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a custom provider factory. Built-in
// providers register themselves in init.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
